package packerflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitodl/ol-infrastructure-sub004/concourse"
)

func baseArgs() JobsArgs {
	return JobsArgs{
		Code:         "packer-code",
		CodeURI:      "https://example.com/infra.git",
		TemplatePath: "baker/templates/server.pkr.hcl",
		Recipe:       "consul",
	}
}

func TestPackerJobsBuildGatedOnValidate(t *testing.T) {
	frag, err := Jobs(baseArgs())
	require.NoError(t, err)
	require.Len(t, frag.Jobs, 2)

	assert.Equal(t, concourse.Identifier("validate-packer-template"), frag.Jobs[0].Name)
	assert.Equal(t, concourse.Identifier("build-packer-template"), frag.Jobs[1].Name)

	get := frag.Jobs[1].Plan[0].(concourse.GetStep)
	assert.Equal(t, []concourse.Identifier{"validate-packer-template"}, get.Passed)

	p := frag.Pipeline()
	assert.NoError(t, p.Validate())
}

func TestPackerJobsWithAmiResourcePutsManifest(t *testing.T) {
	args := baseArgs()
	args.AmiResource = "consul-ami"
	frag, err := Jobs(args)
	require.NoError(t, err)

	require.Len(t, frag.ResourceTypes, 1)
	assert.Equal(t, concourse.Identifier("amis"), frag.ResourceTypes[0].Name)

	build := frag.Jobs[1]
	last := build.Plan[len(build.Plan)-1].(concourse.PutStep)
	assert.Equal(t, concourse.Identifier("consul-ami"), last.Put)

	p := frag.Pipeline()
	assert.NoError(t, p.Validate())
}

func TestPackerJobsScheduleAddsTriggeringTimeResource(t *testing.T) {
	args := baseArgs()
	args.Schedule = "168h"
	frag, err := Jobs(args)
	require.NoError(t, err)

	var schedule *concourse.Resource
	for i := range frag.Resources {
		if frag.Resources[i].Type == "time" {
			schedule = &frag.Resources[i]
		}
	}
	require.NotNil(t, schedule)

	first := frag.Jobs[1].Plan[0].(concourse.GetStep)
	assert.Equal(t, schedule.Name, first.Get)
	assert.True(t, first.Trigger)
}

func TestPackerJobsRequiredArgs(t *testing.T) {
	_, err := Jobs(JobsArgs{})
	assert.Error(t, err)

	args := baseArgs()
	args.TemplatePath = ""
	_, err = Jobs(args)
	assert.Error(t, err)
}
