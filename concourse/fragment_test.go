package concourse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gitResource(name Identifier, uri string) Resource {
	return Resource{
		Name:   name,
		Type:   "git",
		Source: map[string]any{"uri": uri},
	}
}

func TestMergeFragmentsDeduplicatesResourcesFirstSeenWins(t *testing.T) {
	first := Fragment{
		Resources: []Resource{
			gitResource("app-code", "https://example.com/app.git"),
			gitResource("shared", "https://example.com/first.git"),
		},
	}
	second := Fragment{
		Resources: []Resource{
			gitResource("shared", "https://example.com/second.git"),
			gitResource("packer-templates", "https://example.com/packer.git"),
		},
	}

	merged := MergeFragments(first, second)

	require.Len(t, merged.Resources, 3)
	assert.Equal(t, Identifier("app-code"), merged.Resources[0].Name)
	assert.Equal(t, Identifier("shared"), merged.Resources[1].Name)
	assert.Equal(t, Identifier("packer-templates"), merged.Resources[2].Name)
	// the first fragment's declaration wins
	assert.Equal(t, "https://example.com/first.git", merged.Resources[1].Source["uri"])
}

func TestMergeFragmentsDeduplicatesResourceTypes(t *testing.T) {
	slackType := ResourceType{
		Name:   "slack-notification",
		Type:   "registry-image",
		Source: map[string]any{"repository": "arbourd/concourse-slack-alert-resource"},
	}
	merged := MergeFragments(
		Fragment{ResourceTypes: []ResourceType{slackType}},
		Fragment{ResourceTypes: []ResourceType{slackType}},
	)
	assert.Len(t, merged.ResourceTypes, 1)
}

func TestMergeFragmentsConcatenatesJobsInArgumentOrder(t *testing.T) {
	job := func(name Identifier) Job {
		return Job{Name: name, Plan: []Step{GetStep{Get: "app-code"}}}
	}
	merged := MergeFragments(
		Fragment{Jobs: []Job{job("validate"), job("build")}},
		Fragment{Jobs: []Job{job("deploy-ci")}},
		Fragment{Jobs: []Job{job("deploy-production")}},
	)
	assert.Equal(t,
		[]Identifier{"validate", "build", "deploy-ci", "deploy-production"},
		merged.JobNames())
}

func TestMergeFragmentsEmptyInputYieldsEmptyFragment(t *testing.T) {
	merged := MergeFragments()
	assert.Empty(t, merged.ResourceTypes)
	assert.Empty(t, merged.Resources)
	assert.Empty(t, merged.Jobs)

	p := merged.Pipeline()
	assert.NoError(t, p.Validate())
}

func TestFragmentMergeKeepsReceiverFirst(t *testing.T) {
	base := Fragment{Resources: []Resource{gitResource("shared", "base")}}
	other := Fragment{Resources: []Resource{gitResource("shared", "other")}}

	merged := base.Merge(other)

	require.Len(t, merged.Resources, 1)
	assert.Equal(t, "base", merged.Resources[0].Source["uri"])
}
