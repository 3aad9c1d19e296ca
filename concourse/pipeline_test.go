package concourse

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPipeline() Pipeline {
	return Pipeline{
		Resources: []Resource{
			gitResource("app-code", "https://example.com/app.git"),
		},
		Jobs: []Job{
			{
				Name: "deploy-ci",
				Plan: []Step{GetStep{Get: "app-code", Trigger: true}},
			},
			{
				Name: "deploy-production",
				Plan: []Step{GetStep{Get: "app-code", Passed: []Identifier{"deploy-ci"}}},
			},
		},
	}
}

func TestPipelineValidateAcceptsWellFormedDocument(t *testing.T) {
	p := validPipeline()
	assert.NoError(t, p.Validate())
}

func TestPipelineValidateRejectsDuplicateJobNames(t *testing.T) {
	p := validPipeline()
	p.Jobs = append(p.Jobs, p.Jobs[0])

	err := p.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "job", verr.Section)
	assert.Equal(t, "deploy-ci", verr.Name)
}

func TestPipelineValidateRejectsUndeclaredResource(t *testing.T) {
	p := validPipeline()
	p.Jobs[0].Plan = append(p.Jobs[0].Plan, PutStep{Put: "nonexistent"})

	err := p.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "nonexistent")
}

func TestPipelineValidateRejectsUnknownPassedConstraint(t *testing.T) {
	p := validPipeline()
	p.Jobs[1].Plan = []Step{GetStep{Get: "app-code", Passed: []Identifier{"no-such-job"}}}

	err := p.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "no-such-job")
}

func TestPipelineValidateRejectsEmptyPlan(t *testing.T) {
	p := validPipeline()
	p.Jobs[0].Plan = nil

	err := p.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "empty plan", verr.Reason)
}

func TestPipelineValidateWalksNestedSteps(t *testing.T) {
	p := validPipeline()
	p.Jobs[0].Plan = []Step{
		InParallelStep{InParallel: ParallelConfig{Steps: []Step{
			DoStep{Do: []Step{GetStep{Get: "missing"}}},
		}}},
	}

	err := p.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "missing")
}

func TestPipelineValidateWalksJobHooks(t *testing.T) {
	cases := map[string]func(*Job){
		"on_success": func(j *Job) { j.OnSuccess = PutStep{Put: "ghost-resource"} },
		"on_failure": func(j *Job) { j.OnFailure = PutStep{Put: "ghost-resource"} },
		"ensure":     func(j *Job) { j.Ensure = PutStep{Put: "ghost-resource"} },
	}
	for hook, attach := range cases {
		p := validPipeline()
		attach(&p.Jobs[0])

		err := p.Validate()
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, hook)
		assert.Contains(t, verr.Reason, "ghost-resource", hook)
	}
}

func TestPipelineValidateWalksStepHooks(t *testing.T) {
	p := validPipeline()
	p.Jobs[0].Plan = []Step{
		GetStep{Get: "app-code", OnFailure: PutStep{Put: "ghost-resource"}},
	}
	err := p.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "ghost-resource")

	p = validPipeline()
	p.Jobs[0].Plan = []Step{
		GetStep{Get: "app-code"},
		PutStep{Put: "app-code", OnFailure: DoStep{Do: []Step{GetStep{Get: "ghost-resource"}}}},
	}
	err = p.Validate()
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "ghost-resource")
}

func TestPipelineValidateRejectsUnknownJobInGroup(t *testing.T) {
	p := validPipeline()
	p.Groups = []GroupConfig{{Name: "apps", Jobs: []Identifier{"deploy-ci", "ghost"}}}

	err := p.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "group", verr.Section)
}

func TestPipelineWriteEmitsConcourseSchema(t *testing.T) {
	p := validPipeline()
	var buf bytes.Buffer
	require.NoError(t, p.Write(&buf))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	jobs, ok := doc["jobs"].([]any)
	require.True(t, ok)
	require.Len(t, jobs, 2)

	second := jobs[1].(map[string]any)
	plan := second["plan"].([]any)
	get := plan[0].(map[string]any)
	assert.Equal(t, "app-code", get["get"])
	assert.Equal(t, []any{"deploy-ci"}, get["passed"])
	// trigger=false must be omitted, not emitted
	_, hasTrigger := get["trigger"]
	assert.False(t, hasTrigger)
}

func TestIdentifierValidation(t *testing.T) {
	cases := []struct {
		value string
		ok    bool
	}{
		{"deploy-ci", true},
		{"packer.build", true},
		{"ami_build", true},
		{"0-leading-digit", true},
		{"", false},
		{"-leading-dash", false},
		{"Uppercase", false},
		{"has space", false},
	}
	for _, tc := range cases {
		_, err := NewIdentifier(tc.value)
		if tc.ok {
			assert.NoError(t, err, tc.value)
		} else {
			var ierr *InvalidIdentifierError
			assert.ErrorAs(t, err, &ierr, tc.value)
		}
	}
}
