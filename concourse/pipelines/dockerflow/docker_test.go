package dockerflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitodl/ol-infrastructure-sub004/concourse"
)

func TestContainerBuildTaskParams(t *testing.T) {
	step, err := ContainerBuildTask(BuildTaskArgs{
		Input:          "app-code",
		ContextPath:    "dockerfiles/concourse",
		DockerfilePath: "dockerfiles/concourse/Dockerfile.web",
		BuildArgs:      map[string]string{"CONCOURSE_VERSION": "7.11.0"},
		Target:         "web",
	})
	require.NoError(t, err)

	task, ok := step.(concourse.TaskStep)
	require.True(t, ok)
	assert.True(t, task.Privileged)

	params := task.Config.Params
	assert.Equal(t, "app-code/dockerfiles/concourse", params["CONTEXT"])
	assert.Equal(t, "app-code/dockerfiles/concourse/Dockerfile.web", params["DOCKERFILE"])
	assert.Equal(t, "web", params["TARGET"])
	assert.Equal(t, "7.11.0", params["BUILD_ARG_CONCOURSE_VERSION"])

	require.Len(t, task.Config.Outputs, 1)
	assert.Equal(t, concourse.Identifier("image"), task.Config.Outputs[0].Name)
}

func TestContainerBuildTaskDefaultsContextToInputRoot(t *testing.T) {
	step, err := ContainerBuildTask(BuildTaskArgs{Input: "app-code"})
	require.NoError(t, err)

	task := step.(concourse.TaskStep)
	assert.Equal(t, "app-code", task.Config.Params["CONTEXT"])
}

func TestContainerBuildTaskRequiresInput(t *testing.T) {
	_, err := ContainerBuildTask(BuildTaskArgs{})
	assert.Error(t, err)
}
