// Package dockerflow builds container image build steps for pipelines that
// publish images alongside infrastructure.
package dockerflow

import (
	"fmt"

	"github.com/mitodl/ol-infrastructure-sub004/concourse"
)

const ociBuildImage = "concourse/oci-build-task"

// BuildTaskArgs parameterizes a container image build.
type BuildTaskArgs struct {
	// Input is the fetched resource holding the build context.
	Input concourse.Identifier
	// ContextPath is the build context directory inside Input; defaults to
	// the input root.
	ContextPath string
	// DockerfilePath overrides the Dockerfile location, relative to Input.
	DockerfilePath string
	// BuildArgs become --build-arg values.
	BuildArgs map[string]string
	// Target selects a multi-stage build target.
	Target string
}

// ContainerBuildTask returns a privileged task step running the oci-build
// task against the fetched context. The produced image lands in the `image`
// output for a subsequent registry-image put.
func ContainerBuildTask(args BuildTaskArgs) (concourse.Step, error) {
	if args.Input == "" {
		return nil, fmt.Errorf("container build task: input resource is required")
	}

	params := map[string]string{
		"CONTEXT": string(args.Input),
	}
	if args.ContextPath != "" {
		params["CONTEXT"] = fmt.Sprintf("%s/%s", args.Input, args.ContextPath)
	}
	if args.DockerfilePath != "" {
		params["DOCKERFILE"] = fmt.Sprintf("%s/%s", args.Input, args.DockerfilePath)
	}
	if args.Target != "" {
		params["TARGET"] = args.Target
	}
	for name, value := range args.BuildArgs {
		params[fmt.Sprintf("BUILD_ARG_%s", name)] = value
	}

	return concourse.TaskStep{
		Task:       "build-container-image",
		Privileged: true,
		Config: &concourse.TaskConfig{
			Platform:      "linux",
			ImageResource: concourse.RegistryImageResource(ociBuildImage, ""),
			Inputs:        []concourse.TaskInput{{Name: args.Input}},
			Outputs:       []concourse.TaskOutput{{Name: "image"}},
			Params:        params,
			Run:           concourse.Command{Path: "build"},
		},
	}, nil
}
