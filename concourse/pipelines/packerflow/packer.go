// Package packerflow builds the image-baking half of a pipeline: a packer
// validate job followed by a build job that publishes the resulting AMI.
package packerflow

import (
	"fmt"

	"github.com/mitodl/ol-infrastructure-sub004/concourse"
	"github.com/mitodl/ol-infrastructure-sub004/concourse/resources"
)

const packerImage = "hashicorp/packer"

// JobsArgs describes a packer validate/build job pair.
type JobsArgs struct {
	// Code is the git resource carrying the packer templates and the baker
	// recipes; declared by this fragment.
	Code concourse.Identifier
	// CodeURI and Branch configure the Code resource declaration.
	CodeURI string
	Branch  string
	// TemplatePath is the packer template inside the code resource.
	TemplatePath string
	// Recipe selects the baker recipe variable passed to packer.
	Recipe string
	// AmiResource, when set, declares an AMI resource the build job puts to
	// so downstream deploy chains can consume the new image.
	AmiResource concourse.Identifier
	// Schedule, when non-empty, adds a time resource rebaking the image on
	// the given interval even without template changes.
	Schedule string
}

// Jobs builds the validate and build jobs. The build job carries a passed
// constraint on validate, so a broken template never reaches packer build.
func Jobs(args JobsArgs) (concourse.Fragment, error) {
	if args.Code == "" || args.CodeURI == "" {
		return concourse.Fragment{}, fmt.Errorf("packer jobs: code resource and uri are required")
	}
	if args.TemplatePath == "" {
		return concourse.Fragment{}, fmt.Errorf("packer jobs: template path is required")
	}
	branch := args.Branch
	if branch == "" {
		branch = "main"
	}

	frag := concourse.Fragment{
		Resources: []concourse.Resource{
			resources.GitRepo(args.Code, args.CodeURI, branch, []string{args.TemplatePath}),
		},
	}

	validatePlan := []concourse.Step{
		concourse.GetStep{Get: args.Code, Trigger: true},
		packerTask("packer-validate", args, "validate"),
	}
	buildGets := []concourse.Step{
		concourse.GetStep{Get: args.Code, Trigger: true, Passed: []concourse.Identifier{"validate-packer-template"}},
	}
	buildPlan := append(buildGets, packerTask("packer-build", args, "build"))

	if args.Schedule != "" {
		scheduleName := concourse.Identifier(fmt.Sprintf("%s-rebuild-schedule", args.Code))
		frag.Resources = append(frag.Resources, resources.Schedule(scheduleName, args.Schedule))
		buildPlan = append([]concourse.Step{concourse.GetStep{Get: scheduleName, Trigger: true}}, buildPlan...)
	}

	if args.AmiResource != "" {
		frag.ResourceTypes = append(frag.ResourceTypes, resources.AmiResourceType())
		frag.Resources = append(frag.Resources, resources.Ami(args.AmiResource, map[string]string{
			"search_string": fmt.Sprintf("%s-*", args.Recipe),
		}))
		buildPlan = append(buildPlan, concourse.PutStep{
			Put:    args.AmiResource,
			Params: map[string]any{"manifest": "build-artifacts/packer-manifest.json"},
		})
	}

	frag.Jobs = []concourse.Job{
		{Name: "validate-packer-template", Plan: validatePlan},
		{Name: "build-packer-template", Plan: buildPlan, Serial: true},
	}
	return frag, nil
}

func packerTask(name concourse.Identifier, args JobsArgs, command string) concourse.Step {
	script := fmt.Sprintf("packer init %[1]s/%[2]s\npacker %[3]s -var node_type=%[4]s %[1]s/%[2]s",
		args.Code, args.TemplatePath, command, args.Recipe)

	cfg := &concourse.TaskConfig{
		Platform:      "linux",
		ImageResource: concourse.RegistryImageResource(packerImage, "light"),
		Inputs:        []concourse.TaskInput{{Name: args.Code}},
		Params: map[string]string{
			"AWS_DEFAULT_REGION": "((aws.region))",
			"PACKER_LOG":         "1",
		},
		Run: concourse.Command{Path: "sh", Args: []string{"-ec", script}},
	}
	if command == "build" {
		cfg.Outputs = []concourse.TaskOutput{{Name: "build-artifacts"}}
	}
	return concourse.TaskStep{Task: name, Config: cfg}
}
