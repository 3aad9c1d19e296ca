// Package pulumiflow builds the deployment half of a pipeline: an ordered
// chain of jobs running `pulumi up` against successive stacks, each gated on
// the one before it.
package pulumiflow

import (
	"fmt"

	"github.com/mitodl/ol-infrastructure-sub004/concourse"
)

const pulumiImage = "pulumi/pulumi-go"

// ChainArgs describes a pulumi deployment chain.
type ChainArgs struct {
	// Code is the git resource carrying the pulumi project. It must be
	// declared by the caller (or another merged fragment).
	Code concourse.Identifier
	// ProjectPath is the project directory inside the code resource.
	ProjectPath string
	// StackNames are the fully qualified stack names in promotion order,
	// e.g. infrastructure.network.CI before infrastructure.network.Production.
	StackNames []string
	// AdditionalGets are extra resources each job fetches without
	// triggering, e.g. a baked AMI.
	AdditionalGets []concourse.Identifier
	// OnFailure, when non-nil, is attached to every job in the chain.
	OnFailure concourse.Step
}

// JobsChain builds one deploy job per stack. The first job triggers on new
// versions of the code resource; each subsequent job carries a passed
// constraint on its predecessor so a change promotes through the stacks in
// order. A single-stack chain has no passed constraints.
func JobsChain(args ChainArgs) (concourse.Fragment, error) {
	if args.Code == "" {
		return concourse.Fragment{}, fmt.Errorf("pulumi jobs chain: code resource is required")
	}
	if len(args.StackNames) == 0 {
		return concourse.Fragment{}, fmt.Errorf("pulumi jobs chain: at least one stack is required")
	}

	var frag concourse.Fragment
	var previous concourse.Identifier
	for _, stack := range args.StackNames {
		jobName, err := concourse.NewIdentifier(fmt.Sprintf("deploy-%s", slugify(stack)))
		if err != nil {
			return concourse.Fragment{}, fmt.Errorf("pulumi jobs chain: stack %q: %w", stack, err)
		}

		get := concourse.GetStep{Get: args.Code, Trigger: true}
		if previous != "" {
			get.Passed = []concourse.Identifier{previous}
		}
		plan := []concourse.Step{get}
		for _, extra := range args.AdditionalGets {
			plan = append(plan, concourse.GetStep{Get: extra})
		}
		plan = append(plan, deployTask(args, stack))

		frag.Jobs = append(frag.Jobs, concourse.Job{
			Name:      jobName,
			Plan:      plan,
			Serial:    true,
			OnFailure: args.OnFailure,
		})
		previous = jobName
	}
	return frag, nil
}

func deployTask(args ChainArgs, stack string) concourse.Step {
	return concourse.TaskStep{
		Task: "pulumi-up",
		Config: &concourse.TaskConfig{
			Platform:      "linux",
			ImageResource: concourse.RegistryImageResource(pulumiImage, "latest"),
			Inputs:        []concourse.TaskInput{{Name: args.Code}},
			Params: map[string]string{
				"PULUMI_ACCESS_TOKEN": "((pulumi.access_token))",
				"AWS_DEFAULT_REGION":  "((aws.region))",
			},
			Run: concourse.Command{
				Path: "sh",
				Args: []string{
					"-ec",
					fmt.Sprintf("cd %s/%s\npulumi login\npulumi stack select %s\npulumi up --yes --refresh",
						args.Code, args.ProjectPath, stack),
				},
			},
		},
	}
}

// slugify maps a dotted stack name onto the identifier charset.
func slugify(stack string) string {
	out := make([]rune, 0, len(stack))
	for _, r := range stack {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		default:
			out = append(out, '-')
		}
	}
	return string(out)
}
