package main

import (
	"fmt"
	"sort"

	"github.com/mitodl/ol-infrastructure-sub004/concourse"
	"github.com/mitodl/ol-infrastructure-sub004/concourse/pipelines/dockerflow"
	"github.com/mitodl/ol-infrastructure-sub004/concourse/pipelines/packerflow"
	"github.com/mitodl/ol-infrastructure-sub004/concourse/pipelines/pulumiflow"
	"github.com/mitodl/ol-infrastructure-sub004/concourse/resources"
	"github.com/mitodl/ol-infrastructure-sub004/lib/settings"
)

const (
	codeResource  = concourse.Identifier("infrastructure-code")
	slackResource = concourse.Identifier("slack")
)

type pipelineBuilder func(*settings.Settings) (concourse.Pipeline, error)

func pipelineCatalog() map[string]pipelineBuilder {
	return map[string]pipelineBuilder{
		"network":          deployOnly("network"),
		"operations":       deployOnly("operations"),
		"eks":              deployOnly("eks"),
		"redis":            deployOnly("redis"),
		"postgres":         deployOnly("postgres"),
		"consul":           bakeAndDeploy("consul"),
		"vault":            bakeAndDeploy("vault"),
		"concourse-worker": workerImage,
	}
}

func pipelineNames() []string {
	catalog := pipelineCatalog()
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stacks in promotion order: a change reaches Production only after the same
// commit deployed CI and QA.
func promotionStacks(project string) []string {
	return []string{
		fmt.Sprintf("infrastructure.%s.CI", project),
		fmt.Sprintf("infrastructure.%s.QA", project),
		fmt.Sprintf("infrastructure.%s.Production", project),
	}
}

func slackFragment() concourse.Fragment {
	return concourse.Fragment{
		ResourceTypes: []concourse.ResourceType{resources.SlackNotificationResourceType()},
		Resources: []concourse.Resource{
			resources.SlackNotification(slackResource, "((slack.webhook_url))"),
		},
	}
}

func codeFragment(s *settings.Settings, paths []string) concourse.Fragment {
	return concourse.Fragment{
		Resources: []concourse.Resource{
			resources.GitRepo(codeResource, s.Concourse.InfraRepoURI, s.Concourse.Branch, paths),
		},
	}
}

// deployOnly builds a pipeline that is just the pulumi promotion chain for
// one project, with slack alerting on failed deploys.
func deployOnly(project string) pipelineBuilder {
	return func(s *settings.Settings) (concourse.Pipeline, error) {
		projectPath := fmt.Sprintf("infrastructure/%s", project)
		chain, err := pulumiflow.JobsChain(pulumiflow.ChainArgs{
			Code:        codeResource,
			ProjectPath: projectPath,
			StackNames:  promotionStacks(project),
			OnFailure:   resources.SlackAlert(slackResource, "failed"),
		})
		if err != nil {
			return concourse.Pipeline{}, err
		}
		frag := concourse.MergeFragments(
			codeFragment(s, []string{projectPath}),
			chain,
			slackFragment(),
		)
		return frag.Pipeline(), nil
	}
}

// bakeAndDeploy prepends a packer validate/build pair to the promotion
// chain. The built AMI is published through the ami resource and fetched by
// every deploy job so a rebake also rolls the instances.
func bakeAndDeploy(recipe string) pipelineBuilder {
	return func(s *settings.Settings) (concourse.Pipeline, error) {
		projectPath := fmt.Sprintf("infrastructure/%s", recipe)
		amiResource := concourse.Identifier(fmt.Sprintf("%s-ami", recipe))

		baked, err := packerflow.Jobs(packerflow.JobsArgs{
			Code:         codeResource,
			CodeURI:      s.Concourse.InfraRepoURI,
			Branch:       s.Concourse.Branch,
			TemplatePath: "baker/templates/node.pkr.hcl",
			Recipe:       recipe,
			AmiResource:  amiResource,
			Schedule:     "168h",
		})
		if err != nil {
			return concourse.Pipeline{}, err
		}

		chain, err := pulumiflow.JobsChain(pulumiflow.ChainArgs{
			Code:           codeResource,
			ProjectPath:    projectPath,
			StackNames:     promotionStacks(recipe),
			AdditionalGets: []concourse.Identifier{amiResource},
			OnFailure:      resources.SlackAlert(slackResource, "failed"),
		})
		if err != nil {
			return concourse.Pipeline{}, err
		}

		/*
		 * The code fragment goes first so its unrestricted git resource wins
		 * over the template-scoped one the packer fragment declares
		 */
		frag := concourse.MergeFragments(
			codeFragment(s, nil),
			baked,
			chain,
			slackFragment(),
		)
		return frag.Pipeline(), nil
	}
}

// workerImage builds and publishes the concourse worker container image.
func workerImage(s *settings.Settings) (concourse.Pipeline, error) {
	const imageResource = concourse.Identifier("worker-image")

	build, err := dockerflow.ContainerBuildTask(dockerflow.BuildTaskArgs{
		Input:          codeResource,
		ContextPath:    "dockerfiles/concourse-worker",
		DockerfilePath: "dockerfiles/concourse-worker/Dockerfile",
	})
	if err != nil {
		return concourse.Pipeline{}, err
	}

	frag := concourse.MergeFragments(
		codeFragment(s, []string{"dockerfiles/concourse-worker"}),
		concourse.Fragment{
			Resources: []concourse.Resource{
				resources.RegistryImage(imageResource, "mitodl/concourse-worker", "latest"),
			},
			Jobs: []concourse.Job{
				{
					Name:   "build-worker-image",
					Serial: true,
					Plan: []concourse.Step{
						concourse.GetStep{Get: codeResource, Trigger: true},
						build,
						concourse.PutStep{
							Put:    imageResource,
							Params: map[string]any{"image": "image/image.tar"},
						},
					},
					OnFailure: resources.SlackAlert(slackResource, "failed"),
				},
			},
		},
		slackFragment(),
	)
	return frag.Pipeline(), nil
}
