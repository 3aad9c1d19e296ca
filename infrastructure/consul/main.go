package main

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/autoscaling"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/iam"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"

	olconsul "github.com/mitodl/ol-infrastructure-sub004/components/consul"
	"github.com/mitodl/ol-infrastructure-sub004/components/iampolicy"
	"github.com/mitodl/ol-infrastructure-sub004/lib/awstag"
)

func main() {
	pulumi.Run(func(ctx *pulumi.Context) error {

		conf := config.New(ctx, "")
		environment := conf.Require("environment")
		datacenter := fmt.Sprintf("operations-%s", environment)

		tags := awstag.TagSet{OU: "operations", Environment: environment}
		if err := tags.Validate(); err != nil {
			return err
		}

		/*
		 * Grab the network stack outputs
		 */
		networkSlug := fmt.Sprintf("mitodl/network/%v", ctx.Stack())
		network, err := pulumi.NewStackReference(ctx, networkSlug, nil)
		if err != nil {
			return fmt.Errorf("error getting network stack reference: %w", err)
		}
		vpcCIDR := conf.Require("vpcCidr")

		cluster, err := olconsul.NewOLConsulCluster(ctx, "consul", &olconsul.OLConsulClusterArgs{
			Datacenter: datacenter,
			VpcID:      network.GetStringOutput(pulumi.String("vpcId")),
			AgentCIDRs: []string{vpcCIDR},
			BootstrapKV: map[string]string{
				"config/datacenter":  datacenter,
				"config/environment": environment,
			},
			Tags: tags,
		})
		if err != nil {
			return err
		}

		/*
		 * Servers discover each other by asg tag, so they only need
		 * DescribeInstances
		 */
		assumeRoleJSON, err := iampolicy.AssumeRolePolicy("ec2.amazonaws.com").JSON()
		if err != nil {
			return err
		}
		consulRole, err := iam.NewRole(ctx, "consul-server", &iam.RoleArgs{
			AssumeRolePolicy: pulumi.String(assumeRoleJSON),
			Tags:             tags.Pulumi(),
		})
		if err != nil {
			return err
		}
		discoveryJSON, err := iampolicy.New(iampolicy.Statement{
			Effect:   "Allow",
			Action:   []string{"ec2:DescribeInstances"},
			Resource: []string{"*"},
		}).JSON()
		if err != nil {
			return err
		}
		discoveryPolicy, err := iam.NewPolicy(ctx, "consul-discovery", &iam.PolicyArgs{
			Policy: pulumi.String(discoveryJSON),
		}, pulumi.Parent(consulRole))
		if err != nil {
			return err
		}
		_, err = iam.NewRolePolicyAttachment(ctx, "consul-discovery", &iam.RolePolicyAttachmentArgs{
			Role:      consulRole.Name,
			PolicyArn: discoveryPolicy.Arn,
		}, pulumi.Parent(discoveryPolicy))
		if err != nil {
			return err
		}
		consulInstanceProfile, err := iam.NewInstanceProfile(ctx, "consul-server", &iam.InstanceProfileArgs{
			Role: consulRole.Name,
		}, pulumi.Parent(consulRole))
		if err != nil {
			return err
		}

		/*
		 * Run the AMI baked from the consul recipe
		 */
		ami, err := ec2.LookupAmi(ctx, &ec2.LookupAmiArgs{
			Filters: []ec2.GetAmiFilter{
				{Name: "name", Values: []string{"consul-*"}},
				{Name: "tag:deployment", Values: []string{environment}},
			},
			Owners:     []string{"self"},
			MostRecent: pulumi.BoolRef(true),
		})
		if err != nil {
			return err
		}

		launchTemplate, err := ec2.NewLaunchTemplate(ctx, "consul-server", &ec2.LaunchTemplateArgs{
			ImageId:      pulumi.String(ami.Id),
			InstanceType: pulumi.String("t3a.small"),
			IamInstanceProfile: &ec2.LaunchTemplateIamInstanceProfileArgs{
				Arn: consulInstanceProfile.Arn,
			},
			VpcSecurityGroupIds: pulumi.StringArray{cluster.SecurityGroupID},
			Tags:                tags.Pulumi(),
		})
		if err != nil {
			return err
		}

		consulGroup, err := autoscaling.NewGroup(ctx, "consul-server", &autoscaling.GroupArgs{
			LaunchTemplate: &autoscaling.GroupLaunchTemplateArgs{
				Id:      launchTemplate.ID(),
				Version: pulumi.String("$Latest"),
			},
			MinSize:                pulumi.Int(3),
			MaxSize:                pulumi.Int(5),
			DesiredCapacity:        pulumi.Int(3),
			HealthCheckType:        pulumi.String("EC2"),
			HealthCheckGracePeriod: pulumi.Int(300),
			VpcZoneIdentifiers:     pulumi.StringArrayOutput(network.GetOutput(pulumi.String("privateSubnetIds"))),
			Tags: autoscaling.GroupTagArray{
				autoscaling.GroupTagArgs{
					Key:               pulumi.String("Name"),
					Value:             pulumi.String(fmt.Sprintf("consul-%s", environment)),
					PropagateAtLaunch: pulumi.Bool(true),
				},
				autoscaling.GroupTagArgs{
					Key:               pulumi.String("consul_env"),
					Value:             pulumi.String(environment),
					PropagateAtLaunch: pulumi.Bool(true),
				},
			},
		}, pulumi.Parent(launchTemplate))
		if err != nil {
			return err
		}

		ctx.Export("datacenter", pulumi.String(datacenter))
		ctx.Export("securityGroupId", cluster.SecurityGroupID)
		ctx.Export("caCertPem", cluster.CACertPem)
		ctx.Export("autoScalingGroupName", consulGroup.Name)
		return nil
	})
}
