package main

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/autoscaling"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/iam"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ssm"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"

	"github.com/mitodl/ol-infrastructure-sub004/components/iampolicy"
	"github.com/mitodl/ol-infrastructure-sub004/lib/awstag"
)

func main() {
	pulumi.Run(func(ctx *pulumi.Context) error {

		conf := config.New(ctx, "")
		environment := conf.Require("environment")
		tailnetAuthKey := conf.RequireSecret("tailnetAuthKey")

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

		/*
		 * Store the tailnet auth key in SSM so instances can join the
		 * operations tailnet on boot
		 */
		authKeyParameter, err := ssm.NewParameter(ctx, "tailnet-auth-key", &ssm.ParameterArgs{
			Name:  pulumi.String("tailnet-auth-key"),
			Type:  pulumi.String("SecureString"),
			Value: tailnetAuthKey,
			Tags:  tags.Pulumi(),
		})
		if err != nil {
			return err
		}

		assumeRoleJSON, err := iampolicy.AssumeRolePolicy("ec2.amazonaws.com", "ssm.amazonaws.com").JSON()
		if err != nil {
			return err
		}

		opsRole, err := iam.NewRole(ctx, "operations", &iam.RoleArgs{
			AssumeRolePolicy: pulumi.String(assumeRoleJSON),
			Tags:             tags.Pulumi(),
		})
		if err != nil {
			return err
		}

		/*
		 * Managed instance policy so SSM sessions replace SSH
		 */
		_, err = iam.NewRolePolicyAttachment(ctx, "ssm-managed-instance-policy", &iam.RolePolicyAttachmentArgs{
			Role:      opsRole.Name,
			PolicyArn: pulumi.String("arn:aws:iam::aws:policy/AmazonSSMManagedInstanceCore"),
		}, pulumi.Parent(opsRole))
		if err != nil {
			return err
		}

		/*
		 * Scope parameter access to the single auth key parameter
		 */
		parameterPolicyJSON := authKeyParameter.Arn.ApplyT(func(arn string) (string, error) {
			return iampolicy.New(
				iampolicy.Statement{
					Effect:   "Allow",
					Action:   []string{"ssm:GetParameters"},
					Resource: []string{arn},
				},
				iampolicy.Statement{
					Effect:   "Allow",
					Action:   []string{"ssm:DescribeParameters"},
					Resource: []string{"*"},
				},
			).JSON()
		}).(pulumi.StringOutput)

		parameterPolicy, err := iam.NewPolicy(ctx, "operations-parameter-access", &iam.PolicyArgs{
			Policy: parameterPolicyJSON,
		}, pulumi.Parent(opsRole))
		if err != nil {
			return err
		}
		_, err = iam.NewRolePolicyAttachment(ctx, "parameter-access", &iam.RolePolicyAttachmentArgs{
			Role:      opsRole.Name,
			PolicyArn: parameterPolicy.Arn,
		}, pulumi.Parent(parameterPolicy))
		if err != nil {
			return err
		}

		opsInstanceProfile, err := iam.NewInstanceProfile(ctx, "operations", &iam.InstanceProfileArgs{
			Role: opsRole.Name,
		}, pulumi.Parent(opsRole))
		if err != nil {
			return err
		}

		opsSecurityGroup, err := ec2.NewSecurityGroup(ctx, "operations", &ec2.SecurityGroupArgs{
			Description: pulumi.String("Egress and ICMP for operations hosts"),
			VpcId:       network.GetStringOutput(pulumi.String("vpcId")),
			Ingress: ec2.SecurityGroupIngressArray{
				ec2.SecurityGroupIngressArgs{
					Protocol:   pulumi.String("icmp"),
					FromPort:   pulumi.Int(-1),
					ToPort:     pulumi.Int(-1),
					CidrBlocks: pulumi.StringArray{pulumi.String("0.0.0.0/0")},
				},
			},
			Egress: ec2.SecurityGroupEgressArray{
				ec2.SecurityGroupEgressArgs{
					Protocol:   pulumi.String("-1"),
					FromPort:   pulumi.Int(0),
					ToPort:     pulumi.Int(0),
					CidrBlocks: pulumi.StringArray{pulumi.String("0.0.0.0/0")},
				},
			},
			Tags: tags.Pulumi(),
		})
		if err != nil {
			return err
		}

		/*
		 * Run the most recent Debian image; operations hosts carry no baked
		 * state beyond the userdata bootstrap
		 */
		ami, err := ec2.LookupAmi(ctx, &ec2.LookupAmiArgs{
			Filters: []ec2.GetAmiFilter{
				{Name: "name", Values: []string{"debian-12-amd64-*"}},
				{Name: "virtualization-type", Values: []string{"hvm"}},
			},
			Owners:     []string{"136693071363"},
			MostRecent: pulumi.BoolRef(true),
		})
		if err != nil {
			return err
		}

		userData, err := os.ReadFile("userdata.sh")
		if err != nil {
			return err
		}

		launchTemplate, err := ec2.NewLaunchTemplate(ctx, "operations", &ec2.LaunchTemplateArgs{
			ImageId:      pulumi.String(ami.Id),
			InstanceType: pulumi.String("t3a.micro"),
			IamInstanceProfile: &ec2.LaunchTemplateIamInstanceProfileArgs{
				Arn: opsInstanceProfile.Arn,
			},
			VpcSecurityGroupIds: pulumi.StringArray{opsSecurityGroup.ID()},
			UserData:            pulumi.String(base64.StdEncoding.EncodeToString(userData)),
			Tags:                tags.Pulumi(),
		})
		if err != nil {
			return err
		}

		opsGroup, err := autoscaling.NewGroup(ctx, "operations", &autoscaling.GroupArgs{
			LaunchTemplate: &autoscaling.GroupLaunchTemplateArgs{
				Id:      launchTemplate.ID(),
				Version: pulumi.String("$Latest"),
			},
			MinSize:                pulumi.Int(1),
			MaxSize:                pulumi.Int(1),
			HealthCheckType:        pulumi.String("EC2"),
			HealthCheckGracePeriod: pulumi.Int(30),
			VpcZoneIdentifiers:     pulumi.StringArrayOutput(network.GetOutput(pulumi.String("privateSubnetIds"))),
			Tags: autoscaling.GroupTagArray{
				autoscaling.GroupTagArgs{
					Key:               pulumi.String("Name"),
					Value:             pulumi.String(fmt.Sprintf("operations-%s", environment)),
					PropagateAtLaunch: pulumi.Bool(true),
				},
				autoscaling.GroupTagArgs{
					Key:               pulumi.String("OU"),
					Value:             pulumi.String("operations"),
					PropagateAtLaunch: pulumi.Bool(true),
				},
			},
		}, pulumi.Parent(launchTemplate))
		if err != nil {
			return err
		}

		ctx.Export("autoScalingGroupName", opsGroup.Name)
		ctx.Export("securityGroupId", opsSecurityGroup.ID())
		return nil
	})
}
