package main

import (
	"encoding/base64"
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/autoscaling"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/iam"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/kms"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"

	"github.com/mitodl/ol-infrastructure-sub004/components/iampolicy"
	olvault "github.com/mitodl/ol-infrastructure-sub004/components/vault"
	"github.com/mitodl/ol-infrastructure-sub004/lib/awstag"
)

func main() {
	pulumi.Run(func(ctx *pulumi.Context) error {

		conf := config.New(ctx, "")
		environment := conf.Require("environment")

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
		 * KMS key for vault auto-unseal
		 */
		unsealKey, err := kms.NewKey(ctx, "vault-unseal", &kms.KeyArgs{
			Description: pulumi.String(fmt.Sprintf("Vault auto-unseal for %s", environment)),
			Tags:        tags.Pulumi(),
		})
		if err != nil {
			return err
		}
		_, err = kms.NewAlias(ctx, "vault-unseal", &kms.AliasArgs{
			Name:        pulumi.String(fmt.Sprintf("alias/vault-unseal-%s", environment)),
			TargetKeyId: unsealKey.KeyId,
		}, pulumi.Parent(unsealKey))
		if err != nil {
			return err
		}

		assumeRoleJSON, err := iampolicy.AssumeRolePolicy("ec2.amazonaws.com").JSON()
		if err != nil {
			return err
		}
		vaultRole, err := iam.NewRole(ctx, "vault-server", &iam.RoleArgs{
			AssumeRolePolicy: pulumi.String(assumeRoleJSON),
			Tags:             tags.Pulumi(),
		})
		if err != nil {
			return err
		}

		/*
		 * Servers need the unseal key plus instance discovery for raft
		 * retry_join
		 */
		serverPolicyJSON := unsealKey.Arn.ApplyT(func(arn string) (string, error) {
			return iampolicy.New(
				iampolicy.Statement{
					Effect:   "Allow",
					Action:   []string{"kms:Encrypt", "kms:Decrypt", "kms:DescribeKey"},
					Resource: []string{arn},
				},
				iampolicy.Statement{
					Effect:   "Allow",
					Action:   []string{"ec2:DescribeInstances"},
					Resource: []string{"*"},
				},
			).JSON()
		}).(pulumi.StringOutput)
		serverPolicy, err := iam.NewPolicy(ctx, "vault-server", &iam.PolicyArgs{
			Policy: serverPolicyJSON,
		}, pulumi.Parent(vaultRole))
		if err != nil {
			return err
		}
		_, err = iam.NewRolePolicyAttachment(ctx, "vault-server", &iam.RolePolicyAttachmentArgs{
			Role:      vaultRole.Name,
			PolicyArn: serverPolicy.Arn,
		}, pulumi.Parent(serverPolicy))
		if err != nil {
			return err
		}
		vaultInstanceProfile, err := iam.NewInstanceProfile(ctx, "vault-server", &iam.InstanceProfileArgs{
			Role: vaultRole.Name,
		}, pulumi.Parent(vaultRole))
		if err != nil {
			return err
		}

		vaultSecurityGroup, err := ec2.NewSecurityGroup(ctx, "vault-server", &ec2.SecurityGroupArgs{
			Description: pulumi.String("Vault API and raft traffic"),
			VpcId:       network.GetStringOutput(pulumi.String("vpcId")),
			Ingress: ec2.SecurityGroupIngressArray{
				ec2.SecurityGroupIngressArgs{
					Description: pulumi.String("vault api"),
					Protocol:    pulumi.String("tcp"),
					FromPort:    pulumi.Int(8200),
					ToPort:      pulumi.Int(8200),
					CidrBlocks: pulumi.StringArray{
						network.GetStringOutput(pulumi.String("cidrBlock")),
					},
				},
				ec2.SecurityGroupIngressArgs{
					Description: pulumi.String("raft replication"),
					Protocol:    pulumi.String("tcp"),
					FromPort:    pulumi.Int(8201),
					ToPort:      pulumi.Int(8201),
					Self:        pulumi.Bool(true),
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
		 * Run the AMI baked from the vault recipe
		 */
		ami, err := ec2.LookupAmi(ctx, &ec2.LookupAmiArgs{
			Filters: []ec2.GetAmiFilter{
				{Name: "name", Values: []string{"vault-*"}},
				{Name: "tag:deployment", Values: []string{environment}},
			},
			Owners:     []string{"self"},
			MostRecent: pulumi.BoolRef(true),
		})
		if err != nil {
			return err
		}

		userData := unsealKey.KeyId.ApplyT(func(keyID string) string {
			script := fmt.Sprintf("#!/bin/bash\necho 'VAULT_AWSKMS_SEAL_KEY_ID=%s' >> /etc/vault.d/vault.env\nsystemctl restart vault\n", keyID)
			return base64.StdEncoding.EncodeToString([]byte(script))
		}).(pulumi.StringOutput)

		launchTemplate, err := ec2.NewLaunchTemplate(ctx, "vault-server", &ec2.LaunchTemplateArgs{
			ImageId:      pulumi.String(ami.Id),
			InstanceType: pulumi.String("t3a.medium"),
			IamInstanceProfile: &ec2.LaunchTemplateIamInstanceProfileArgs{
				Arn: vaultInstanceProfile.Arn,
			},
			VpcSecurityGroupIds: pulumi.StringArray{vaultSecurityGroup.ID()},
			UserData:            userData,
			Tags:                tags.Pulumi(),
		})
		if err != nil {
			return err
		}

		vaultGroup, err := autoscaling.NewGroup(ctx, "vault-server", &autoscaling.GroupArgs{
			LaunchTemplate: &autoscaling.GroupLaunchTemplateArgs{
				Id:      launchTemplate.ID(),
				Version: pulumi.String("$Latest"),
			},
			MinSize:                pulumi.Int(3),
			MaxSize:                pulumi.Int(5),
			HealthCheckType:        pulumi.String("EC2"),
			HealthCheckGracePeriod: pulumi.Int(300),
			VpcZoneIdentifiers:     pulumi.StringArrayOutput(network.GetOutput(pulumi.String("privateSubnetIds"))),
			Tags: autoscaling.GroupTagArray{
				autoscaling.GroupTagArgs{
					Key:               pulumi.String("Name"),
					Value:             pulumi.String(fmt.Sprintf("vault-%s", environment)),
					PropagateAtLaunch: pulumi.Bool(true),
				},
				autoscaling.GroupTagArgs{
					Key:               pulumi.String("vault_env"),
					Value:             pulumi.String(environment),
					PropagateAtLaunch: pulumi.Bool(true),
				},
			},
		}, pulumi.Parent(launchTemplate))
		if err != nil {
			return err
		}

		/*
		 * Secret backends are configured against the running cluster on a
		 * second pass, once the servers above are initialized
		 */
		if conf.GetBool("configureBackends") {
			_, err = olvault.NewOLVaultAWSBackend(ctx, "aws-operations", &olvault.OLVaultAWSBackendArgs{
				Path:   "aws-operations",
				Region: conf.Get("awsRegion"),
				Roles: map[string]iampolicy.Document{
					"read-course-data": iampolicy.New(iampolicy.Statement{
						Effect:   "Allow",
						Action:   []string{"s3:GetObject", "s3:ListBucket"},
						Resource: []string{"arn:aws:s3:::ol-course-data", "arn:aws:s3:::ol-course-data/*"},
					}),
				},
			})
			if err != nil {
				return err
			}
		}

		ctx.Export("unsealKeyArn", unsealKey.Arn)
		ctx.Export("securityGroupId", vaultSecurityGroup.ID())
		ctx.Export("autoScalingGroupName", vaultGroup.Name)
		return nil
	})
}
