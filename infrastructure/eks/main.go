package main

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/eks"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/iam"
	"github.com/pulumi/pulumi-kubernetes/sdk/v4/go/kubernetes"
	helmv3 "github.com/pulumi/pulumi-kubernetes/sdk/v4/go/kubernetes/helm/v3"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"

	"github.com/mitodl/ol-infrastructure-sub004/components/iampolicy"
	"github.com/mitodl/ol-infrastructure-sub004/lib/awstag"
)

func main() {
	pulumi.Run(func(ctx *pulumi.Context) error {

		conf := config.New(ctx, "")
		environment := conf.Require("environment")
		clusterName := conf.Require("clusterName")

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
		 * IAM roles for the control plane and the node group
		 */
		clusterAssumeRoleJSON, err := iampolicy.AssumeRolePolicy("eks.amazonaws.com").JSON()
		if err != nil {
			return err
		}
		clusterRole, err := iam.NewRole(ctx, "eks-cluster", &iam.RoleArgs{
			AssumeRolePolicy: pulumi.String(clusterAssumeRoleJSON),
			Tags:             tags.Pulumi(),
		})
		if err != nil {
			return err
		}
		clusterPolicies := []string{
			"arn:aws:iam::aws:policy/AmazonEKSClusterPolicy",
			"arn:aws:iam::aws:policy/AmazonEKSServicePolicy",
		}
		for i, policy := range clusterPolicies {
			_, err := iam.NewRolePolicyAttachment(ctx, fmt.Sprintf("eks-cluster-%d", i), &iam.RolePolicyAttachmentArgs{
				PolicyArn: pulumi.String(policy),
				Role:      clusterRole.Name,
			}, pulumi.Parent(clusterRole))
			if err != nil {
				return err
			}
		}

		nodeAssumeRoleJSON, err := iampolicy.AssumeRolePolicy("ec2.amazonaws.com").JSON()
		if err != nil {
			return err
		}
		nodeRole, err := iam.NewRole(ctx, "eks-nodes", &iam.RoleArgs{
			AssumeRolePolicy: pulumi.String(nodeAssumeRoleJSON),
			Tags:             tags.Pulumi(),
		})
		if err != nil {
			return err
		}
		nodePolicies := []string{
			"arn:aws:iam::aws:policy/AmazonEKSWorkerNodePolicy",
			"arn:aws:iam::aws:policy/AmazonEKS_CNI_Policy",
			"arn:aws:iam::aws:policy/AmazonEC2ContainerRegistryReadOnly",
		}
		for i, policy := range nodePolicies {
			_, err := iam.NewRolePolicyAttachment(ctx, fmt.Sprintf("eks-nodes-%d", i), &iam.RolePolicyAttachmentArgs{
				PolicyArn: pulumi.String(policy),
				Role:      nodeRole.Name,
			}, pulumi.Parent(nodeRole))
			if err != nil {
				return err
			}
		}

		/*
		 * Control plane access is limited to the VPC; workloads are
		 * reached through their own load balancers
		 */
		clusterSecurityGroup, err := ec2.NewSecurityGroup(ctx, "eks-cluster", &ec2.SecurityGroupArgs{
			VpcId: network.GetStringOutput(pulumi.String("vpcId")),
			Ingress: ec2.SecurityGroupIngressArray{
				ec2.SecurityGroupIngressArgs{
					Protocol: pulumi.String("tcp"),
					FromPort: pulumi.Int(443),
					ToPort:   pulumi.Int(443),
					CidrBlocks: pulumi.StringArray{
						network.GetStringOutput(pulumi.String("cidrBlock")),
					},
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

		eksCluster, err := eks.NewCluster(ctx, "eks-cluster", &eks.ClusterArgs{
			Name:    pulumi.String(clusterName),
			RoleArn: clusterRole.Arn,
			VpcConfig: &eks.ClusterVpcConfigArgs{
				SecurityGroupIds: pulumi.StringArray{clusterSecurityGroup.ID()},
				SubnetIds:        pulumi.StringArrayOutput(network.GetOutput(pulumi.String("privateSubnetIds"))),
			},
			Tags: tags.Pulumi(),
		})
		if err != nil {
			return err
		}

		_, err = eks.NewNodeGroup(ctx, "eks-nodes", &eks.NodeGroupArgs{
			ClusterName:   eksCluster.Name,
			NodeGroupName: pulumi.String(fmt.Sprintf("%s-nodes", clusterName)),
			NodeRoleArn:   nodeRole.Arn,
			SubnetIds:     pulumi.StringArrayOutput(network.GetOutput(pulumi.String("privateSubnetIds"))),
			ScalingConfig: &eks.NodeGroupScalingConfigArgs{
				DesiredSize: pulumi.Int(3),
				MaxSize:     pulumi.Int(5),
				MinSize:     pulumi.Int(2),
			},
			Tags: tags.Pulumi(),
		}, pulumi.Parent(eksCluster))
		if err != nil {
			return err
		}

		kubeConfig, err := generateKubeconfig(eksCluster.Endpoint, eksCluster.CertificateAuthority.Data().Elem(), eksCluster.Name)
		if err != nil {
			return err
		}

		/*
		 * Baseline in-cluster services installed through the generated
		 * kubeconfig
		 */
		k8sProvider, err := kubernetes.NewProvider(ctx, "eks-k8s", &kubernetes.ProviderArgs{
			Kubeconfig: kubeConfig,
		}, pulumi.Parent(eksCluster))
		if err != nil {
			return err
		}

		_, err = helmv3.NewRelease(ctx, "cert-manager", &helmv3.ReleaseArgs{
			Chart:           pulumi.String("cert-manager"),
			Version:         pulumi.String("v1.14.5"),
			Namespace:       pulumi.String("cert-manager"),
			CreateNamespace: pulumi.Bool(true),
			RepositoryOpts: &helmv3.RepositoryOptsArgs{
				Repo: pulumi.String("https://charts.jetstack.io"),
			},
			Values: pulumi.Map{
				"installCRDs": pulumi.Bool(true),
			},
		}, pulumi.Provider(k8sProvider))
		if err != nil {
			return err
		}

		ctx.Export("kubeconfig", pulumi.ToSecret(kubeConfig))
		ctx.Export("clusterName", eksCluster.Name)
		ctx.Export("clusterEndpoint", eksCluster.Endpoint)
		return nil
	})
}
