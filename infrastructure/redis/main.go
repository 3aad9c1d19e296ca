package main

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"

	"github.com/mitodl/ol-infrastructure-sub004/components/cache"
	"github.com/mitodl/ol-infrastructure-sub004/lib/awstag"
)

func main() {
	pulumi.Run(func(ctx *pulumi.Context) error {

		conf := config.New(ctx, "")
		environment := conf.Require("environment")
		businessUnit := conf.Require("businessUnit")

		tags := awstag.TagSet{OU: businessUnit, Environment: environment}
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

		redisSecurityGroup, err := ec2.NewSecurityGroup(ctx, "redis-clients", &ec2.SecurityGroupArgs{
			Description: pulumi.String("Redis access from inside the VPC"),
			VpcId:       network.GetStringOutput(pulumi.String("vpcId")),
			Ingress: ec2.SecurityGroupIngressArray{
				ec2.SecurityGroupIngressArgs{
					Protocol: pulumi.String("tcp"),
					FromPort: pulumi.Int(6379),
					ToPort:   pulumi.Int(6379),
					CidrBlocks: pulumi.StringArray{
						network.GetStringOutput(pulumi.String("cidrBlock")),
					},
				},
			},
			Tags: tags.Pulumi(),
		})
		if err != nil {
			return err
		}

		nodeType := conf.Get("nodeType")
		if nodeType == "" {
			nodeType = "cache.t4g.small"
		}

		redis, err := cache.NewOLAmazonCache(ctx, "redis", &cache.OLAmazonCacheArgs{
			CacheName:        fmt.Sprintf("%s-redis-%s", businessUnit, environment),
			NodeType:         nodeType,
			NumCacheClusters: 3,
			SubnetIDs:        pulumi.StringArrayOutput(network.GetOutput(pulumi.String("privateSubnetIds"))),
			SecurityGroupIDs: pulumi.StringArray{redisSecurityGroup.ID()},
			Tags:             tags,
		})
		if err != nil {
			return err
		}

		ctx.Export("address", redis.Address)
		ctx.Export("port", redis.Port)
		ctx.Export("securityGroupId", redisSecurityGroup.ID())
		return nil
	})
}
