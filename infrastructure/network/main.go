package main

import (
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"

	"github.com/mitodl/ol-infrastructure-sub004/components/vpc"
	"github.com/mitodl/ol-infrastructure-sub004/lib/awstag"
)

func main() {
	pulumi.Run(func(ctx *pulumi.Context) error {

		conf := config.New(ctx, "")
		baseCidr := conf.Require("baseCidr")
		environment := conf.Require("environment")

		var zones []string
		if err := conf.TryObject("availabilityZones", &zones); err != nil {
			zones = []string{"us-east-1a", "us-east-1b", "us-east-1c"}
		}

		/*
		 * One VPC per environment; everything else in the environment hangs
		 * off this stack's exports via stack references.
		 */
		environmentVpc, err := vpc.NewOLVPC(ctx, environment, &vpc.OLVPCArgs{
			BaseCidr:              baseCidr,
			AvailabilityZoneNames: zones,
			Tags: awstag.TagSet{
				OU:          "operations",
				Environment: environment,
			},
			Endpoints: vpc.Endpoints{
				S3:       true,
				DynamoDB: true,
			},
		})
		if err != nil {
			return err
		}

		ctx.Export("vpcId", environmentVpc.VpcID)
		ctx.Export("cidrBlock", environmentVpc.CidrBlock)
		ctx.Export("publicSubnetIds", environmentVpc.PublicSubnetIDs)
		ctx.Export("privateSubnetIds", environmentVpc.PrivateSubnetIDs)
		return nil
	})
}
