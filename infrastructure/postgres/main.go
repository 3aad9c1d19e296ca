package main

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"

	"github.com/mitodl/ol-infrastructure-sub004/components/database"
	olvault "github.com/mitodl/ol-infrastructure-sub004/components/vault"
	"github.com/mitodl/ol-infrastructure-sub004/lib/awstag"
)

func main() {
	pulumi.Run(func(ctx *pulumi.Context) error {

		conf := config.New(ctx, "")
		environment := conf.Require("environment")
		businessUnit := conf.Require("businessUnit")
		appName := conf.Require("appName")

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

		dbSecurityGroup, err := ec2.NewSecurityGroup(ctx, fmt.Sprintf("%s-db-clients", appName), &ec2.SecurityGroupArgs{
			Description: pulumi.String("Postgres access from inside the VPC"),
			VpcId:       network.GetStringOutput(pulumi.String("vpcId")),
			Ingress: ec2.SecurityGroupIngressArray{
				ec2.SecurityGroupIngressArgs{
					Protocol: pulumi.String("tcp"),
					FromPort: pulumi.Int(5432),
					ToPort:   pulumi.Int(5432),
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

		instanceClass := conf.Get("instanceClass")
		if instanceClass == "" {
			instanceClass = "db.t4g.medium"
		}
		storageGB := conf.GetInt("storageGb")
		if storageGB == 0 {
			storageGB = 100
		}

		db, err := database.NewOLAmazonDB(ctx, fmt.Sprintf("%s-db", appName), &database.OLAmazonDBArgs{
			Engine:           "postgres",
			InstanceClass:    instanceClass,
			StorageGB:        storageGB,
			DBName:           appName,
			MultiAZ:          environment == "production",
			SubnetIDs:        pulumi.StringArrayOutput(network.GetOutput(pulumi.String("privateSubnetIds"))),
			SecurityGroupIDs: pulumi.StringArray{dbSecurityGroup.ID()},
			Tags:             tags,
		})
		if err != nil {
			return err
		}

		/*
		 * Hand credential issuance to vault once the instance exists. The
		 * admin connection string is built from the component outputs so the
		 * master password never appears in config.
		 */
		if conf.GetBool("configureVault") {
			connectionURL := pulumi.Sprintf(
				"postgresql://{{username}}:{{password}}@%s/%s", db.Endpoint, appName,
			)
			_, err = olvault.NewOLVaultDatabaseBackend(ctx, fmt.Sprintf("%s-db", appName), &olvault.OLVaultDatabaseBackendArgs{
				MountPath:     fmt.Sprintf("postgres-%s", appName),
				ConnectionURL: connectionURL,
				Roles: map[string][]string{
					"app": {
						`CREATE ROLE "{{name}}" WITH LOGIN PASSWORD '{{password}}' VALID UNTIL '{{expiration}}';`,
						fmt.Sprintf(`GRANT ALL PRIVILEGES ON DATABASE %s TO "{{name}}";`, appName),
					},
					"readonly": {
						`CREATE ROLE "{{name}}" WITH LOGIN PASSWORD '{{password}}' VALID UNTIL '{{expiration}}';`,
						`GRANT SELECT ON ALL TABLES IN SCHEMA public TO "{{name}}";`,
					},
				},
				DefaultTTLSeconds: 3600,
				MaxTTLSeconds:     86400,
			})
			if err != nil {
				return err
			}
		}

		ctx.Export("endpoint", db.Endpoint)
		ctx.Export("username", db.Username)
		ctx.Export("password", db.Password)
		ctx.Export("securityGroupId", dbSecurityGroup.ID())
		return nil
	})
}
