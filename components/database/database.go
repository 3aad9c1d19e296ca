// Package database declares the standard RDS deployment: a subnet group, a
// generated master password and the instance itself.
package database

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/rds"
	"github.com/pulumi/pulumi-random/sdk/v4/go/random"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/mitodl/ol-infrastructure-sub004/lib/awstag"
)

// Engines supported by the applications here. Anything else is a typo until
// proven otherwise.
var supportedEngines = map[string]string{
	"postgres": "16.3",
	"mysql":    "8.0",
	"mariadb":  "10.11",
}

// EngineError reports an unsupported database engine.
type EngineError struct {
	Engine string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("unsupported database engine %q", e.Engine)
}

// OLAmazonDBArgs configures an OLAmazonDB.
type OLAmazonDBArgs struct {
	// Engine is one of postgres, mysql, mariadb.
	Engine string
	// EngineVersion overrides the default version for the engine.
	EngineVersion string
	// InstanceClass, e.g. db.t4g.medium.
	InstanceClass string
	// StorageGB is the allocated storage.
	StorageGB int
	// DBName is the initial database.
	DBName string
	// Username is the master user; defaults to oldevops.
	Username string
	// MultiAZ enables a standby replica.
	MultiAZ bool
	// Public exposes the instance outside the VPC. CI convenience only.
	Public bool
	// SubnetIDs places the subnet group.
	SubnetIDs pulumi.StringArrayInput
	// SecurityGroupIDs restrict client access.
	SecurityGroupIDs pulumi.StringArrayInput
	// Tags is applied to every resource in the component.
	Tags awstag.TagSet
}

func (args *OLAmazonDBArgs) validate() error {
	if _, ok := supportedEngines[args.Engine]; !ok {
		return &EngineError{Engine: args.Engine}
	}
	if args.InstanceClass == "" {
		return fmt.Errorf("oldb: instance class is required")
	}
	if args.StorageGB < 20 {
		return fmt.Errorf("oldb: allocated storage must be at least 20 GB")
	}
	if args.DBName == "" {
		return fmt.Errorf("oldb: database name is required")
	}
	return args.Tags.Validate()
}

// OLAmazonDB bundles the RDS resources of one application.
type OLAmazonDB struct {
	pulumi.ResourceState

	Endpoint pulumi.StringOutput
	Username pulumi.StringOutput
	Password pulumi.StringOutput
}

// NewOLAmazonDB validates args and declares the database as a component.
// The generated password is exposed as a secret output.
func NewOLAmazonDB(ctx *pulumi.Context, name string, args *OLAmazonDBArgs, opts ...pulumi.ResourceOption) (*OLAmazonDB, error) {
	if args == nil {
		args = &OLAmazonDBArgs{}
	}
	if err := args.validate(); err != nil {
		return nil, err
	}

	comp := &OLAmazonDB{}
	err := ctx.RegisterComponentResource("ol:infrastructure:AmazonDB", name, comp, opts...)
	if err != nil {
		return nil, err
	}
	tags := args.Tags.With(map[string]string{"Name": name}).Pulumi()

	subnetGroup, err := rds.NewSubnetGroup(ctx, fmt.Sprintf("%s-subnets", name), &rds.SubnetGroupArgs{
		SubnetIds: args.SubnetIDs,
		Tags:      tags,
	}, pulumi.Parent(comp))
	if err != nil {
		return nil, err
	}

	/*
	 * Generate the master password rather than passing one through config;
	 * it only ever exists as a pulumi secret.
	 */
	password, err := random.NewRandomPassword(ctx, fmt.Sprintf("%s-password", name), &random.RandomPasswordArgs{
		Length:          pulumi.Int(32),
		Special:         pulumi.Bool(true),
		OverrideSpecial: pulumi.String("_%@"),
	}, pulumi.Parent(comp))
	if err != nil {
		return nil, err
	}

	engineVersion := args.EngineVersion
	if engineVersion == "" {
		engineVersion = supportedEngines[args.Engine]
	}
	username := args.Username
	if username == "" {
		username = "oldevops"
	}

	instance, err := rds.NewInstance(ctx, name, &rds.InstanceArgs{
		Engine:                  pulumi.String(args.Engine),
		EngineVersion:           pulumi.String(engineVersion),
		InstanceClass:           pulumi.String(args.InstanceClass),
		AllocatedStorage:        pulumi.Int(args.StorageGB),
		StorageType:             pulumi.String("gp3"),
		StorageEncrypted:        pulumi.Bool(true),
		DbName:                  pulumi.String(args.DBName),
		Username:                pulumi.String(username),
		Password:                password.Result,
		MultiAz:                 pulumi.Bool(args.MultiAZ),
		PubliclyAccessible:      pulumi.Bool(args.Public),
		DbSubnetGroupName:       subnetGroup.Name,
		VpcSecurityGroupIds:     args.SecurityGroupIDs,
		BackupRetentionPeriod:   pulumi.Int(7),
		SkipFinalSnapshot:       pulumi.Bool(false),
		FinalSnapshotIdentifier: pulumi.String(fmt.Sprintf("%s-final", name)),
		Tags:                    tags,
	}, pulumi.Parent(comp))
	if err != nil {
		return nil, err
	}

	comp.Endpoint = instance.Endpoint
	comp.Username = instance.Username
	comp.Password = pulumi.ToSecret(password.Result).(pulumi.StringOutput)

	err = ctx.RegisterResourceOutputs(comp, pulumi.Map{
		"endpoint": comp.Endpoint,
		"username": comp.Username,
	})
	if err != nil {
		return nil, err
	}
	return comp, nil
}
