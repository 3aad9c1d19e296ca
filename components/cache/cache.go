// Package cache declares the standard ElastiCache Redis deployment: a
// subnet group, a parameter group and a replication group, with the naming
// rules AWS enforces checked up front so a bad name fails the program
// instead of a half-applied update.
package cache

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/elasticache"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/mitodl/ol-infrastructure-sub004/lib/awstag"
)

const maxCacheNameLength = 50

var cacheNameChars = regexp.MustCompile(`^[a-z0-9-]+$`)

// NameError reports a cache name ElastiCache would reject.
type NameError struct {
	Name   string
	Reason string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("invalid cache name %q: %s", e.Name, e.Reason)
}

// ValidateCacheName applies the ElastiCache naming rules: 1..50 characters,
// lowercase alphanumerics and hyphens only (underscores in particular are
// rejected), no leading or trailing hyphen, no consecutive hyphens.
func ValidateCacheName(name string) error {
	if name == "" {
		return &NameError{Name: name, Reason: "must not be empty"}
	}
	if len(name) > maxCacheNameLength {
		return &NameError{Name: name, Reason: fmt.Sprintf("longer than %d characters", maxCacheNameLength)}
	}
	if !cacheNameChars.MatchString(name) {
		return &NameError{Name: name, Reason: "only lowercase alphanumerics and hyphens are allowed"}
	}
	if strings.HasPrefix(name, "-") || strings.HasSuffix(name, "-") {
		return &NameError{Name: name, Reason: "must not start or end with a hyphen"}
	}
	if strings.Contains(name, "--") {
		return &NameError{Name: name, Reason: "must not contain consecutive hyphens"}
	}
	return nil
}

// OLAmazonCacheArgs configures an OLAmazonCache.
type OLAmazonCacheArgs struct {
	// CacheName becomes the replication group id; validated.
	CacheName string
	// EngineVersion is the Redis version, e.g. "7.1".
	EngineVersion string
	// NodeType is the instance class, e.g. cache.t4g.small.
	NodeType string
	// NumCacheClusters is the primary plus replica count; minimum 1.
	NumCacheClusters int
	// SubnetIDs places the subnet group, normally the VPC's private
	// subnets.
	SubnetIDs pulumi.StringArrayInput
	// SecurityGroupIDs restrict client access.
	SecurityGroupIDs pulumi.StringArrayInput
	// Tags is applied to every resource in the component.
	Tags awstag.TagSet
}

// parameterGroupFamily maps a Redis engine version onto its parameter group
// family, e.g. "7.1" -> "redis7".
func parameterGroupFamily(engineVersion string) string {
	major, _, _ := strings.Cut(engineVersion, ".")
	return "redis" + major
}

func (args *OLAmazonCacheArgs) validate() error {
	if err := ValidateCacheName(args.CacheName); err != nil {
		return err
	}
	if args.NodeType == "" {
		return fmt.Errorf("olcache: node type is required")
	}
	if args.NumCacheClusters < 1 {
		return fmt.Errorf("olcache: at least one cache cluster is required")
	}
	return args.Tags.Validate()
}

// OLAmazonCache bundles the ElastiCache resources of one application.
type OLAmazonCache struct {
	pulumi.ResourceState

	Address       pulumi.StringOutput
	Port          pulumi.IntPtrOutput
	SubnetGroupID pulumi.IDOutput
}

// NewOLAmazonCache validates args and declares the cache as a component.
func NewOLAmazonCache(ctx *pulumi.Context, name string, args *OLAmazonCacheArgs, opts ...pulumi.ResourceOption) (*OLAmazonCache, error) {
	if args == nil {
		args = &OLAmazonCacheArgs{}
	}
	if err := args.validate(); err != nil {
		return nil, err
	}

	comp := &OLAmazonCache{}
	err := ctx.RegisterComponentResource("ol:infrastructure:AmazonCache", name, comp, opts...)
	if err != nil {
		return nil, err
	}
	tags := args.Tags.With(map[string]string{"Name": args.CacheName}).Pulumi()

	subnetGroup, err := elasticache.NewSubnetGroup(ctx, fmt.Sprintf("%s-subnets", name), &elasticache.SubnetGroupArgs{
		Description: pulumi.String(fmt.Sprintf("Subnet group for %s", args.CacheName)),
		SubnetIds:   args.SubnetIDs,
		Tags:        tags,
	}, pulumi.Parent(comp))
	if err != nil {
		return nil, err
	}

	engineVersion := args.EngineVersion
	if engineVersion == "" {
		engineVersion = "7.1"
	}

	parameterGroup, err := elasticache.NewParameterGroup(ctx, fmt.Sprintf("%s-params", name), &elasticache.ParameterGroupArgs{
		Family:      pulumi.String(parameterGroupFamily(engineVersion)),
		Description: pulumi.String(fmt.Sprintf("Parameters for %s", args.CacheName)),
		Tags:        tags,
	}, pulumi.Parent(comp))
	if err != nil {
		return nil, err
	}

	replicationGroup, err := elasticache.NewReplicationGroup(ctx, name, &elasticache.ReplicationGroupArgs{
		ReplicationGroupId:       pulumi.String(args.CacheName),
		Description:              pulumi.String(fmt.Sprintf("Redis cluster for %s", args.CacheName)),
		Engine:                   pulumi.String("redis"),
		EngineVersion:            pulumi.String(engineVersion),
		NodeType:                 pulumi.String(args.NodeType),
		NumCacheClusters:         pulumi.Int(args.NumCacheClusters),
		Port:                     pulumi.Int(6379),
		ParameterGroupName:       parameterGroup.Name,
		SubnetGroupName:          subnetGroup.Name,
		SecurityGroupIds:         args.SecurityGroupIDs,
		AtRestEncryptionEnabled:  pulumi.Bool(true),
		TransitEncryptionEnabled: pulumi.Bool(true),
		AutomaticFailoverEnabled: pulumi.Bool(args.NumCacheClusters > 1),
		Tags:                     tags,
	}, pulumi.Parent(comp))
	if err != nil {
		return nil, err
	}

	comp.Address = replicationGroup.PrimaryEndpointAddress
	comp.Port = replicationGroup.Port
	comp.SubnetGroupID = subnetGroup.ID()

	err = ctx.RegisterResourceOutputs(comp, pulumi.Map{
		"address": comp.Address,
	})
	if err != nil {
		return nil, err
	}
	return comp, nil
}
