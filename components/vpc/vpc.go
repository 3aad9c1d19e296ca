// Package vpc declares the standard VPC used by every environment: one
// public and one private subnet per availability zone, a NAT gateway for
// private egress, and gateway endpoints for the AWS services traffic should
// never leave the network for.
package vpc

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/mitodl/ol-infrastructure-sub004/lib/awstag"
	"github.com/mitodl/ol-infrastructure-sub004/lib/network"
)

// Blocks narrower than /21 cannot hold a subnet pair per AZ at the standard
// /20 split; wider than /16 is never needed here.
const (
	minVpcPrefix = 16
	maxVpcPrefix = 21
)

// Endpoints selects the gateway endpoints attached to the private route
// table.
type Endpoints struct {
	S3       bool
	DynamoDB bool
}

// OLVPCArgs configures an OLVPC.
type OLVPCArgs struct {
	// BaseCidr is the block carved into subnets; /16../21.
	BaseCidr string
	// AvailabilityZoneNames are the zones to spread subnets across.
	AvailabilityZoneNames []string
	// SubnetPrefix is the per-subnet prefix length; defaults to 20.
	SubnetPrefix int
	// Tags is applied to every resource in the component.
	Tags awstag.TagSet
	// Endpoints are the gateway endpoints to declare.
	Endpoints Endpoints
}

func (args *OLVPCArgs) validate() error {
	if _, err := network.ValidateCIDR(args.BaseCidr, minVpcPrefix, maxVpcPrefix); err != nil {
		return err
	}
	if len(args.AvailabilityZoneNames) == 0 {
		return fmt.Errorf("olvpc: at least one availability zone is required")
	}
	return args.Tags.Validate()
}

// OLVPC bundles the network resources of one environment.
type OLVPC struct {
	pulumi.ResourceState

	VpcID            pulumi.IDOutput
	Arn              pulumi.StringOutput
	CidrBlock        pulumi.StringOutput
	PublicSubnetIDs  pulumi.StringArrayOutput
	PrivateSubnetIDs pulumi.StringArrayOutput
	NatGatewayID     pulumi.IDOutput
}

// NewOLVPC validates args, then declares the VPC and its subnets, routing
// and endpoints as children of the component.
func NewOLVPC(ctx *pulumi.Context, name string, args *OLVPCArgs, opts ...pulumi.ResourceOption) (*OLVPC, error) {
	if args == nil {
		args = &OLVPCArgs{}
	}
	if err := args.validate(); err != nil {
		return nil, err
	}
	subnetPrefix := args.SubnetPrefix
	if subnetPrefix == 0 {
		subnetPrefix = 20
	}

	base, err := network.ValidateCIDR(args.BaseCidr, minVpcPrefix, maxVpcPrefix)
	if err != nil {
		return nil, err
	}
	zones := args.AvailabilityZoneNames
	// one public and one private subnet per zone, publics first
	subnetBlocks, err := network.SubnetCIDRs(base, subnetPrefix, 2*len(zones))
	if err != nil {
		return nil, err
	}

	comp := &OLVPC{}
	err = ctx.RegisterComponentResource("ol:infrastructure:VPC", name, comp, opts...)
	if err != nil {
		return nil, err
	}
	tags := args.Tags.With(map[string]string{"Name": name}).Pulumi()

	awsVpc, err := ec2.NewVpc(ctx, name, &ec2.VpcArgs{
		CidrBlock:          pulumi.String(args.BaseCidr),
		EnableDnsSupport:   pulumi.Bool(true),
		EnableDnsHostnames: pulumi.Bool(true),
		Tags:               tags,
	}, pulumi.Parent(comp))
	if err != nil {
		return nil, err
	}

	gateway, err := ec2.NewInternetGateway(ctx, fmt.Sprintf("%s-igw", name), &ec2.InternetGatewayArgs{
		VpcId: awsVpc.ID(),
		Tags:  tags,
	}, pulumi.Parent(awsVpc))
	if err != nil {
		return nil, err
	}

	/*
	 * Public subnets route through the internet gateway, private ones
	 * through a single NAT gateway in the first public subnet.
	 */
	publicRouteTable, err := ec2.NewRouteTable(ctx, fmt.Sprintf("%s-public", name), &ec2.RouteTableArgs{
		VpcId: awsVpc.ID(),
		Tags:  args.Tags.With(map[string]string{"Name": fmt.Sprintf("%s-public", name)}).Pulumi(),
	}, pulumi.Parent(awsVpc))
	if err != nil {
		return nil, err
	}
	_, err = ec2.NewRoute(ctx, fmt.Sprintf("%s-public-default", name), &ec2.RouteArgs{
		RouteTableId:         publicRouteTable.ID(),
		DestinationCidrBlock: pulumi.String("0.0.0.0/0"),
		GatewayId:            gateway.ID(),
	}, pulumi.Parent(publicRouteTable))
	if err != nil {
		return nil, err
	}

	publicIDs := make(pulumi.StringArray, 0, len(zones))
	privateSubnets := make([]*ec2.Subnet, 0, len(zones))
	var firstPublic *ec2.Subnet
	for i, zone := range zones {
		public, err := ec2.NewSubnet(ctx, fmt.Sprintf("%s-public-%d", name, i), &ec2.SubnetArgs{
			VpcId:               awsVpc.ID(),
			CidrBlock:           pulumi.String(subnetBlocks[i]),
			AvailabilityZone:    pulumi.String(zone),
			MapPublicIpOnLaunch: pulumi.Bool(true),
			Tags:                args.Tags.With(map[string]string{"Name": fmt.Sprintf("%s-public-%d", name, i)}).Pulumi(),
		}, pulumi.Parent(awsVpc))
		if err != nil {
			return nil, err
		}
		if firstPublic == nil {
			firstPublic = public
		}
		_, err = ec2.NewRouteTableAssociation(ctx, fmt.Sprintf("%s-public-%d", name, i), &ec2.RouteTableAssociationArgs{
			SubnetId:     public.ID(),
			RouteTableId: publicRouteTable.ID(),
		}, pulumi.Parent(public))
		if err != nil {
			return nil, err
		}
		publicIDs = append(publicIDs, public.ID().ToStringOutput())

		private, err := ec2.NewSubnet(ctx, fmt.Sprintf("%s-private-%d", name, i), &ec2.SubnetArgs{
			VpcId:            awsVpc.ID(),
			CidrBlock:        pulumi.String(subnetBlocks[len(zones)+i]),
			AvailabilityZone: pulumi.String(zone),
			Tags:             args.Tags.With(map[string]string{"Name": fmt.Sprintf("%s-private-%d", name, i)}).Pulumi(),
		}, pulumi.Parent(awsVpc))
		if err != nil {
			return nil, err
		}
		privateSubnets = append(privateSubnets, private)
	}

	elasticIP, err := ec2.NewEip(ctx, fmt.Sprintf("%s-nat", name), &ec2.EipArgs{
		Domain: pulumi.String("vpc"),
		Tags:   tags,
	}, pulumi.Parent(awsVpc))
	if err != nil {
		return nil, err
	}
	natGateway, err := ec2.NewNatGateway(ctx, fmt.Sprintf("%s-nat", name), &ec2.NatGatewayArgs{
		AllocationId: elasticIP.ID(),
		SubnetId:     firstPublic.ID(),
		Tags:         tags,
	}, pulumi.Parent(awsVpc))
	if err != nil {
		return nil, err
	}

	privateRouteTable, err := ec2.NewRouteTable(ctx, fmt.Sprintf("%s-private", name), &ec2.RouteTableArgs{
		VpcId: awsVpc.ID(),
		Tags:  args.Tags.With(map[string]string{"Name": fmt.Sprintf("%s-private", name)}).Pulumi(),
	}, pulumi.Parent(awsVpc))
	if err != nil {
		return nil, err
	}
	_, err = ec2.NewRoute(ctx, fmt.Sprintf("%s-private-default", name), &ec2.RouteArgs{
		RouteTableId:         privateRouteTable.ID(),
		DestinationCidrBlock: pulumi.String("0.0.0.0/0"),
		NatGatewayId:         natGateway.ID(),
	}, pulumi.Parent(privateRouteTable))
	if err != nil {
		return nil, err
	}

	privateIDs := make(pulumi.StringArray, 0, len(zones))
	for i, private := range privateSubnets {
		_, err = ec2.NewRouteTableAssociation(ctx, fmt.Sprintf("%s-private-%d", name, i), &ec2.RouteTableAssociationArgs{
			SubnetId:     private.ID(),
			RouteTableId: privateRouteTable.ID(),
		}, pulumi.Parent(private))
		if err != nil {
			return nil, err
		}
		privateIDs = append(privateIDs, private.ID().ToStringOutput())
	}

	if args.Endpoints.S3 {
		if err := gatewayEndpoint(ctx, name, "s3", awsVpc, privateRouteTable, args.Tags); err != nil {
			return nil, err
		}
	}
	if args.Endpoints.DynamoDB {
		if err := gatewayEndpoint(ctx, name, "dynamodb", awsVpc, privateRouteTable, args.Tags); err != nil {
			return nil, err
		}
	}

	comp.VpcID = awsVpc.ID()
	comp.Arn = awsVpc.Arn
	comp.CidrBlock = awsVpc.CidrBlock
	comp.PublicSubnetIDs = publicIDs.ToStringArrayOutput()
	comp.PrivateSubnetIDs = privateIDs.ToStringArrayOutput()
	comp.NatGatewayID = natGateway.ID()

	err = ctx.RegisterResourceOutputs(comp, pulumi.Map{
		"vpcId":            comp.VpcID,
		"publicSubnetIds":  comp.PublicSubnetIDs,
		"privateSubnetIds": comp.PrivateSubnetIDs,
	})
	if err != nil {
		return nil, err
	}
	return comp, nil
}

func gatewayEndpoint(ctx *pulumi.Context, name, service string, awsVpc *ec2.Vpc, routeTable *ec2.RouteTable, tags awstag.TagSet) error {
	region, err := aws.GetRegion(ctx, &aws.GetRegionArgs{}, nil)
	if err != nil {
		return err
	}
	_, err = ec2.NewVpcEndpoint(ctx, fmt.Sprintf("%s-%s", name, service), &ec2.VpcEndpointArgs{
		VpcId:       awsVpc.ID(),
		ServiceName: pulumi.String(fmt.Sprintf("com.amazonaws.%s.%s", region.Name, service)),
		RouteTableIds: pulumi.StringArray{
			routeTable.ID().ToStringOutput(),
		},
		Tags: tags.With(map[string]string{"Name": fmt.Sprintf("%s-%s", name, service)}).Pulumi(),
	}, pulumi.Parent(awsVpc))
	return err
}
