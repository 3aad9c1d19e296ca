// Package consul declares the pieces of a Consul datacenter this repo owns:
// the TLS material servers present, the security groups admitting agent
// traffic, and the bootstrap key-value entries written through the consul
// provider once the servers are up.
package consul

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi-consul/sdk/v3/go/consul"
	"github.com/pulumi/pulumi-tls/sdk/v4/go/tls"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/mitodl/ol-infrastructure-sub004/lib/awstag"
	"github.com/mitodl/ol-infrastructure-sub004/lib/network"
)

// Consul agent ports: serf lan/wan gossip, server rpc, http api, dns.
var agentPorts = []struct {
	port     int
	protocol string
	desc     string
}{
	{8301, "tcp", "serf lan"},
	{8301, "udp", "serf lan"},
	{8302, "tcp", "serf wan"},
	{8302, "udp", "serf wan"},
	{8300, "tcp", "server rpc"},
	{8500, "tcp", "http api"},
	{8600, "udp", "dns"},
}

// OLConsulClusterArgs configures an OLConsulCluster.
type OLConsulClusterArgs struct {
	// Datacenter names the consul datacenter, e.g. operations-qa.
	Datacenter string
	// VpcID hosts the security groups.
	VpcID pulumi.StringInput
	// AgentCIDRs are the blocks agents connect from; each is validated.
	AgentCIDRs []string
	// BootstrapKV seeds consul's key-value store, keyed by path.
	BootstrapKV map[string]string
	// CertValidityHours bounds the server certificate lifetime; defaults
	// to one year.
	CertValidityHours int
	// Tags is applied to every AWS resource in the component.
	Tags awstag.TagSet
}

func (args *OLConsulClusterArgs) validate() error {
	if args.Datacenter == "" {
		return fmt.Errorf("olconsul: datacenter name is required")
	}
	if len(args.AgentCIDRs) == 0 {
		return fmt.Errorf("olconsul: at least one agent cidr is required")
	}
	for _, block := range args.AgentCIDRs {
		if _, err := network.ValidateCIDR(block, 8, 32); err != nil {
			return err
		}
	}
	return args.Tags.Validate()
}

// OLConsulCluster bundles the cluster-level declarations.
type OLConsulCluster struct {
	pulumi.ResourceState

	SecurityGroupID pulumi.IDOutput
	CACertPem       pulumi.StringOutput
	ServerCertPem   pulumi.StringOutput
	ServerKeyPem    pulumi.StringOutput
}

// NewOLConsulCluster validates args and declares the cluster as a
// component.
func NewOLConsulCluster(ctx *pulumi.Context, name string, args *OLConsulClusterArgs, opts ...pulumi.ResourceOption) (*OLConsulCluster, error) {
	if args == nil {
		args = &OLConsulClusterArgs{}
	}
	if err := args.validate(); err != nil {
		return nil, err
	}

	comp := &OLConsulCluster{}
	err := ctx.RegisterComponentResource("ol:infrastructure:ConsulCluster", name, comp, opts...)
	if err != nil {
		return nil, err
	}
	tags := args.Tags.With(map[string]string{"Name": fmt.Sprintf("consul-%s", args.Datacenter)}).Pulumi()

	validity := args.CertValidityHours
	if validity == 0 {
		validity = 365 * 24
	}

	/*
	 * Private CA for gossip and rpc encryption. The key never leaves the
	 * pulumi state; servers receive the signed cert through their
	 * provisioning recipe.
	 */
	caKey, err := tls.NewPrivateKey(ctx, fmt.Sprintf("%s-ca-key", name), &tls.PrivateKeyArgs{
		Algorithm:  pulumi.String("ECDSA"),
		EcdsaCurve: pulumi.String("P256"),
	}, pulumi.Parent(comp))
	if err != nil {
		return nil, err
	}
	caCert, err := tls.NewSelfSignedCert(ctx, fmt.Sprintf("%s-ca-cert", name), &tls.SelfSignedCertArgs{
		PrivateKeyPem:       caKey.PrivateKeyPem,
		IsCaCertificate:     pulumi.Bool(true),
		ValidityPeriodHours: pulumi.Int(validity * 5),
		AllowedUses: pulumi.StringArray{
			pulumi.String("cert_signing"),
			pulumi.String("crl_signing"),
		},
		Subject: &tls.SelfSignedCertSubjectArgs{
			CommonName:   pulumi.String(fmt.Sprintf("consul-%s-ca", args.Datacenter)),
			Organization: pulumi.String("MIT Open Learning"),
		},
	}, pulumi.Parent(caKey))
	if err != nil {
		return nil, err
	}

	serverKey, err := tls.NewPrivateKey(ctx, fmt.Sprintf("%s-server-key", name), &tls.PrivateKeyArgs{
		Algorithm:  pulumi.String("ECDSA"),
		EcdsaCurve: pulumi.String("P256"),
	}, pulumi.Parent(comp))
	if err != nil {
		return nil, err
	}
	serverCSR, err := tls.NewCertRequest(ctx, fmt.Sprintf("%s-server-csr", name), &tls.CertRequestArgs{
		PrivateKeyPem: serverKey.PrivateKeyPem,
		DnsNames: pulumi.StringArray{
			pulumi.String(fmt.Sprintf("server.%s.consul", args.Datacenter)),
			pulumi.String("localhost"),
		},
		Subject: &tls.CertRequestSubjectArgs{
			CommonName: pulumi.String(fmt.Sprintf("server.%s.consul", args.Datacenter)),
		},
	}, pulumi.Parent(serverKey))
	if err != nil {
		return nil, err
	}
	serverCert, err := tls.NewLocallySignedCert(ctx, fmt.Sprintf("%s-server-cert", name), &tls.LocallySignedCertArgs{
		CertRequestPem:      serverCSR.CertRequestPem,
		CaPrivateKeyPem:     caKey.PrivateKeyPem,
		CaCertPem:           caCert.CertPem,
		ValidityPeriodHours: pulumi.Int(validity),
		AllowedUses: pulumi.StringArray{
			pulumi.String("server_auth"),
			pulumi.String("client_auth"),
		},
	}, pulumi.Parent(serverCSR))
	if err != nil {
		return nil, err
	}

	ingress := ec2.SecurityGroupIngressArray{}
	for _, p := range agentPorts {
		cidrs := pulumi.StringArray{}
		for _, block := range args.AgentCIDRs {
			cidrs = append(cidrs, pulumi.String(block))
		}
		ingress = append(ingress, ec2.SecurityGroupIngressArgs{
			Description: pulumi.String(p.desc),
			Protocol:    pulumi.String(p.protocol),
			FromPort:    pulumi.Int(p.port),
			ToPort:      pulumi.Int(p.port),
			CidrBlocks:  cidrs,
		})
	}
	securityGroup, err := ec2.NewSecurityGroup(ctx, fmt.Sprintf("%s-agents", name), &ec2.SecurityGroupArgs{
		Description: pulumi.String(fmt.Sprintf("Consul agent traffic for %s", args.Datacenter)),
		VpcId:       args.VpcID,
		Ingress:     ingress,
		Egress: ec2.SecurityGroupEgressArray{
			ec2.SecurityGroupEgressArgs{
				Protocol:   pulumi.String("-1"),
				FromPort:   pulumi.Int(0),
				ToPort:     pulumi.Int(0),
				CidrBlocks: pulumi.StringArray{pulumi.String("0.0.0.0/0")},
			},
		},
		Tags: tags,
	}, pulumi.Parent(comp))
	if err != nil {
		return nil, err
	}

	if len(args.BootstrapKV) > 0 {
		entries := consul.KeysKeyArray{}
		for path, value := range args.BootstrapKV {
			entries = append(entries, consul.KeysKeyArgs{
				Path:   pulumi.String(path),
				Value:  pulumi.String(value),
				Delete: pulumi.Bool(true),
			})
		}
		_, err = consul.NewKeys(ctx, fmt.Sprintf("%s-bootstrap", name), &consul.KeysArgs{
			Datacenter: pulumi.String(args.Datacenter),
			Keys:       entries,
		}, pulumi.Parent(comp))
		if err != nil {
			return nil, err
		}
	}

	comp.SecurityGroupID = securityGroup.ID()
	comp.CACertPem = caCert.CertPem
	comp.ServerCertPem = serverCert.CertPem
	comp.ServerKeyPem = pulumi.ToSecret(serverKey.PrivateKeyPem).(pulumi.StringOutput)

	err = ctx.RegisterResourceOutputs(comp, pulumi.Map{
		"securityGroupId": comp.SecurityGroupID,
		"caCertPem":       comp.CACertPem,
	})
	if err != nil {
		return nil, err
	}
	return comp, nil
}
