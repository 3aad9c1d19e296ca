package consul

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitodl/ol-infrastructure-sub004/lib/awstag"
	"github.com/mitodl/ol-infrastructure-sub004/lib/network"
)

func validArgs() *OLConsulClusterArgs {
	return &OLConsulClusterArgs{
		Datacenter: "operations-qa",
		AgentCIDRs: []string{"10.13.0.0/16"},
		Tags:       awstag.TagSet{OU: "operations", Environment: "operations-qa"},
	}
}

func TestOLConsulClusterArgsValidate(t *testing.T) {
	assert.NoError(t, validArgs().validate())
}

func TestOLConsulClusterArgsRejectsBadCIDR(t *testing.T) {
	args := validArgs()
	args.AgentCIDRs = append(args.AgentCIDRs, "10.13.0.5/16")

	err := args.validate()
	var cerr *network.CIDRError
	require.ErrorAs(t, err, &cerr)
}

func TestOLConsulClusterArgsRequiresDatacenterAndCIDRs(t *testing.T) {
	args := validArgs()
	args.Datacenter = ""
	assert.Error(t, args.validate())

	args = validArgs()
	args.AgentCIDRs = nil
	assert.Error(t, args.validate())
}
