package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCIDRAcceptsPermittedPrefixRange(t *testing.T) {
	prefix, err := ValidateCIDR("10.13.0.0/16", 16, 21)
	require.NoError(t, err)
	assert.Equal(t, 16, prefix.Bits())

	_, err = ValidateCIDR("10.13.0.0/21", 16, 21)
	assert.NoError(t, err)
}

func TestValidateCIDRRejectsOutOfRangePrefix(t *testing.T) {
	for _, block := range []string{"10.13.0.0/15", "10.13.0.0/22", "10.13.0.0/8"} {
		_, err := ValidateCIDR(block, 16, 21)
		var cerr *CIDRError
		require.ErrorAs(t, err, &cerr, block)
		assert.Contains(t, cerr.Reason, "permitted range")
	}
}

func TestValidateCIDRRejectsMalformedBlocks(t *testing.T) {
	cases := []string{
		"not-a-cidr",
		"10.13.0.0",       // missing prefix
		"10.13.0.5/24",    // host bits set
		"2001:db8::/32",   // ipv6
		"300.1.1.0/24",    // bad octet
	}
	for _, block := range cases {
		_, err := ValidateCIDR(block, 16, 24)
		var cerr *CIDRError
		assert.ErrorAs(t, err, &cerr, block)
	}
}

func TestSubnetCIDRsSplitsConsecutively(t *testing.T) {
	base, err := ValidateCIDR("10.13.0.0/16", 16, 21)
	require.NoError(t, err)

	subnets, err := SubnetCIDRs(base, 20, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"10.13.0.0/20",
		"10.13.16.0/20",
		"10.13.32.0/20",
		"10.13.48.0/20",
	}, subnets)
}

func TestSubnetCIDRsCapacityAndPrefixChecks(t *testing.T) {
	base, err := ValidateCIDR("10.13.0.0/16", 16, 21)
	require.NoError(t, err)

	// 16 /20 subnets fit in a /16; 17 do not
	_, err = SubnetCIDRs(base, 20, 17)
	assert.Error(t, err)

	// subnet prefix must be longer than the base prefix
	_, err = SubnetCIDRs(base, 16, 1)
	assert.Error(t, err)

	_, err = SubnetCIDRs(base, 33, 1)
	assert.Error(t, err)
}
