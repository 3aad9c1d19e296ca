package vpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitodl/ol-infrastructure-sub004/lib/awstag"
	"github.com/mitodl/ol-infrastructure-sub004/lib/network"
)

func validArgs() *OLVPCArgs {
	return &OLVPCArgs{
		BaseCidr:              "10.13.0.0/16",
		AvailabilityZoneNames: []string{"us-east-1a", "us-east-1b", "us-east-1c"},
		Tags:                  awstag.TagSet{OU: "operations", Environment: "operations-ci"},
	}
}

func TestOLVPCArgsValidate(t *testing.T) {
	assert.NoError(t, validArgs().validate())
}

func TestOLVPCArgsRejectsOutOfRangeCidr(t *testing.T) {
	args := validArgs()
	args.BaseCidr = "10.13.0.0/24"

	err := args.validate()
	var cerr *network.CIDRError
	require.ErrorAs(t, err, &cerr)
}

func TestOLVPCArgsRejectsMissingZones(t *testing.T) {
	args := validArgs()
	args.AvailabilityZoneNames = nil
	assert.Error(t, args.validate())
}

func TestOLVPCArgsRejectsInvalidTags(t *testing.T) {
	args := validArgs()
	args.Tags = awstag.TagSet{OU: "operations"}

	err := args.validate()
	var terr *awstag.TagError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "Environment", terr.Key)
}
