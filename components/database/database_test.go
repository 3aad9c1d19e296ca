package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitodl/ol-infrastructure-sub004/lib/awstag"
)

func validArgs() *OLAmazonDBArgs {
	return &OLAmazonDBArgs{
		Engine:        "postgres",
		InstanceClass: "db.t4g.medium",
		StorageGB:     50,
		DBName:        "app",
		Tags:          awstag.TagSet{OU: "operations", Environment: "operations-ci"},
	}
}

func TestOLAmazonDBArgsValidate(t *testing.T) {
	assert.NoError(t, validArgs().validate())
}

func TestOLAmazonDBArgsRejectsUnknownEngine(t *testing.T) {
	args := validArgs()
	args.Engine = "oracle"

	err := args.validate()
	var eerr *EngineError
	require.ErrorAs(t, err, &eerr)
	assert.Equal(t, "oracle", eerr.Engine)
}

func TestOLAmazonDBArgsStorageFloor(t *testing.T) {
	args := validArgs()
	args.StorageGB = 10
	assert.Error(t, args.validate())
}

func TestOLAmazonDBArgsRequiresDBName(t *testing.T) {
	args := validArgs()
	args.DBName = ""
	assert.Error(t, args.validate())
}
