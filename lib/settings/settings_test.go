package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileAbsent(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, "operations-ci", s.Environment)
	assert.Equal(t, "us-east-1", s.AWSRegion)
	assert.Equal(t, "sops", s.Secrets.SopsBinary)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	doc := `
environment = "operations-qa"

[concourse]
target = "qa-concourse"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "operations-qa", s.Environment)
	assert.Equal(t, "qa-concourse", s.Concourse.Target)
	// untouched defaults survive
	assert.Equal(t, "us-east-1", s.AWSRegion)
}

func TestLoadEnvironmentOverridesWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte(`aws_region = "us-west-2"`), 0o644))
	t.Setenv("OL_AWS_REGION", "eu-central-1")
	t.Setenv("OL_CONCOURSE_TEAM", "ops")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "eu-central-1", s.AWSRegion)
	assert.Equal(t, "ops", s.Concourse.Team)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("OL_PULUMI_ORG", "   ")
	_, err := Load("")
	var serr *SettingsError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "pulumi_org", serr.Field)
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte("environment = ["), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRepoURI(t *testing.T) {
	s := defaults()
	s.Concourse.InfraRepoURI = "not-a-remote"
	var serr *SettingsError
	require.ErrorAs(t, s.Validate(), &serr)
	assert.Equal(t, "concourse.infra_repo_uri", serr.Field)

	s.Concourse.InfraRepoURI = "git@github.com:mitodl/ol-infrastructure-sub004.git"
	assert.NoError(t, s.Validate())
}
