// Package settings loads the repo-wide configuration consumed by the CLI:
// defaults, an optional TOML file, then OL_-prefixed environment overrides,
// in that order.
package settings

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix namespaces the environment variables read by Load.
const EnvPrefix = "OL_"

// Settings is the top-level configuration document.
type Settings struct {
	// Environment is the target deployment environment, e.g. operations-ci.
	Environment string `toml:"environment"`
	// AWSRegion is the default region for stacks and AMI lookups.
	AWSRegion string `toml:"aws_region"`
	// PulumiOrg prefixes stack reference slugs.
	PulumiOrg string `toml:"pulumi_org"`

	Concourse ConcourseSettings `toml:"concourse"`
	Secrets   SecretsSettings   `toml:"secrets"`
}

// ConcourseSettings configures pipeline document generation.
type ConcourseSettings struct {
	// Target is the fly target name printed in set-pipeline hints.
	Target string `toml:"target"`
	// Team is the Concourse team owning the generated pipelines.
	Team string `toml:"team"`
	// InfraRepoURI is the git remote watched by generated pipelines.
	InfraRepoURI string `toml:"infra_repo_uri"`
	// Branch is the branch watched by generated pipelines.
	Branch string `toml:"branch"`
}

// SecretsSettings configures sops decryption.
type SecretsSettings struct {
	// SopsBinary is the sops executable; defaults to "sops" on PATH.
	SopsBinary string `toml:"sops_binary"`
}

// SettingsError reports a configuration value that fails validation.
type SettingsError struct {
	Field  string
	Reason string
}

func (e *SettingsError) Error() string {
	return fmt.Sprintf("settings: %s: %s", e.Field, e.Reason)
}

func defaults() Settings {
	return Settings{
		Environment: "operations-ci",
		AWSRegion:   "us-east-1",
		PulumiOrg:   "mitodl",
		Concourse: ConcourseSettings{
			Target:       "odl-concourse",
			Team:         "infrastructure",
			InfraRepoURI: "https://github.com/mitodl/ol-infrastructure-sub004",
			Branch:       "main",
		},
		Secrets: SecretsSettings{SopsBinary: "sops"},
	}
}

// Load builds the settings from defaults, the TOML file at path (skipped
// when path is empty or absent), and environment overrides.
func Load(path string) (*Settings, error) {
	s := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// fall through to env overrides
		case err != nil:
			return nil, fmt.Errorf("read settings %s: %w", path, err)
		default:
			if err := toml.Unmarshal(raw, &s); err != nil {
				return nil, fmt.Errorf("parse settings %s: %w", path, err)
			}
		}
	}

	applyEnv(&s)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func applyEnv(s *Settings) {
	for key, target := range map[string]*string{
		"ENVIRONMENT":             &s.Environment,
		"AWS_REGION":              &s.AWSRegion,
		"PULUMI_ORG":              &s.PulumiOrg,
		"CONCOURSE_TARGET":        &s.Concourse.Target,
		"CONCOURSE_TEAM":          &s.Concourse.Team,
		"CONCOURSE_INFRA_REPO":    &s.Concourse.InfraRepoURI,
		"CONCOURSE_BRANCH":        &s.Concourse.Branch,
		"SOPS_BINARY":             &s.Secrets.SopsBinary,
	} {
		if value, ok := os.LookupEnv(EnvPrefix + key); ok {
			*target = value
		}
	}
}

// Validate applies the cross-field checks that do not depend on external
// systems.
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.Environment) == "" {
		return &SettingsError{Field: "environment", Reason: "must not be empty"}
	}
	if strings.TrimSpace(s.AWSRegion) == "" {
		return &SettingsError{Field: "aws_region", Reason: "must not be empty"}
	}
	if strings.TrimSpace(s.PulumiOrg) == "" {
		return &SettingsError{Field: "pulumi_org", Reason: "must not be empty"}
	}
	if !strings.Contains(s.Concourse.InfraRepoURI, "://") && !strings.HasPrefix(s.Concourse.InfraRepoURI, "git@") {
		return &SettingsError{Field: "concourse.infra_repo_uri", Reason: "must be a git remote URI"}
	}
	return nil
}
