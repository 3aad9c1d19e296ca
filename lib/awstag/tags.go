// Package awstag enforces the tagging discipline applied to every AWS
// resource declared in this repository.
package awstag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// Business units that may own resources. Cost reporting groups by OU, so an
// unknown OU silently falls out of the reports.
var validOUs = map[string]bool{
	"operations":       true,
	"data":             true,
	"residential":      true,
	"mit-open":         true,
	"open-courseware":  true,
	"micromasters":     true,
	"digital-learning": true,
}

// TagError reports a tag set that fails validation.
type TagError struct {
	Key    string
	Reason string
}

func (e *TagError) Error() string {
	return fmt.Sprintf("invalid tag %q: %s", e.Key, e.Reason)
}

// TagSet carries the required tags plus any resource-specific extras.
type TagSet struct {
	// OU is the owning business unit; required, must be a known unit.
	OU string
	// Environment is the deployment environment, e.g. operations-ci;
	// required.
	Environment string
	// Extra holds additional tags. Keys in the aws: namespace are reserved
	// by AWS and rejected.
	Extra map[string]string
}

// Validate checks the required keys and the reserved-prefix rule.
func (t TagSet) Validate() error {
	if strings.TrimSpace(t.OU) == "" {
		return &TagError{Key: "OU", Reason: "required tag is missing"}
	}
	if !validOUs[t.OU] {
		return &TagError{Key: "OU", Reason: fmt.Sprintf("unknown business unit %q", t.OU)}
	}
	if strings.TrimSpace(t.Environment) == "" {
		return &TagError{Key: "Environment", Reason: "required tag is missing"}
	}
	for key, value := range t.Extra {
		if strings.HasPrefix(strings.ToLower(key), "aws:") {
			return &TagError{Key: key, Reason: "the aws: namespace is reserved"}
		}
		if strings.TrimSpace(value) == "" {
			return &TagError{Key: key, Reason: "empty value"}
		}
	}
	return nil
}

// Map flattens the tag set into a plain map.
func (t TagSet) Map() map[string]string {
	out := make(map[string]string, len(t.Extra)+2)
	for key, value := range t.Extra {
		out[key] = value
	}
	out["OU"] = t.OU
	out["Environment"] = t.Environment
	return out
}

// Pulumi converts the tag set for use in resource args.
func (t TagSet) Pulumi() pulumi.StringMap {
	out := pulumi.StringMap{}
	for key, value := range t.Map() {
		out[key] = pulumi.String(value)
	}
	return out
}

// With returns a copy of the tag set with extra tags merged in; later values
// win over existing extras. The required keys are untouched.
func (t TagSet) With(extra map[string]string) TagSet {
	merged := make(map[string]string, len(t.Extra)+len(extra))
	for k, v := range t.Extra {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return TagSet{OU: t.OU, Environment: t.Environment, Extra: merged}
}

// Keys returns the full key list in sorted order, mainly for tests and
// diffable logging.
func (t TagSet) Keys() []string {
	m := t.Map()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
