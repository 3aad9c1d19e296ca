// Package iampolicy builds IAM policy documents as typed values instead of
// inline map literals, and lints them before they reach AWS.
package iampolicy

import (
	"encoding/json"
	"fmt"
)

// Version is the policy language version every document here uses.
const Version = "2012-10-17"

// Statement is one entry in a policy document. Principal is only meaningful
// in trust policies.
type Statement struct {
	Sid       string         `json:"Sid,omitempty"`
	Effect    string         `json:"Effect"`
	Action    []string       `json:"Action"`
	Resource  []string       `json:"Resource,omitempty"`
	Principal map[string]any `json:"Principal,omitempty"`
	Condition map[string]any `json:"Condition,omitempty"`
}

// Document is a complete IAM policy document.
type Document struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

// LintError reports a statement that is overly broad or malformed.
type LintError struct {
	Index  int
	Reason string
}

func (e *LintError) Error() string {
	return fmt.Sprintf("iam policy statement %d: %s", e.Index, e.Reason)
}

// New builds a document from statements.
func New(statements ...Statement) Document {
	return Document{Version: Version, Statement: statements}
}

// Lint rejects documents that would grant more than intended: empty
// documents, statements without actions, unknown effects, and the
// wildcard-action-on-wildcard-resource combination that amounts to
// AdministratorAccess.
func (d Document) Lint() error {
	if len(d.Statement) == 0 {
		return &LintError{Index: 0, Reason: "document has no statements"}
	}
	for i, stmt := range d.Statement {
		if stmt.Effect != "Allow" && stmt.Effect != "Deny" {
			return &LintError{Index: i, Reason: fmt.Sprintf("effect must be Allow or Deny, got %q", stmt.Effect)}
		}
		if len(stmt.Action) == 0 {
			return &LintError{Index: i, Reason: "statement has no actions"}
		}
		if stmt.Effect == "Allow" && containsWildcard(stmt.Action) && (len(stmt.Resource) == 0 || containsWildcard(stmt.Resource)) && stmt.Principal == nil {
			return &LintError{Index: i, Reason: "allows * actions on * resources"}
		}
	}
	return nil
}

func containsWildcard(values []string) bool {
	for _, v := range values {
		if v == "*" {
			return true
		}
	}
	return false
}

// JSON lints the document and marshals it for use in role and policy args.
func (d Document) JSON() (string, error) {
	if err := d.Lint(); err != nil {
		return "", err
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// AssumeRolePolicy is the trust policy allowing the given service
// principals to assume a role, the shape every EC2 instance role here uses.
func AssumeRolePolicy(services ...string) Document {
	principals := make([]any, 0, len(services))
	for _, s := range services {
		principals = append(principals, s)
	}
	return New(Statement{
		Effect: "Allow",
		Action: []string{"sts:AssumeRole"},
		Principal: map[string]any{
			"Service": principals,
		},
	})
}
