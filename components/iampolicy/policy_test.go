package iampolicy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentJSONShape(t *testing.T) {
	doc := New(Statement{
		Sid:      "ReadParameters",
		Effect:   "Allow",
		Action:   []string{"ssm:GetParameters"},
		Resource: []string{"arn:aws:ssm:us-east-1:123456789012:parameter/vault/*"},
	})

	raw, err := doc.JSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Equal(t, Version, decoded["Version"])

	statements := decoded["Statement"].([]any)
	require.Len(t, statements, 1)
	first := statements[0].(map[string]any)
	assert.Equal(t, "Allow", first["Effect"])
	assert.Equal(t, []any{"ssm:GetParameters"}, first["Action"])
	// trust-policy-only fields stay out of identity policies
	_, hasPrincipal := first["Principal"]
	assert.False(t, hasPrincipal)
}

func TestLintRejectsAdminAccessShape(t *testing.T) {
	doc := New(Statement{Effect: "Allow", Action: []string{"*"}, Resource: []string{"*"}})

	err := doc.Lint()
	var lerr *LintError
	require.ErrorAs(t, err, &lerr)
	assert.Contains(t, lerr.Reason, "* actions on * resources")

	// wildcard actions on a scoped resource pass
	scoped := New(Statement{Effect: "Allow", Action: []string{"*"}, Resource: []string{"arn:aws:s3:::one-bucket"}})
	assert.NoError(t, scoped.Lint())
}

func TestLintRejectsEmptyAndMalformedStatements(t *testing.T) {
	var lerr *LintError
	require.ErrorAs(t, New().Lint(), &lerr)

	err := New(Statement{Effect: "allow", Action: []string{"s3:GetObject"}}).Lint()
	require.ErrorAs(t, err, &lerr)
	assert.Contains(t, lerr.Reason, "Allow or Deny")

	err = New(Statement{Effect: "Allow"}).Lint()
	require.ErrorAs(t, err, &lerr)
	assert.Contains(t, lerr.Reason, "no actions")
}

func TestAssumeRolePolicy(t *testing.T) {
	doc := AssumeRolePolicy("ec2.amazonaws.com", "ssm.amazonaws.com")
	raw, err := doc.JSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	first := decoded["Statement"].([]any)[0].(map[string]any)
	principal := first["Principal"].(map[string]any)
	assert.Equal(t, []any{"ec2.amazonaws.com", "ssm.amazonaws.com"}, principal["Service"])
}
