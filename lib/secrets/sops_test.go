package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `
database:
  username: admin
  password: hunter2
vault:
  address: https://vault.example.com
replicas: 3
`

func TestDecodeReturnsMapping(t *testing.T) {
	doc, err := Decode("app.yaml", []byte(sampleDoc))
	require.NoError(t, err)
	assert.Contains(t, doc, "database")
	assert.Contains(t, doc, "vault")
}

func TestDecodeRejectsNonMappingDocuments(t *testing.T) {
	for _, plaintext := range []string{"- a\n- b\n", "just a scalar\n"} {
		_, err := Decode("app.yaml", []byte(plaintext))
		var derr *DecodeError
		assert.ErrorAs(t, err, &derr, plaintext)
	}
}

func TestDecodeRejectsMalformedYAML(t *testing.T) {
	_, err := Decode("app.yaml", []byte("key: [unterminated"))
	var derr *DecodeError
	assert.ErrorAs(t, err, &derr)
}

func TestStringLookup(t *testing.T) {
	doc, err := Decode("app.yaml", []byte(sampleDoc))
	require.NoError(t, err)

	password, err := String(doc, "database.password")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", password)

	_, err = String(doc, "database.port")
	assert.Error(t, err)

	_, err = String(doc, "replicas")
	assert.Error(t, err) // present but not a string

	_, err = String(doc, "replicas.count")
	assert.Error(t, err) // traversal through a scalar
}
