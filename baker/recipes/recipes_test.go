package recipes

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitodl/ol-infrastructure-sub004/baker"
)

func TestCatalogRecipesAllValidate(t *testing.T) {
	for name, recipe := range All() {
		assert.NoError(t, recipe.Validate(), name)
		var buf bytes.Buffer
		assert.NoError(t, recipe.WritePlan(&buf), name)
	}
}

func TestNamesSorted(t *testing.T) {
	names := Names()
	require.NotEmpty(t, names)
	for i := 1; i < len(names); i++ {
		assert.LessOrEqual(t, names[i-1], names[i])
	}
}

func TestConsulServerConfigCarriesDatacenter(t *testing.T) {
	recipe := ConsulServer("operations-production")

	var file *baker.WriteFile
	for _, step := range recipe.Steps {
		if wf, ok := step.(baker.WriteFile); ok {
			file = &wf
			break
		}
	}
	require.NotNil(t, file)
	assert.Contains(t, file.Content, `"datacenter": "operations-production"`)
	assert.Contains(t, file.Content, "tag_value=operations-production")
}

func TestConcourseWorkerPinsVersion(t *testing.T) {
	recipe := ConcourseWorker("7.11.0")

	var dl *baker.Download
	for _, step := range recipe.Steps {
		if d, ok := step.(baker.Download); ok {
			dl = &d
			break
		}
	}
	require.NotNil(t, dl)
	assert.True(t, strings.Contains(dl.URL, "v7.11.0"))
}
