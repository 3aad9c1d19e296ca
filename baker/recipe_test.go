package baker

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func debianBase() BaseImage {
	return BaseImage{NamePattern: "debian-12-amd64-*", Owner: "136693071363"}
}

func TestRecipeWritePlanPreservesStepOrder(t *testing.T) {
	recipe := Recipe{
		Name: "consul",
		Base: debianBase(),
		Steps: []Step{
			InstallPackages{Packages: []string{"consul"}, Update: true},
			WriteFile{Path: "/etc/consul.d/server.json", Content: "{}", Mode: "0644"},
			Systemd{Unit: "consul.service", Enabled: true},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, recipe.WritePlan(&buf))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.EqualValues(t, 1, doc["version"])
	assert.Equal(t, "consul", doc["name"])

	steps := doc["steps"].([]any)
	require.Len(t, steps, 3)
	ops := make([]string, 0, 3)
	for _, s := range steps {
		ops = append(ops, s.(map[string]any)["op"].(string))
	}
	assert.Equal(t, []string{"install_packages", "write_file", "systemd"}, ops)

	second := steps[1].(map[string]any)["spec"].(map[string]any)
	assert.Equal(t, "/etc/consul.d/server.json", second["path"])
}

func TestRecipeValidateReportsOffendingStep(t *testing.T) {
	recipe := Recipe{
		Name: "vault",
		Base: debianBase(),
		Steps: []Step{
			InstallPackages{Packages: []string{"vault"}},
			WriteFile{Path: "relative/path"},
		},
	}

	err := recipe.Validate()
	var rerr *RecipeError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "vault", rerr.Recipe)
	assert.Equal(t, 1, rerr.Index)
}

func TestRecipeValidateShape(t *testing.T) {
	assert.Error(t, Recipe{}.Validate())
	assert.Error(t, Recipe{Name: "x", Base: debianBase()}.Validate())
	assert.Error(t, Recipe{
		Name:  "x",
		Base:  BaseImage{NamePattern: "debian-*"},
		Steps: []Step{RunCommand{Command: "true"}},
	}.Validate())
}

func TestStepValidation(t *testing.T) {
	assert.Error(t, InstallPackages{}.Validate())
	assert.Error(t, InstallPackages{Packages: []string{""}}.Validate())
	assert.Error(t, Download{URL: "https://example.com/x", Dest: "x"}.Validate())
	assert.Error(t, Download{Dest: "/usr/local/bin/x"}.Validate())
	assert.Error(t, Systemd{}.Validate())
	assert.Error(t, RunCommand{}.Validate())
	assert.NoError(t, Download{URL: "https://example.com/x", Dest: "/usr/local/bin/x"}.Validate())
}
