package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/recipekit/internal/cli/output"
	"github.com/leapstack-labs/recipekit/internal/recipe"
	rootutil "github.com/leapstack-labs/recipekit/internal/testutil"
	"github.com/leapstack-labs/recipekit/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()

	noOutput := rootutil.SampleRecipe()
	noOutput.Nodes = noOutput.Nodes[:2]
	noOutput.Edges = noOutput.Edges[:1]

	cyclic := rootutil.SampleRecipe()
	cyclic.Edges = append(cyclic.Edges, core.Edge{ID: "back", Source: "sink", Target: "src"})

	tests := []struct {
		name       string
		path       string
		wantValid  bool
		wantErrors []string
		wantCodes  []string
	}{
		{
			name:      "valid",
			path:      rootutil.WriteRecipe(t, dir, "ok.json", rootutil.SampleRecipe()),
			wantValid: true,
		},
		{
			name:       "missing output",
			path:       rootutil.WriteRecipe(t, dir, "no-output.json", noOutput),
			wantErrors: []string{recipe.MsgNoOutput},
		},
		{
			name:      "cycle is a finding, not an error",
			path:      rootutil.WriteRecipe(t, dir, "cycle.json", cyclic),
			wantValid: true,
			wantCodes: []string{recipe.CodeCycle},
		},
		{
			name:       "missing file",
			path:       filepath.Join(dir, "absent.json"),
			wantErrors: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := validateFile(tt.path)
			assert.Equal(t, tt.wantValid, res.Valid)
			if tt.wantValid {
				assert.Empty(t, res.Errors)
			} else {
				assert.NotEmpty(t, res.Errors)
			}
			for _, msg := range tt.wantErrors {
				assert.Contains(t, res.Errors, msg)
			}
			codes := make([]string, 0, len(res.Findings))
			for _, f := range res.Findings {
				codes = append(codes, f.Code)
			}
			for _, code := range tt.wantCodes {
				assert.Contains(t, codes, code)
			}
		})
	}
}

func TestValidateCommand_JSON(t *testing.T) {
	dir, path := setupProject(t, "http://localhost:1")

	bad := rootutil.SampleRecipe()
	bad.Nodes = bad.Nodes[1:]
	bad.Edges = bad.Edges[1:]
	badPath := rootutil.WriteRecipe(t, dir, "bad.json", bad)

	stdout, stderr, err := execute(t, NewValidateCommand(), path, badPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")
	assert.NotContains(t, stdout, "Usage:")
	assert.NotContains(t, stderr, "Usage:")

	var results []output.ValidateOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &results))
	require.Len(t, results, 2)
	assert.True(t, results[0].Valid)
	assert.False(t, results[1].Valid)
	assert.Equal(t, []string{recipe.MsgNoDataSource}, results[1].Errors)
}

func TestValidateCommand_Markdown(t *testing.T) {
	_, path := setupProject(t, "http://localhost:1", "markdown")

	stdout, _, err := execute(t, NewValidateCommand(), path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "# Validation")
	assert.Contains(t, stdout, "(valid)")
}

func TestValidateCommand_YAML(t *testing.T) {
	dir, _ := setupProject(t, "http://localhost:1")

	path := filepath.Join(dir, "recipes", "forecast.yaml")
	require.NoError(t, recipe.Save(path, rootutil.SampleRecipe()))
	_, err := os.Stat(path)
	require.NoError(t, err)

	_, _, err = execute(t, NewValidateCommand(), path)
	assert.NoError(t, err)
}
