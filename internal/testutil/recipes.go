package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/recipekit/pkg/core"
)

// SampleRecipe returns a valid three-node recipe: source -> processor -> output.
func SampleRecipe() *core.Recipe {
	return &core.Recipe{
		Name:        "Demand forecast",
		Description: "Daily sales into a forecast table",
		Nodes: []core.Node{
			{
				ID:       "src",
				Type:     core.KindDataSource,
				Position: core.Position{X: 0, Y: 0},
				Data:     core.NodeData{Label: "Sales", Config: map[string]any{"source": "postgres", "query": "select * from sales"}},
			},
			{
				ID:       "clean",
				Type:     core.KindProcessor,
				Position: core.Position{X: 200, Y: 0},
				Data:     core.NodeData{Label: "Clean", Config: map[string]any{"operation": "filter"}},
			},
			{
				ID:       "sink",
				Type:     core.KindOutput,
				Position: core.Position{X: 400, Y: 0},
				Data:     core.NodeData{Label: "Forecast", Config: map[string]any{"destination": "warehouse"}},
			},
		},
		Edges: []core.Edge{
			{ID: "e1", Source: "src", Target: "clean", Animated: true},
			{ID: "e2", Source: "clean", Target: "sink", Animated: true},
		},
	}
}

// WriteRecipe writes r as JSON to dir/name and returns the path.
func WriteRecipe(t testing.TB, dir, name string, r *core.Recipe) string {
	t.Helper()
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		t.Fatalf("failed to encode recipe: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("failed to write recipe %s: %v", path, err)
	}
	return path
}
