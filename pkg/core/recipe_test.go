package core_test

import (
	"testing"

	"github.com/leapstack-labs/recipekit/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewportProject(t *testing.T) {
	tests := []struct {
		name   string
		view   core.Viewport
		screen core.Position
		want   core.Position
	}{
		{"identity", core.Viewport{Zoom: 1}, core.Position{X: 10, Y: 20}, core.Position{X: 10, Y: 20}},
		{"zero zoom treated as one", core.Viewport{}, core.Position{X: 10, Y: 20}, core.Position{X: 10, Y: 20}},
		{"offset", core.Viewport{X: 100, Y: 50, Zoom: 1}, core.Position{X: 150, Y: 80}, core.Position{X: 50, Y: 30}},
		{"zoomed", core.Viewport{X: 100, Y: 50, Zoom: 2}, core.Position{X: 300, Y: 250}, core.Position{X: 100, Y: 100}},
		{"zoomed out", core.Viewport{Zoom: 0.5}, core.Position{X: 10, Y: -10}, core.Position{X: 20, Y: -20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.view.Project(tt.screen))
		})
	}
}

func TestRecipeClone(t *testing.T) {
	original := &core.Recipe{
		ID:   "r1",
		Name: "Demand forecast",
		Nodes: []core.Node{
			{ID: "a", Type: core.KindDataSource, Data: core.NodeData{Label: "Sales", Config: map[string]any{"table": "sales"}}},
			{ID: "b", Type: core.KindOutput},
		},
		Edges:    []core.Edge{{ID: "e1", Source: "a", Target: "b"}},
		Metadata: map[string]any{"owner": "ops"},
	}

	clone := original.Clone()
	require.Equal(t, original, clone)

	clone.Nodes[0].Data.Config["table"] = "orders"
	clone.Nodes[1].Data.Label = "changed"
	clone.Edges[0].Target = "a"
	clone.Metadata["owner"] = "finance"

	assert.Equal(t, "sales", original.Nodes[0].Data.Config["table"])
	assert.Empty(t, original.Nodes[1].Data.Label)
	assert.Equal(t, "b", original.Edges[0].Target)
	assert.Equal(t, "ops", original.Metadata["owner"])
}

func TestRecipeCloneNil(t *testing.T) {
	var r *core.Recipe
	assert.Nil(t, r.Clone())

	empty := (&core.Recipe{Name: "x"}).Clone()
	assert.NotNil(t, empty.Edges)
	assert.Empty(t, empty.Nodes)
}

func TestNodeByID(t *testing.T) {
	r := &core.Recipe{Nodes: []core.Node{{ID: "a"}, {ID: "b", Type: core.KindOutput}}}

	n, ok := r.NodeByID("b")
	require.True(t, ok)
	assert.Equal(t, core.KindOutput, n.Type)

	_, ok = r.NodeByID("zzz")
	assert.False(t, ok)
}
