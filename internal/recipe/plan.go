package recipe

import (
	"fmt"

	"github.com/leapstack-labs/recipekit/internal/dag"
	"github.com/leapstack-labs/recipekit/pkg/core"
)

// Plan groups the recipe's nodes into execution levels.
// Malformed edges are ignored; cycles are an error.
func Plan(r *core.Recipe) ([][]string, error) {
	g, _ := dag.FromRecipe(r.Nodes, r.Edges)
	levels, err := g.ExecutionLevels()
	if err != nil {
		return nil, fmt.Errorf("cannot plan recipe: %w", err)
	}
	return levels, nil
}
