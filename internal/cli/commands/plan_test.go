package commands

import (
	"encoding/json"
	"testing"

	"github.com/leapstack-labs/recipekit/internal/cli/output"
	rootutil "github.com/leapstack-labs/recipekit/internal/testutil"
	"github.com/leapstack-labs/recipekit/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanCommand_JSON(t *testing.T) {
	_, path := setupProject(t, "http://localhost:1")

	stdout, _, err := execute(t, NewPlanCommand(), path)
	require.NoError(t, err)

	var plan output.PlanOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &plan))
	assert.Equal(t, "Demand forecast", plan.Name)

	ids := make([][]string, 0, len(plan.Levels))
	for _, level := range plan.Levels {
		var row []string
		for _, step := range level {
			row = append(row, step.ID)
		}
		ids = append(ids, row)
	}
	assert.Equal(t, [][]string{{"src"}, {"clean"}, {"sink"}}, ids)
	assert.Equal(t, "output", plan.Levels[2][0].Type)
	assert.Equal(t, "Forecast", plan.Levels[2][0].Label)
}

func TestPlanCommand_Cycle(t *testing.T) {
	dir, _ := setupProject(t, "http://localhost:1")

	rc := rootutil.SampleRecipe()
	rc.Edges = append(rc.Edges, core.Edge{ID: "back", Source: "sink", Target: "src"})
	path := rootutil.WriteRecipe(t, dir, "cycle.json", rc)

	_, _, err := execute(t, NewPlanCommand(), path)
	assert.Error(t, err)
}

func TestPlanCommand_Markdown(t *testing.T) {
	_, path := setupProject(t, "http://localhost:1", "markdown")

	stdout, _, err := execute(t, NewPlanCommand(), path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "# Plan: Demand forecast")
	assert.Contains(t, stdout, "## Level 0")
	assert.Contains(t, stdout, "`src` Sales (dataSource)")
}
