package output

import "github.com/leapstack-labs/recipekit/pkg/core"

// NodeTypeInfo is one palette entry in `nodes` output.
type NodeTypeInfo struct {
	Type        string         `json:"type"`
	Label       string         `json:"label"`
	Icon        string         `json:"icon"`
	Category    string         `json:"category"`
	Description string         `json:"description"`
	Config      map[string]any `json:"default_config,omitempty"`
}

// NodesOutput is the JSON shape of `nodes`.
type NodesOutput struct {
	Nodes []NodeTypeInfo `json:"nodes"`
}

// ValidateOutput is the JSON shape of `validate` for one file.
type ValidateOutput struct {
	File     string         `json:"file"`
	Valid    bool           `json:"valid"`
	Errors   []string       `json:"validation_errors"`
	Findings []core.Finding `json:"findings"`
}

// PlanOutput is the JSON shape of `plan`.
type PlanOutput struct {
	File   string       `json:"file"`
	Name   string       `json:"name"`
	Levels [][]PlanStep `json:"levels"`
}

// PlanStep is one node within an execution level.
type PlanStep struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Label string `json:"label"`
}

// CompileOutput is the JSON shape of `compile`.
type CompileOutput struct {
	File     string               `json:"file"`
	Settings core.CompileSettings `json:"settings"`
	Result   *core.CompiledRecipe `json:"result"`
}

// RecipeListOutput is the JSON shape of `recipes list`.
type RecipeListOutput struct {
	Recipes []core.RecipeSummary `json:"recipes"`
}

// RecipeShowOutput is the JSON shape of `recipes show`.
type RecipeShowOutput struct {
	Recipe *core.Recipe       `json:"recipe"`
	Runs   []*core.CompileRun `json:"runs"`
}
