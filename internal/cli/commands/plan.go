package commands

import (
	"fmt"

	"github.com/leapstack-labs/recipekit/internal/cli/output"
	"github.com/leapstack-labs/recipekit/internal/recipe"
	"github.com/leapstack-labs/recipekit/pkg/core"
	"github.com/spf13/cobra"
)

// NewPlanCommand creates the plan command.
func NewPlanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <recipe>",
		Short: "Show the execution levels of a recipe",
		Long: `Group a recipe's nodes into execution levels: every node runs after
all nodes it depends on. Nodes in the same level are independent.

Edges that reference unknown nodes are ignored; a cycle is an error.`,
		Example: `  recipekit plan recipes/forecast.json
  recipekit plan recipes/forecast.yaml --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, args[0])
		},
	}
	return cmd
}

func runPlan(cmd *cobra.Command, path string) error {
	r := NewCommandContext(cmd).Renderer

	rc, err := recipe.Load(path)
	if err != nil {
		return err
	}
	levels, err := recipe.Plan(rc)
	if err != nil {
		return err
	}

	out := output.PlanOutput{File: path, Name: rc.Name, Levels: make([][]output.PlanStep, 0, len(levels))}
	for _, level := range levels {
		steps := make([]output.PlanStep, 0, len(level))
		for _, id := range level {
			n, _ := rc.NodeByID(id)
			steps = append(steps, output.PlanStep{ID: id, Type: n.Type.String(), Label: n.Data.Label})
		}
		out.Levels = append(out.Levels, steps)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Plan: "+rc.Name))
		for i, steps := range out.Levels {
			r.Println("")
			r.Println(output.FormatHeader(2, fmt.Sprintf("Level %d", i)))
			items := make([]string, 0, len(steps))
			for _, s := range steps {
				items = append(items, fmt.Sprintf("`%s` %s (%s)", s.ID, s.Label, s.Type))
			}
			r.Println(output.FormatList(items))
		}
	default:
		planText(r, rc, levels)
	}
	return nil
}

func planText(r *output.Renderer, rc *core.Recipe, levels [][]string) {
	styles := r.Styles()
	r.Header(1, "Plan: "+rc.Name)
	for i, level := range levels {
		r.Println("")
		r.Println(styles.Header2.Render(fmt.Sprintf("Level %d", i)))
		for _, id := range level {
			n, _ := rc.NodeByID(id)
			r.Printf("  %s %s %s\n", nodeGlyph(r, n.Type), nodeLabel(n), styles.Muted.Render(output.Title(n.Type.String())))
		}
	}
	r.Println("")
	nodes := 0
	for _, level := range levels {
		nodes += len(level)
	}
	r.Muted(fmt.Sprintf("%d node(s) in %d level(s)", nodes, len(levels)))
}
