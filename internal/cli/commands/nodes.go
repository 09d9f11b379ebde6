package commands

import (
	"fmt"
	"maps"

	"github.com/leapstack-labs/recipekit/internal/catalog"
	"github.com/leapstack-labs/recipekit/internal/cli/output"
	"github.com/leapstack-labs/recipekit/pkg/core"
	"github.com/spf13/cobra"
)

// NewNodesCommand creates the nodes command.
func NewNodesCommand() *cobra.Command {
	var showConfig bool

	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "List the node types a recipe can use",
		Long: `List the palette of node types with their wire token, category and
default configuration.

The type column is the token used in recipe files and drag payloads.`,
		Example: `  # Show the palette
  recipekit nodes

  # Include default config
  recipekit nodes --defaults

  # As JSON
  recipekit nodes --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runNodes(cmd, showConfig)
		},
	}

	cmd.Flags().BoolVar(&showConfig, "defaults", false, "Include default node config")
	return cmd
}

func runNodes(cmd *cobra.Command, showConfig bool) error {
	r := NewCommandContext(cmd).Renderer
	templates := catalog.All()

	switch r.EffectiveMode() {
	case output.ModeJSON:
		out := output.NodesOutput{Nodes: make([]output.NodeTypeInfo, 0, len(templates))}
		for _, t := range templates {
			info := output.NodeTypeInfo{
				Type:        t.Kind.String(),
				Label:       t.Label,
				Icon:        t.Icon,
				Category:    string(t.Category),
				Description: t.Description,
			}
			if showConfig {
				info.Config = maps.Clone(t.DefaultConfig)
			}
			out.Nodes = append(out.Nodes, info)
		}
		return r.JSON(out)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Node Types"))
		r.Println("")
	default:
		r.Header(1, fmt.Sprintf("Node Types (%d)", len(templates)))
	}

	header := []string{"", "Type", "Label", "Category", "Description"}
	if showConfig {
		header = append(header, "Default Config")
	}
	rows := make([][]string, 0, len(templates))
	for _, t := range templates {
		row := []string{nodeGlyph(r, t.Kind), t.Kind.String(), t.Label, string(t.Category), t.Description}
		if showConfig {
			row = append(row, formatConfig(t.DefaultConfig))
		}
		rows = append(rows, row)
	}
	r.Table(header, rows)
	return nil
}

// nodeGlyph renders the kind's glyph in its palette color.
func nodeGlyph(r *output.Renderer, kind core.NodeKind) string {
	style := catalog.ByKind(kind).Style
	return r.Styles().Color(style.Color).Render(style.Glyph)
}
