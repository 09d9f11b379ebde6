// Package catalog is the palette of node templates the editor can place.
//
// Each core.NodeKind has exactly one Template. The template supplies the
// default node data for a drop, the typed config schema used by lint, and the
// terminal render style. Lookups go through the kind, never through free-form
// strings, except for Lookup which validates a drag payload token.
package catalog

import (
	"maps"

	"github.com/leapstack-labs/recipekit/pkg/core"
)

// Category groups templates in the palette.
type Category string

// Palette categories.
const (
	CategoryInput   Category = "input"
	CategoryCompute Category = "compute"
	CategoryFlow    Category = "flow"
	CategoryOutput  Category = "output"
)

// Style is how a node kind is drawn by terminal renderers.
type Style struct {
	Glyph string
	Color string // lipgloss color (ANSI 256 index)
}

// Template describes one placeable node kind.
type Template struct {
	Kind          core.NodeKind  `json:"type"`
	Label         string         `json:"label"`
	Icon          string         `json:"icon"`
	Description   string         `json:"description"`
	Category      Category       `json:"category"`
	DefaultConfig map[string]any `json:"default_config"`
	Style         Style          `json:"-"`
}

// templates is indexed by core.NodeKind.
var templates = [...]Template{
	core.KindDataSource: {
		Kind:        core.KindDataSource,
		Label:       "Data Source",
		Icon:        "database",
		Description: "Reads records from a database, file or API",
		Category:    CategoryInput,
		DefaultConfig: map[string]any{
			"source": "postgres",
			"query":  "",
		},
		Style: Style{Glyph: "◉", Color: "33"},
	},
	core.KindProcessor: {
		Kind:        core.KindProcessor,
		Label:       "Processor",
		Icon:        "cpu",
		Description: "Filters, maps or aggregates records",
		Category:    CategoryCompute,
		DefaultConfig: map[string]any{
			"operation": "transform",
		},
		Style: Style{Glyph: "▣", Color: "214"},
	},
	core.KindAIModel: {
		Kind:        core.KindAIModel,
		Label:       "AI Model",
		Icon:        "brain",
		Description: "Runs inference with a hosted model",
		Category:    CategoryCompute,
		DefaultConfig: map[string]any{
			"model":       "gpt-4",
			"temperature": 0.7,
			"max_tokens":  1024,
		},
		Style: Style{Glyph: "✦", Color: "171"},
	},
	core.KindQuantum: {
		Kind:        core.KindQuantum,
		Label:       "Quantum Optimizer",
		Icon:        "atom",
		Description: "Submits an optimization job to a quantum annealer",
		Category:    CategoryCompute,
		DefaultConfig: map[string]any{
			"algorithm": "qubo",
			"qubits":    64,
			"shots":     1000,
		},
		Style: Style{Glyph: "⚛", Color: "45"},
	},
	core.KindOutput: {
		Kind:        core.KindOutput,
		Label:       "Output",
		Icon:        "upload",
		Description: "Writes results to a destination",
		Category:    CategoryOutput,
		DefaultConfig: map[string]any{
			"format":      "json",
			"destination": "",
		},
		Style: Style{Glyph: "▶", Color: "42"},
	},
	core.KindConditional: {
		Kind:        core.KindConditional,
		Label:       "Conditional",
		Icon:        "git-branch",
		Description: "Routes records by a boolean expression",
		Category:    CategoryFlow,
		DefaultConfig: map[string]any{
			"condition": "True",
		},
		Style: Style{Glyph: "◆", Color: "203"},
	},
	core.KindIntegration: {
		Kind:        core.KindIntegration,
		Label:       "Integration",
		Icon:        "plug",
		Description: "Calls a third-party service",
		Category:    CategoryFlow,
		DefaultConfig: map[string]any{
			"service":  "webhook",
			"endpoint": "",
			"method":   "POST",
		},
		Style: Style{Glyph: "⇄", Color: "248"},
	},
}

// Lookup resolves a drag payload token to its template.
func Lookup(token string) (Template, bool) {
	kind, ok := core.ParseNodeKind(token)
	if !ok {
		return Template{}, false
	}
	return ByKind(kind), true
}

// ByKind returns the template for a kind. Invalid kinds yield a zero Template.
func ByKind(kind core.NodeKind) Template {
	if !kind.Valid() {
		return Template{}
	}
	return templates[kind]
}

// All returns every template in palette order.
func All() []Template {
	out := make([]Template, len(templates))
	copy(out, templates[:])
	return out
}

// NewNodeData returns fresh node data for a kind with its own config copy.
func NewNodeData(kind core.NodeKind) core.NodeData {
	t := ByKind(kind)
	return core.NodeData{
		Label:       t.Label,
		Icon:        t.Icon,
		Description: t.Description,
		Config:      maps.Clone(t.DefaultConfig),
	}
}
