package editor

import (
	"github.com/leapstack-labs/recipekit/internal/recipe"
	"github.com/leapstack-labs/recipekit/pkg/core"
)

// Snapshot is a consistent, copied view of an editor.
type Snapshot struct {
	State        State                `json:"state"`
	Recipe       *core.Recipe         `json:"recipe"`
	SelectedNode *core.Node           `json:"selected_node"`
	Viewport     core.Viewport        `json:"viewport"`
	ViewReady    bool                 `json:"view_ready"`
	Errors       []string             `json:"validation_errors"`
	Result       *core.CompiledRecipe `json:"compilation_result"`
	LastError    string               `json:"last_error,omitempty"`
	Settings     core.CompileSettings `json:"settings"`
}

// IsCompiling reports whether a compile request is outstanding.
func (s Snapshot) IsCompiling() bool {
	return s.State == StateCompiling
}

// Snapshot returns a copy of the editor state.
func (e *Editor) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Editor) snapshotLocked() Snapshot {
	r := e.recipeLocked()
	s := Snapshot{
		State:     e.state,
		Recipe:    r,
		Viewport:  e.viewport,
		ViewReady: e.viewReady,
		Errors:    recipe.Validate(r.Nodes, r.Edges),
		Result:    e.result,
		LastError: e.lastErr,
		Settings:  e.opts.Settings,
	}
	if e.selected != "" {
		if n, ok := r.NodeByID(e.selected); ok {
			s.SelectedNode = &n
		}
	}
	return s
}
