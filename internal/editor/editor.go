// Package editor holds the state of one pipeline-authoring session.
//
// An Editor owns a recipe graph (nodes, edges, selection, viewport) and the
// compile lifecycle around it. The lifecycle is an explicit state machine
// (see Transition); graph edits are accepted in every state, compiling is
// gated by recipe.Validate, and at most one compile request is outstanding.
//
// All methods are safe for concurrent use. Observers registered through
// Options.OnChange are called after every change, outside the editor lock.
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/leapstack-labs/recipekit/internal/catalog"
	"github.com/leapstack-labs/recipekit/internal/recipe"
	"github.com/leapstack-labs/recipekit/pkg/core"
)

// Alerter shows a blocking message to the user.
type Alerter interface {
	Alert(message string)
}

// AlertFunc adapts a function to the Alerter interface.
type AlertFunc func(message string)

// Alert calls f.
func (f AlertFunc) Alert(message string) { f(message) }

// Options configures an Editor.
type Options struct {
	// Compiler receives compile requests. Required for Compile.
	Compiler core.Compiler
	// Alerter surfaces compile failures. Failures are logged when nil.
	Alerter Alerter
	// Settings are sent with every compile request.
	Settings core.CompileSettings
	// OnCompile is called once per successful compile.
	OnCompile func(*core.CompiledRecipe)
	// OnSave persists the recipe. It may assign r.ID.
	OnSave func(ctx context.Context, r *core.Recipe) error
	// OnChange observes every state or graph change.
	OnChange func(Snapshot)
	// NewID generates node and edge ids. Defaults to prefix + "-" + uuid.
	NewID func(prefix string) string
	// Logger defaults to a discard logger.
	Logger *slog.Logger
}

// NodePatch is a partial update of a node's data. Nil fields are left alone.
type NodePatch struct {
	Label       *string        `json:"label,omitempty"`
	Description *string        `json:"description,omitempty"`
	Config      map[string]any `json:"config,omitempty"`
}

// Editor is one pipeline-authoring session.
type Editor struct {
	mu     sync.Mutex
	opts   Options
	logger *slog.Logger

	recipeID    string
	name        string
	description string
	metadata    map[string]any
	nodes       []core.Node
	edges       []core.Edge
	selected    string

	viewport  core.Viewport
	viewReady bool

	state   State
	result  *core.CompiledRecipe
	lastErr string
	seq     uint64 // bumped by every compile and every reset
}

// New creates an editor, optionally seeded with an initial recipe.
func New(opts Options, initial *core.Recipe) *Editor {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.NewID == nil {
		opts.NewID = func(prefix string) string { return prefix + "-" + uuid.NewString() }
	}
	opts.Settings = opts.Settings.WithDefaults()

	e := &Editor{
		opts:   opts,
		logger: opts.Logger,
	}
	e.resetLocked(initial)
	return e
}

// resetLocked replaces all editor state. The view readiness is kept: it
// belongs to the view, not to the recipe.
func (e *Editor) resetLocked(r *core.Recipe) {
	e.recipeID = ""
	e.name = core.DefaultRecipeName
	e.description = ""
	e.metadata = nil
	e.nodes = []core.Node{}
	e.edges = []core.Edge{}
	if r != nil {
		r = r.Clone()
		e.recipeID = r.ID
		if r.Name != "" {
			e.name = r.Name
		}
		e.description = r.Description
		e.metadata = r.Metadata
		if r.Nodes != nil {
			e.nodes = r.Nodes
		}
		if r.Edges != nil {
			e.edges = r.Edges
		}
	}
	e.selected = ""
	e.result = nil
	e.lastErr = ""
	e.state = StateEditing
	e.seq++
}

// fire applies an event to the state machine. Callers hold the lock.
func (e *Editor) fire(ev Event) error {
	next, err := Transition(e.state, ev)
	if err != nil {
		return err
	}
	if next != e.state {
		e.logger.Debug("editor state change",
			slog.String("from", e.state.String()),
			slog.String("to", next.String()),
			slog.String("event", ev.String()))
	}
	e.state = next
	return nil
}

// edited records a graph edit. Callers hold the lock.
func (e *Editor) edited() {
	// Every state accepts EventEdited
	_ = e.fire(EventEdited)
}

// commit releases the lock and notifies observers.
func (e *Editor) commit() {
	snap := e.snapshotLocked()
	e.mu.Unlock()
	if e.opts.OnChange != nil {
		e.opts.OnChange(snap)
	}
}

// State returns the current lifecycle state.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Settings returns the compile settings.
func (e *Editor) Settings() core.CompileSettings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts.Settings
}

// SetSettings replaces the compile settings used by the next compile.
func (e *Editor) SetSettings(s core.CompileSettings) error {
	s = s.WithDefaults()
	if !s.OptimizationLevel.Valid() {
		return fmt.Errorf("invalid optimization level %q", s.OptimizationLevel)
	}
	if !s.TargetRuntime.Valid() {
		return fmt.Errorf("invalid target runtime %q", s.TargetRuntime)
	}
	e.mu.Lock()
	e.opts.Settings = s
	e.commit()
	return nil
}

// SetViewport records the view's pan/zoom and marks the view ready for drops.
func (e *Editor) SetViewport(v core.Viewport) {
	e.mu.Lock()
	e.viewport = v
	e.viewReady = true
	e.commit()
}

// SetName renames the recipe.
func (e *Editor) SetName(name string) {
	e.mu.Lock()
	e.name = name
	e.edited()
	e.commit()
}

// SetDescription sets the recipe description.
func (e *Editor) SetDescription(description string) {
	e.mu.Lock()
	e.description = description
	e.edited()
	e.commit()
}

// Drop places a node from a drag payload at a screen position.
// The graph is left untouched when the token names no template or the view
// has not reported its viewport yet.
func (e *Editor) Drop(token string, screen core.Position) (core.Node, error) {
	tmpl, ok := catalog.Lookup(token)
	if !ok {
		e.logger.Debug("ignoring drop", slog.String("token", token), slog.String("reason", "unknown node type"))
		return core.Node{}, fmt.Errorf("%w: %q", ErrUnknownNodeType, token)
	}

	e.mu.Lock()
	if !e.viewReady {
		e.mu.Unlock()
		e.logger.Debug("ignoring drop", slog.String("token", token), slog.String("reason", "view not ready"))
		return core.Node{}, ErrViewNotReady
	}
	n := e.addNodeLocked(tmpl.Kind, e.viewport.Project(screen))
	e.commit()
	return n, nil
}

// AddNode places a node of the given kind at a flow position.
func (e *Editor) AddNode(kind core.NodeKind, pos core.Position) (core.Node, error) {
	if !kind.Valid() {
		return core.Node{}, fmt.Errorf("%w: %d", ErrUnknownNodeType, int(kind))
	}
	e.mu.Lock()
	n := e.addNodeLocked(kind, pos)
	e.commit()
	return n, nil
}

func (e *Editor) addNodeLocked(kind core.NodeKind, pos core.Position) core.Node {
	n := core.Node{
		ID:       e.opts.NewID(kind.String()),
		Type:     kind,
		Position: pos,
		Data:     catalog.NewNodeData(kind),
	}
	e.nodes = append(e.nodes, n)
	e.edited()
	return n
}

// Connect appends an edge. Any node may connect to any other, itself included.
func (e *Editor) Connect(c core.Connection) core.Edge {
	e.mu.Lock()
	edge := core.Edge{
		ID:           e.opts.NewID("edge"),
		Source:       c.Source,
		Target:       c.Target,
		SourceHandle: c.SourceHandle,
		TargetHandle: c.TargetHandle,
		Animated:     true,
	}
	e.edges = append(e.edges, edge)
	e.edited()
	e.commit()
	return edge
}

// MoveNode sets a node's flow position.
func (e *Editor) MoveNode(id string, pos core.Position) error {
	e.mu.Lock()
	i := e.indexLocked(id)
	if i < 0 {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	e.nodes[i].Position = pos
	e.edited()
	e.commit()
	return nil
}

// UpdateNode applies a patch to a node's data.
func (e *Editor) UpdateNode(id string, patch NodePatch) error {
	e.mu.Lock()
	i := e.indexLocked(id)
	if i < 0 {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if patch.Label != nil {
		e.nodes[i].Data.Label = *patch.Label
	}
	if patch.Description != nil {
		e.nodes[i].Data.Description = *patch.Description
	}
	if patch.Config != nil {
		e.nodes[i].Data.Config = maps.Clone(patch.Config)
	}
	e.edited()
	e.commit()
	return nil
}

// RemoveNodes deletes nodes and every edge touching them.
// It returns the number of nodes removed.
func (e *Editor) RemoveNodes(ids ...string) int {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	e.mu.Lock()
	before := len(e.nodes)
	e.nodes = slices.DeleteFunc(e.nodes, func(n core.Node) bool { return drop[n.ID] })
	removed := before - len(e.nodes)
	if removed == 0 {
		e.mu.Unlock()
		return 0
	}
	e.edges = slices.DeleteFunc(e.edges, func(ed core.Edge) bool {
		return drop[ed.Source] || drop[ed.Target]
	})
	if drop[e.selected] {
		e.selected = ""
	}
	e.edited()
	e.commit()
	return removed
}

// RemoveEdges deletes edges by id and returns how many were removed.
func (e *Editor) RemoveEdges(ids ...string) int {
	e.mu.Lock()
	before := len(e.edges)
	e.edges = slices.DeleteFunc(e.edges, func(ed core.Edge) bool { return slices.Contains(ids, ed.ID) })
	removed := before - len(e.edges)
	if removed == 0 {
		e.mu.Unlock()
		return 0
	}
	e.edited()
	e.commit()
	return removed
}

// Select marks a node as selected.
func (e *Editor) Select(id string) error {
	e.mu.Lock()
	if e.indexLocked(id) < 0 {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	e.selected = id
	e.commit()
	return nil
}

// ClearSelection deselects any selected node.
func (e *Editor) ClearSelection() {
	e.mu.Lock()
	e.selected = ""
	e.commit()
}

// Validate returns the compile-gate errors for the current graph.
func (e *Editor) Validate() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return recipe.Validate(e.nodes, e.edges)
}

// Recipe returns a copy of the recipe being edited.
func (e *Editor) Recipe() *core.Recipe {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recipeLocked()
}

func (e *Editor) recipeLocked() *core.Recipe {
	r := &core.Recipe{
		ID:          e.recipeID,
		Name:        e.name,
		Description: e.description,
		Nodes:       e.nodes,
		Edges:       e.edges,
		Metadata:    e.metadata,
	}
	return r.Clone()
}

// Clear resets the editor to an empty, untitled recipe.
// An outstanding compile result will be discarded when it arrives.
func (e *Editor) Clear() {
	e.Reset(nil)
}

// Reset replaces the editor contents with r (or an empty recipe when nil).
func (e *Editor) Reset(r *core.Recipe) {
	e.mu.Lock()
	_ = e.fire(EventCleared)
	e.resetLocked(r)
	e.commit()
}

// Save hands a copy of the recipe to the save hook. An id assigned by the
// hook is adopted by the editor.
func (e *Editor) Save(ctx context.Context) (*core.Recipe, error) {
	if e.opts.OnSave == nil {
		return nil, ErrNoSaveHook
	}
	r := e.Recipe()
	if err := e.opts.OnSave(ctx, r); err != nil {
		return nil, fmt.Errorf("save recipe: %w", err)
	}

	e.mu.Lock()
	if e.recipeID == "" && r.ID != "" {
		e.recipeID = r.ID
	}
	e.commit()
	return r, nil
}

func (e *Editor) indexLocked(id string) int {
	return slices.IndexFunc(e.nodes, func(n core.Node) bool { return n.ID == id })
}
