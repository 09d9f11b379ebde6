package core

import (
	"maps"
	"time"
)

// DefaultRecipeName is the name an empty editor starts with.
const DefaultRecipeName = "Untitled Recipe"

// Position is a point in flow coordinates.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Viewport is the pan/zoom state of the graph view.
type Viewport struct {
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
	Zoom float64 `json:"zoom" yaml:"zoom"`
}

// Project converts a screen position into flow coordinates.
// A zero zoom is treated as 1.
func (v Viewport) Project(screen Position) Position {
	zoom := v.Zoom
	if zoom == 0 {
		zoom = 1
	}
	return Position{
		X: (screen.X - v.X) / zoom,
		Y: (screen.Y - v.Y) / zoom,
	}
}

// NodeData is the user-editable payload of a node.
type NodeData struct {
	Label       string         `json:"label" yaml:"label"`
	Icon        string         `json:"icon,omitempty" yaml:"icon,omitempty"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Config      map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// Node is one block on the canvas.
type Node struct {
	ID       string   `json:"id" yaml:"id"`
	Type     NodeKind `json:"type" yaml:"type"`
	Position Position `json:"position" yaml:"position"`
	Data     NodeData `json:"data" yaml:"data"`
}

// Edge is a directed connection between two nodes.
type Edge struct {
	ID           string `json:"id" yaml:"id"`
	Source       string `json:"source" yaml:"source"`
	Target       string `json:"target" yaml:"target"`
	SourceHandle string `json:"sourceHandle,omitempty" yaml:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty" yaml:"targetHandle,omitempty"`
	Animated     bool   `json:"animated,omitempty" yaml:"animated,omitempty"`
}

// Connection describes an edge the user is drawing, before it gets an id.
type Connection struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Recipe is the serialized graph a user edits.
type Recipe struct {
	ID          string         `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Nodes       []Node         `json:"nodes" yaml:"nodes"`
	Edges       []Edge         `json:"edges" yaml:"edges"`
	Metadata    map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// NodeByID returns the node with the given id.
func (r *Recipe) NodeByID(id string) (Node, bool) {
	for _, n := range r.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Clone returns a deep copy of the recipe. Config maps are copied one level deep.
func (r *Recipe) Clone() *Recipe {
	if r == nil {
		return nil
	}
	out := &Recipe{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Nodes:       CloneNodes(r.Nodes),
		Edges:       append([]Edge(nil), r.Edges...),
		Metadata:    maps.Clone(r.Metadata),
	}
	if out.Edges == nil {
		out.Edges = []Edge{}
	}
	return out
}

// CloneNodes copies a node slice including each node's config map.
func CloneNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		n.Data.Config = maps.Clone(n.Data.Config)
		out[i] = n
	}
	return out
}

// RecipeSummary is the listing view of a stored recipe.
type RecipeSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	NodeCount   int       `json:"node_count"`
	EdgeCount   int       `json:"edge_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}
