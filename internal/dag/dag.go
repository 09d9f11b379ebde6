// Package dag provides directed graph operations over recipe nodes.
// It supports cycle detection, topological ordering and execution levels.
// Graphs are built from recipes as the editor stores them, so construction
// tolerates the malformed edges the editor allows and reports them instead.
package dag

import (
	"fmt"
	"slices"
	"sort"

	"github.com/leapstack-labs/recipekit/pkg/core"
)

// Node is a vertex of the graph.
type Node struct {
	// ID is the recipe node id
	ID string
	// Kind is the recipe node kind
	Kind core.NodeKind
}

// Graph is a directed graph of recipe nodes.
type Graph struct {
	nodes   map[string]*Node
	edges   map[string][]string // source -> targets (downstream)
	parents map[string][]string // target -> sources (upstream)
}

// EdgeProblem describes an edge that could not be added to the graph.
type EdgeProblem struct {
	EdgeID string
	Source string
	Target string
	Err    error
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[string]*Node),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// FromRecipe builds a graph from a recipe's nodes and edges.
// Edges that cannot be represented (self-loops, unknown endpoints) are
// skipped and returned as problems.
func FromRecipe(nodes []core.Node, edges []core.Edge) (*Graph, []EdgeProblem) {
	g := NewGraph()
	for _, n := range nodes {
		g.AddNode(n.ID, n.Type)
	}

	var problems []EdgeProblem
	for _, e := range edges {
		if err := g.AddEdge(e.Source, e.Target); err != nil {
			problems = append(problems, EdgeProblem{
				EdgeID: e.ID,
				Source: e.Source,
				Target: e.Target,
				Err:    err,
			})
		}
	}
	return g, problems
}

// AddNode adds a node to the graph, updating the kind if it already exists.
func (g *Graph) AddNode(id string, kind core.NodeKind) {
	if n, exists := g.nodes[id]; exists {
		n.Kind = kind
		return
	}
	g.nodes[id] = &Node{ID: id, Kind: kind}
	g.edges[id] = []string{}
	g.parents[id] = []string{}
}

// AddEdge adds a directed edge from source to target.
func (g *Graph) AddEdge(sourceID, targetID string) error {
	if _, exists := g.nodes[sourceID]; !exists {
		return fmt.Errorf("source node %q does not exist", sourceID)
	}
	if _, exists := g.nodes[targetID]; !exists {
		return fmt.Errorf("target node %q does not exist", targetID)
	}
	if sourceID == targetID {
		return fmt.Errorf("self-loop detected: %s", sourceID)
	}

	// Parallel edges collapse into one
	if !slices.Contains(g.edges[sourceID], targetID) {
		g.edges[sourceID] = append(g.edges[sourceID], targetID)
	}
	if !slices.Contains(g.parents[targetID], sourceID) {
		g.parents[targetID] = append(g.parents[targetID], sourceID)
	}
	return nil
}

// GetNode returns a node by ID.
func (g *Graph) GetNode(id string) (*Node, bool) {
	node, exists := g.nodes[id]
	return node, exists
}

// GetParents returns the direct upstream nodes of a node.
func (g *Graph) GetParents(id string) []string {
	return g.parents[id]
}

// GetChildren returns the direct downstream nodes of a node.
func (g *Graph) GetChildren(id string) []string {
	return g.edges[id]
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of distinct edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

// sortedIDs returns all node ids in ascending order.
func (g *Graph) sortedIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HasCycle returns true if the graph contains a cycle, along with the cycle path.
// The path starts and ends with the same node.
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make(map[string]string)

	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		recStack[id] = true

		for _, childID := range g.edges[id] {
			if !visited[childID] {
				path[childID] = id
				if dfs(childID) {
					return true
				}
			} else if recStack[childID] {
				cyclePath = []string{childID}
				for curr := id; curr != childID; curr = path[curr] {
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append([]string{childID}, cyclePath...)
				return true
			}
		}

		recStack[id] = false
		return false
	}

	for _, id := range g.sortedIDs() {
		if !visited[id] && dfs(id) {
			return true, cyclePath
		}
	}
	return false, nil
}

// TopologicalSort returns node ids with every source before its targets.
func (g *Graph) TopologicalSort() ([]string, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("cycle detected: %v", cyclePath)
	}

	visited := make(map[string]bool)
	result := make([]string, 0, len(g.nodes))

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, parentID := range g.parents[id] {
			visit(parentID)
		}
		result = append(result, id)
	}

	for _, id := range g.sortedIDs() {
		visit(id)
	}
	return result, nil
}

// ExecutionLevels groups nodes by execution level.
// Level 0 holds nodes with no upstream; a node at level N runs after all of
// level N-1 completes.
func (g *Graph) ExecutionLevels() ([][]string, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("cycle detected: %v", cyclePath)
	}
	if len(g.nodes) == 0 {
		return [][]string{}, nil
	}

	assigned := make(map[string]int)

	var getLevel func(id string) int
	getLevel = func(id string) int {
		if level, ok := assigned[id]; ok {
			return level
		}
		level := 0
		for _, parentID := range g.parents[id] {
			if pl := getLevel(parentID) + 1; pl > level {
				level = pl
			}
		}
		assigned[id] = level
		return level
	}

	maxLevel := 0
	for id := range g.nodes {
		if level := getLevel(id); level > maxLevel {
			maxLevel = level
		}
	}

	levels := make([][]string, maxLevel+1)
	for i := range levels {
		levels[i] = []string{}
	}
	for id, level := range assigned {
		levels[level] = append(levels[level], id)
	}
	for i := range levels {
		sort.Strings(levels[i])
	}
	return levels, nil
}

// Downstream returns the given nodes and everything reachable from them.
func (g *Graph) Downstream(ids ...string) []string {
	seen := make(map[string]bool)

	var mark func(id string)
	mark = func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		for _, childID := range g.edges[id] {
			mark(childID)
		}
	}

	for _, id := range ids {
		if _, exists := g.nodes[id]; exists {
			mark(id)
		}
	}
	return sortedKeys(seen)
}

// Upstream returns every node the given node transitively depends on.
func (g *Graph) Upstream(id string) []string {
	seen := make(map[string]bool)

	var mark func(nodeID string)
	mark = func(nodeID string) {
		for _, parentID := range g.parents[nodeID] {
			if !seen[parentID] {
				seen[parentID] = true
				mark(parentID)
			}
		}
	}
	mark(id)
	return sortedKeys(seen)
}

// Roots returns nodes with no upstream.
func (g *Graph) Roots() []string {
	var roots []string
	for _, id := range g.sortedIDs() {
		if len(g.parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

// Leaves returns nodes with no downstream.
func (g *Graph) Leaves() []string {
	var leaves []string
	for _, id := range g.sortedIDs() {
		if len(g.edges[id]) == 0 {
			leaves = append(leaves, id)
		}
	}
	return leaves
}

// Unreachable returns nodes of the given kind that cannot be reached from
// any node of the from kind.
func (g *Graph) Unreachable(from, kind core.NodeKind) []string {
	var starts []string
	for _, id := range g.sortedIDs() {
		if g.nodes[id].Kind == from {
			starts = append(starts, id)
		}
	}
	reached := make(map[string]bool)
	for _, id := range g.Downstream(starts...) {
		reached[id] = true
	}

	var out []string
	for _, id := range g.sortedIDs() {
		if g.nodes[id].Kind == kind && !reached[id] {
			out = append(out, id)
		}
	}
	return out
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
