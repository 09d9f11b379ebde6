package dag

import (
	"testing"

	"github.com/leapstack-labs/recipekit/pkg/core"
)

func newGraph(ids ...string) *Graph {
	g := NewGraph()
	for _, id := range ids {
		g.AddNode(id, core.KindProcessor)
	}
	return g
}

func TestGraph_AddNodeAndEdge(t *testing.T) {
	g := newGraph("a", "b", "c")

	if g.NodeCount() != 3 {
		t.Errorf("expected 3 nodes, got %d", g.NodeCount())
	}
	if err := g.AddEdge("a", "b"); err != nil {
		t.Errorf("failed to add edge: %v", err)
	}
	if err := g.AddEdge("b", "c"); err != nil {
		t.Errorf("failed to add edge: %v", err)
	}
	if g.EdgeCount() != 2 {
		t.Errorf("expected 2 edges, got %d", g.EdgeCount())
	}
}

func TestGraph_AddEdge_InvalidNodes(t *testing.T) {
	g := newGraph("a")

	if err := g.AddEdge("a", "nonexistent"); err == nil {
		t.Error("expected error for nonexistent target node")
	}
	if err := g.AddEdge("nonexistent", "a"); err == nil {
		t.Error("expected error for nonexistent source node")
	}
}

func TestGraph_AddEdge_SelfLoop(t *testing.T) {
	g := newGraph("a")

	if err := g.AddEdge("a", "a"); err == nil {
		t.Error("expected error for self-loop")
	}
}

func TestGraph_DuplicateEdges(t *testing.T) {
	g := newGraph("a", "b")
	_ = g.AddEdge("a", "b")
	_ = g.AddEdge("a", "b")

	if g.EdgeCount() != 1 {
		t.Errorf("expected 1 edge (no duplicates), got %d", g.EdgeCount())
	}
}

func TestFromRecipe_CollectsProblems(t *testing.T) {
	nodes := []core.Node{
		{ID: "src", Type: core.KindDataSource},
		{ID: "out", Type: core.KindOutput},
	}
	edges := []core.Edge{
		{ID: "e1", Source: "src", Target: "out"},
		{ID: "e2", Source: "out", Target: "out"},
		{ID: "e3", Source: "src", Target: "ghost"},
	}

	g, problems := FromRecipe(nodes, edges)

	if g.EdgeCount() != 1 {
		t.Errorf("expected 1 edge, got %d", g.EdgeCount())
	}
	if len(problems) != 2 {
		t.Fatalf("expected 2 problems, got %d: %v", len(problems), problems)
	}
	if problems[0].EdgeID != "e2" || problems[1].EdgeID != "e3" {
		t.Errorf("unexpected problem order: %+v", problems)
	}
}

func TestGraph_HasCycle(t *testing.T) {
	tests := []struct {
		name      string
		edges     [][2]string
		wantCycle bool
	}{
		{name: "chain", edges: [][2]string{{"a", "b"}, {"b", "c"}}},
		{name: "triangle", edges: [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}}, wantCycle: true},
		{name: "two cycle", edges: [][2]string{{"a", "b"}, {"b", "a"}}, wantCycle: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGraph("a", "b", "c")
			for _, e := range tt.edges {
				if err := g.AddEdge(e[0], e[1]); err != nil {
					t.Fatalf("AddEdge: %v", err)
				}
			}
			hasCycle, path := g.HasCycle()
			if hasCycle != tt.wantCycle {
				t.Fatalf("HasCycle() = %v, want %v (path %v)", hasCycle, tt.wantCycle, path)
			}
			if tt.wantCycle && (len(path) < 2 || path[0] != path[len(path)-1]) {
				t.Errorf("cycle path should start and end on the same node, got %v", path)
			}
		})
	}
}

func TestGraph_TopologicalSort_Diamond(t *testing.T) {
	g := newGraph("a", "b", "c", "d")
	_ = g.AddEdge("a", "b")
	_ = g.AddEdge("a", "c")
	_ = g.AddEdge("b", "d")
	_ = g.AddEdge("c", "d")

	sorted, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("failed to sort: %v", err)
	}

	positions := make(map[string]int)
	for i, id := range sorted {
		positions[id] = i
	}
	if positions["a"] != 0 {
		t.Error("a should be first")
	}
	if positions["d"] != 3 {
		t.Error("d should be last")
	}
}

func TestGraph_TopologicalSort_WithCycle(t *testing.T) {
	g := newGraph("a", "b")
	_ = g.AddEdge("a", "b")
	_ = g.AddEdge("b", "a")

	if _, err := g.TopologicalSort(); err == nil {
		t.Error("expected error for cyclic graph")
	}
}

func TestGraph_ExecutionLevels(t *testing.T) {
	g := newGraph("raw1", "raw2", "clean1", "clean2", "sink")
	_ = g.AddEdge("raw1", "clean1")
	_ = g.AddEdge("raw2", "clean2")
	_ = g.AddEdge("clean1", "sink")
	_ = g.AddEdge("clean2", "sink")

	levels, err := g.ExecutionLevels()
	if err != nil {
		t.Fatalf("failed to get levels: %v", err)
	}
	if len(levels) != 3 {
		t.Fatalf("expected 3 levels, got %d", len(levels))
	}
	if len(levels[0]) != 2 || len(levels[1]) != 2 {
		t.Errorf("unexpected levels: %v", levels)
	}
	if len(levels[2]) != 1 || levels[2][0] != "sink" {
		t.Errorf("expected [sink] at level 2, got %v", levels[2])
	}
}

func TestGraph_ExecutionLevels_Empty(t *testing.T) {
	levels, err := NewGraph().ExecutionLevels()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(levels) != 0 {
		t.Errorf("expected no levels, got %v", levels)
	}
}

func TestGraph_DownstreamAndUpstream(t *testing.T) {
	g := newGraph("a", "b", "c", "d")
	_ = g.AddEdge("a", "b")
	_ = g.AddEdge("b", "c")

	down := g.Downstream("a")
	if len(down) != 3 {
		t.Errorf("expected 3 downstream nodes, got %v", down)
	}
	up := g.Upstream("c")
	if len(up) != 2 || up[0] != "a" || up[1] != "b" {
		t.Errorf("expected [a b] upstream of c, got %v", up)
	}
}

func TestGraph_RootsAndLeaves(t *testing.T) {
	g := newGraph("a", "b", "c")
	_ = g.AddEdge("a", "c")
	_ = g.AddEdge("b", "c")

	if roots := g.Roots(); len(roots) != 2 {
		t.Errorf("expected 2 roots, got %v", roots)
	}
	if leaves := g.Leaves(); len(leaves) != 1 || leaves[0] != "c" {
		t.Errorf("expected [c] leaves, got %v", leaves)
	}
}

func TestGraph_Unreachable(t *testing.T) {
	g := NewGraph()
	g.AddNode("src", core.KindDataSource)
	g.AddNode("out1", core.KindOutput)
	g.AddNode("out2", core.KindOutput)
	_ = g.AddEdge("src", "out1")

	got := g.Unreachable(core.KindDataSource, core.KindOutput)
	if len(got) != 1 || got[0] != "out2" {
		t.Errorf("expected [out2], got %v", got)
	}
}
