package recipe

import (
	"testing"

	"github.com/leapstack-labs/recipekit/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(findings []core.Finding) []string {
	out := make([]string, len(findings))
	for i, f := range findings {
		out[i] = f.Code
	}
	return out
}

func TestLint_CleanRecipe(t *testing.T) {
	r := &core.Recipe{
		Nodes: []core.Node{
			node("src", core.KindDataSource),
			{ID: "out", Type: core.KindOutput, Data: core.NodeData{Config: map[string]any{"destination": "s3://bucket"}}},
		},
		Edges: []core.Edge{edge("src", "out")},
	}

	assert.Empty(t, Lint(r))
}

func TestLint_Findings(t *testing.T) {
	r := &core.Recipe{
		Nodes: []core.Node{
			node("src", core.KindDataSource),
			node("a", core.KindProcessor),
			node("b", core.KindProcessor),
			{ID: "cond", Type: core.KindConditional, Data: core.NodeData{Config: map[string]any{"condition": "score >"}}},
			{ID: "q", Type: core.KindQuantum, Data: core.NodeData{Config: map[string]any{"qubits": map[string]any{"n": 1}}}},
			node("out", core.KindOutput),
			node("a", core.KindProcessor),
		},
		Edges: []core.Edge{
			edge("a", "b"),
			edge("b", "a"),
			edge("src", "src"),
			edge("src", "ghost"),
		},
	}

	got := codes(Lint(r))

	for _, want := range []string{
		CodeBadCondition,
		CodeCycle,
		CodeDanglingEdge,
		CodeDuplicateID,
		CodeEmptyDestination,
		CodeInvalidConfig,
		CodeSelfLoop,
		CodeUnreachableSink,
	} {
		assert.Contains(t, got, want)
	}
	assert.IsIncreasing(t, dedupe(got), "findings should be sorted by code")
}

func dedupe(in []string) []string {
	var out []string
	for _, s := range in {
		if len(out) == 0 || out[len(out)-1] != s {
			out = append(out, s)
		}
	}
	return out
}

func TestCheckCondition(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{expr: "True"},
		{expr: `score > 0.5 and region == "eu"`},
		{expr: "len(items) > 0"},
		{expr: "", wantErr: true},
		{expr: "score >", wantErr: true},
		{expr: "x = 1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			err := CheckCondition(tt.expr)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestPlan(t *testing.T) {
	r := &core.Recipe{
		Nodes: []core.Node{
			node("src", core.KindDataSource),
			node("ai", core.KindAIModel),
			node("out", core.KindOutput),
		},
		Edges: []core.Edge{edge("src", "ai"), edge("ai", "out")},
	}

	levels, err := Plan(r)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"src"}, {"ai"}, {"out"}}, levels)

	r.Edges = append(r.Edges, edge("out", "src"))
	_, err = Plan(r)
	assert.Error(t, err)
}
