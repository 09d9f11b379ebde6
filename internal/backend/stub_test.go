package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/recipekit/internal/api"
	"github.com/leapstack-labs/recipekit/pkg/core"
)

func stubRecipe(extra ...core.Node) *core.Recipe {
	r := &core.Recipe{
		ID:   "r-1",
		Name: "Demand",
		Nodes: []core.Node{
			{ID: "src", Type: core.KindDataSource},
			{ID: "proc", Type: core.KindProcessor},
			{ID: "out", Type: core.KindOutput},
		},
		Edges: []core.Edge{
			{ID: "e1", Source: "src", Target: "proc"},
			{ID: "e2", Source: "proc", Target: "out"},
		},
	}
	r.Nodes = append(r.Nodes, extra...)
	return r
}

func newStubServer(t *testing.T, b QuantumBackend) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	NewStubCompileHandler(b, nil).Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestStubCompile(t *testing.T) {
	srv := newStubServer(t, nil)
	client := api.New(srv.URL, nil)

	req := core.NewCompileRequest(stubRecipe(), core.Viewport{}, core.CompileSettings{
		OptimizationLevel: core.OptimizationBasic,
		TargetRuntime:     core.RuntimeJavaScript,
	})
	res, err := client.Compile(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "r-1", res.RecipeID)
	assert.Equal(t, "0.75", res.CostString())
	assert.InDelta(t, 4.5, res.EstimatedDuration, 1e-9)
	assert.Contains(t, res.CompiledCode, "// recipe: Demand")
	assert.Contains(t, res.CompiledCode, "await dataSource_src();")
	assert.Less(t, strings.Index(res.CompiledCode, "dataSource_src"), strings.Index(res.CompiledCode, "output_out"))
	assert.Equal(t, "javascript", res.ExecutionPlan["runtime"])
	assert.Len(t, res.ExecutionPlan["levels"], 3)
	assert.NotNil(t, res.Warnings)
}

func TestStubCompile_Quantum(t *testing.T) {
	f := NewFixture()
	f.Now = func() time.Time { return time.UnixMilli(42) }
	srv := newStubServer(t, f)

	r := stubRecipe(core.Node{ID: "q", Type: core.KindQuantum, Data: core.NodeData{
		Config: map[string]any{"qubits": 128, "shots": "500"},
	}})
	r.Edges = append(r.Edges, core.Edge{ID: "e3", Source: "proc", Target: "q"}, core.Edge{ID: "e4", Source: "q", Target: "out"})

	req := core.NewCompileRequest(r, core.Viewport{}, core.CompileSettings{TargetRuntime: core.RuntimeQuantum})
	res, err := api.New(srv.URL, nil).Compile(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"q": "job_42"}, res.ExecutionPlan["jobs"])
	require.Len(t, f.Jobs(), 1)
	assert.Equal(t, 128, f.Jobs()[0].Qubits)
	assert.Equal(t, 500, f.Jobs()[0].Shots)
}

func TestStubCompile_Rejections(t *testing.T) {
	failing := NewFixture()
	failing.Err = errors.New("no capacity")

	cyclic := stubRecipe()
	cyclic.Edges = append(cyclic.Edges, core.Edge{ID: "back", Source: "out", Target: "src"})

	tests := []struct {
		name    string
		backend QuantumBackend
		body    func() []byte
		status  int
	}{
		{
			name:   "malformed json",
			body:   func() []byte { return []byte("{") },
			status: http.StatusBadRequest,
		},
		{
			name: "unknown runtime",
			body: func() []byte {
				req := core.NewCompileRequest(stubRecipe(), core.Viewport{}, core.CompileSettings{})
				req.TargetRuntime = "cobol"
				b, _ := json.Marshal(req)
				return b
			},
			status: http.StatusBadRequest,
		},
		{
			name: "invalid recipe",
			body: func() []byte {
				b, _ := json.Marshal(core.NewCompileRequest(&core.Recipe{}, core.Viewport{}, core.CompileSettings{}))
				return b
			},
			status: http.StatusUnprocessableEntity,
		},
		{
			name: "cycle",
			body: func() []byte {
				b, _ := json.Marshal(core.NewCompileRequest(cyclic, core.Viewport{}, core.CompileSettings{}))
				return b
			},
			status: http.StatusUnprocessableEntity,
		},
		{
			name:    "backend failure",
			backend: failing,
			body: func() []byte {
				r := stubRecipe(core.Node{ID: "q", Type: core.KindQuantum})
				r.Edges = append(r.Edges, core.Edge{ID: "e3", Source: "q", Target: "out"})
				b, _ := json.Marshal(core.NewCompileRequest(r, core.Viewport{}, core.CompileSettings{TargetRuntime: core.RuntimeQuantum}))
				return b
			},
			status: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewStubCompileHandler(tt.backend, nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/recipes/compile", bytes.NewReader(tt.body())))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}
