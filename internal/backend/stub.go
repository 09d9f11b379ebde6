package backend

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/leapstack-labs/recipekit/internal/api"
	"github.com/leapstack-labs/recipekit/internal/catalog"
	"github.com/leapstack-labs/recipekit/internal/dag"
	"github.com/leapstack-labs/recipekit/internal/recipe"
	"github.com/leapstack-labs/recipekit/pkg/core"
)

// Per-node cost and duration units of the canned estimate.
const (
	nodeCost        = 0.25
	quantumNodeCost = 2.5
	levelDuration   = 1.5
)

var optimizationFactor = map[core.OptimizationLevel]float64{
	core.OptimizationBasic:      1.0,
	core.OptimizationOptimized:  0.8,
	core.OptimizationAggressive: 0.6,
}

// StubCompileHandler answers the compile endpoint with canned output derived
// from the request graph. It is a development stand-in for the real compile
// service; the generated code only lists the execution order.
type StubCompileHandler struct {
	Backend QuantumBackend
	Logger  *slog.Logger
}

// NewStubCompileHandler returns a handler backed by b. A nil b uses a
// default Fixture.
func NewStubCompileHandler(b QuantumBackend, logger *slog.Logger) *StubCompileHandler {
	if b == nil {
		b = NewFixture()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &StubCompileHandler{Backend: b, Logger: logger}
}

// Routes mounts the handler on a chi router at the compile path.
func (h *StubCompileHandler) Routes(r chi.Router) {
	r.Post(api.PathCompile, h.ServeHTTP)
}

// ServeHTTP implements http.Handler.
func (h *StubCompileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req core.CompileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid compile request: "+err.Error(), http.StatusBadRequest)
		return
	}

	res, status, err := h.compile(r, &req)
	if err != nil {
		h.Logger.Debug("stub compile rejected", slog.Int("status", status), slog.String("error", err.Error()))
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}

func (h *StubCompileHandler) compile(r *http.Request, req *core.CompileRequest) (*core.CompiledRecipe, int, error) {
	settings := core.CompileSettings{
		OptimizationLevel: req.OptimizationLevel,
		TargetRuntime:     req.TargetRuntime,
	}.WithDefaults()
	if !settings.OptimizationLevel.Valid() || !settings.TargetRuntime.Valid() {
		return nil, http.StatusBadRequest, fmt.Errorf("unsupported settings %s/%s", settings.OptimizationLevel, settings.TargetRuntime)
	}

	flow := req.FlowDefinition
	if errs := recipe.Validate(flow.Nodes, flow.Edges); len(errs) > 0 {
		return nil, http.StatusUnprocessableEntity, fmt.Errorf("%s", strings.Join(errs, " "))
	}

	g, problems := dag.FromRecipe(flow.Nodes, flow.Edges)
	levels, err := g.ExecutionLevels()
	if err != nil {
		return nil, http.StatusUnprocessableEntity, err
	}

	rc := &core.Recipe{
		ID:          flow.Metadata.RecipeID,
		Name:        flow.Metadata.Name,
		Description: flow.Metadata.Description,
		Nodes:       flow.Nodes,
		Edges:       flow.Edges,
	}
	var warnings []string
	for _, p := range problems {
		warnings = append(warnings, fmt.Sprintf("edge %s skipped: %v", p.EdgeID, p.Err))
	}
	for _, f := range recipe.Lint(rc) {
		if f.Severity != core.SeverityError {
			warnings = append(warnings, f.Message)
		}
	}
	if warnings == nil {
		warnings = []string{}
	}

	plan := map[string]any{
		"runtime": string(settings.TargetRuntime),
		"levels":  levels,
	}

	cost := 0.0
	for _, n := range flow.Nodes {
		if n.Type == core.KindQuantum {
			cost += quantumNodeCost
		} else {
			cost += nodeCost
		}
	}
	cost *= optimizationFactor[settings.OptimizationLevel]

	if settings.TargetRuntime == core.RuntimeQuantum {
		jobs, err := h.submitQuantum(r, rc)
		if err != nil {
			return nil, http.StatusBadGateway, fmt.Errorf("quantum backend: %w", err)
		}
		plan["jobs"] = jobs
	}

	recipeID := rc.ID
	if recipeID == "" {
		recipeID = uuid.NewString()
	}

	return &core.CompiledRecipe{
		RecipeID:          recipeID,
		CompiledCode:      render(settings.TargetRuntime, rc, levels),
		ExecutionPlan:     plan,
		EstimatedCost:     cost,
		EstimatedDuration: float64(len(levels)) * levelDuration,
		Warnings:          warnings,
	}, http.StatusOK, nil
}

// submitQuantum submits one job per quantum node and returns node id -> job id.
func (h *StubCompileHandler) submitQuantum(r *http.Request, rc *core.Recipe) (map[string]string, error) {
	jobs := make(map[string]string)
	for _, n := range rc.Nodes {
		if n.Type != core.KindQuantum {
			continue
		}
		spec := JobSpec{RecipeID: rc.ID, Params: n.Data.Config}
		if cfg, err := catalog.DecodeConfig(n.Type, n.Data.Config); err == nil {
			q := cfg.(*catalog.QuantumConfig)
			spec.Qubits, spec.Shots = q.Qubits, q.Shots
		}
		id, err := h.Backend.SubmitJob(r.Context(), spec)
		if err != nil {
			return nil, err
		}
		h.Logger.Debug("submitted quantum job", slog.String("node", n.ID), slog.String("job", id))
		jobs[n.ID] = id
	}
	return jobs, nil
}

// render writes a listing of the execution order in the target language.
func render(rt core.TargetRuntime, rc *core.Recipe, levels [][]string) string {
	comment, call := "#", "%s()"
	if rt == core.RuntimeJavaScript {
		comment, call = "//", "await %s();"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s recipe: %s\n", comment, rc.Name)
	for i, level := range levels {
		fmt.Fprintf(&b, "%s stage %d\n", comment, i+1)
		for _, id := range level {
			n, _ := rc.NodeByID(id)
			fmt.Fprintf(&b, call+"\n", stepName(n))
		}
	}
	return b.String()
}

func stepName(n core.Node) string {
	var b strings.Builder
	b.WriteString(n.Type.String())
	b.WriteByte('_')
	for _, r := range n.ID {
		if r == '-' || r == ' ' || r == '.' {
			r = '_'
		}
		b.WriteRune(r)
	}
	return b.String()
}
