package core

import (
	"context"
	"fmt"
	"strings"
)

// OptimizationLevel tells the compile service how hard to optimize.
type OptimizationLevel string

// Optimization levels accepted by the compile endpoint.
const (
	OptimizationBasic      OptimizationLevel = "basic"
	OptimizationOptimized  OptimizationLevel = "optimized"
	OptimizationAggressive OptimizationLevel = "aggressive"
)

// DefaultOptimizationLevel is used when no level is configured.
const DefaultOptimizationLevel = OptimizationOptimized

// Valid reports whether the level is one the endpoint accepts.
func (l OptimizationLevel) Valid() bool {
	switch l {
	case OptimizationBasic, OptimizationOptimized, OptimizationAggressive:
		return true
	}
	return false
}

// ParseOptimizationLevel converts a string to an OptimizationLevel.
func ParseOptimizationLevel(s string) (OptimizationLevel, error) {
	l := OptimizationLevel(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("invalid optimization level %q (want basic, optimized or aggressive)", s)
	}
	return l, nil
}

// TargetRuntime is the runtime the compiled recipe is generated for.
type TargetRuntime string

// Target runtimes accepted by the compile endpoint.
const (
	RuntimePython     TargetRuntime = "python"
	RuntimeJavaScript TargetRuntime = "javascript"
	RuntimeQuantum    TargetRuntime = "quantum"
)

// DefaultTargetRuntime is used when no runtime is configured.
const DefaultTargetRuntime = RuntimePython

// Valid reports whether the runtime is one the endpoint accepts.
func (r TargetRuntime) Valid() bool {
	switch r {
	case RuntimePython, RuntimeJavaScript, RuntimeQuantum:
		return true
	}
	return false
}

// ParseTargetRuntime converts a string to a TargetRuntime.
func ParseTargetRuntime(s string) (TargetRuntime, error) {
	r := TargetRuntime(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("invalid target runtime %q (want python, javascript or quantum)", s)
	}
	return r, nil
}

// CompileSettings are the transport-level knobs sent with every compile request.
type CompileSettings struct {
	OptimizationLevel OptimizationLevel `json:"optimization_level" koanf:"optimization_level"`
	TargetRuntime     TargetRuntime     `json:"target_runtime" koanf:"target_runtime"`
}

// DefaultCompileSettings returns the settings the editor starts with.
func DefaultCompileSettings() CompileSettings {
	return CompileSettings{
		OptimizationLevel: DefaultOptimizationLevel,
		TargetRuntime:     DefaultTargetRuntime,
	}
}

// WithDefaults fills unset fields.
func (s CompileSettings) WithDefaults() CompileSettings {
	if s.OptimizationLevel == "" {
		s.OptimizationLevel = DefaultOptimizationLevel
	}
	if s.TargetRuntime == "" {
		s.TargetRuntime = DefaultTargetRuntime
	}
	return s
}

// FlowMetadata carries recipe identity and the view-state snapshot.
type FlowMetadata struct {
	RecipeID    string         `json:"recipe_id,omitempty"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Viewport    Viewport       `json:"viewport"`
	Attributes  map[string]any `json:"attributes,omitempty"`
}

// FlowDefinition is the graph as sent to the compile service.
type FlowDefinition struct {
	Nodes    []Node       `json:"nodes"`
	Edges    []Edge       `json:"edges"`
	Metadata FlowMetadata `json:"metadata"`
}

// CompileRequest is the body of POST /api/recipes/compile.
type CompileRequest struct {
	FlowDefinition    FlowDefinition    `json:"flow_definition"`
	OptimizationLevel OptimizationLevel `json:"optimization_level"`
	TargetRuntime     TargetRuntime     `json:"target_runtime"`
}

// NewCompileRequest builds a request from a recipe, a view snapshot and settings.
func NewCompileRequest(r *Recipe, view Viewport, settings CompileSettings) *CompileRequest {
	settings = settings.WithDefaults()
	nodes := CloneNodes(r.Nodes)
	edges := append([]Edge(nil), r.Edges...)
	if edges == nil {
		edges = []Edge{}
	}
	return &CompileRequest{
		FlowDefinition: FlowDefinition{
			Nodes: nodes,
			Edges: edges,
			Metadata: FlowMetadata{
				RecipeID:    r.ID,
				Name:        r.Name,
				Description: r.Description,
				Viewport:    view,
				Attributes:  r.Metadata,
			},
		},
		OptimizationLevel: settings.OptimizationLevel,
		TargetRuntime:     settings.TargetRuntime,
	}
}

// CompiledRecipe is the 2xx response body of the compile endpoint.
type CompiledRecipe struct {
	RecipeID          string         `json:"recipe_id"`
	CompiledCode      string         `json:"compiled_code"`
	ExecutionPlan     map[string]any `json:"execution_plan"`
	EstimatedCost     float64        `json:"estimated_cost"`
	EstimatedDuration float64        `json:"estimated_duration"`
	Warnings          []string       `json:"warnings"`
}

// CostString formats the estimated cost with two decimals.
func (c *CompiledRecipe) CostString() string {
	return fmt.Sprintf("%.2f", c.EstimatedCost)
}

// Compiler turns a compile request into a compiled recipe.
// Implementations must honour ctx cancellation and must not retry.
type Compiler interface {
	Compile(ctx context.Context, req *CompileRequest) (*CompiledRecipe, error)
}

// CompilerFunc adapts a function to the Compiler interface.
type CompilerFunc func(ctx context.Context, req *CompileRequest) (*CompiledRecipe, error)

// Compile calls f.
func (f CompilerFunc) Compile(ctx context.Context, req *CompileRequest) (*CompiledRecipe, error) {
	return f(ctx, req)
}
