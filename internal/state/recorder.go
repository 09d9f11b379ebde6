package state

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/recipekit/pkg/core"
)

// RecordingCompiler records a compile run for every request that names a
// stored recipe, then delegates to the wrapped compiler. Store failures are
// logged and never fail the compile.
type RecordingCompiler struct {
	Next   core.Compiler
	Store  core.Store
	Logger *slog.Logger
}

// Compile implements core.Compiler.
func (c *RecordingCompiler) Compile(ctx context.Context, req *core.CompileRequest) (*core.CompiledRecipe, error) {
	recipeID := req.FlowDefinition.Metadata.RecipeID
	if recipeID == "" || c.Store == nil {
		return c.Next.Compile(ctx, req)
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	run, err := c.Store.CreateCompileRun(ctx, recipeID, core.CompileSettings{
		OptimizationLevel: req.OptimizationLevel,
		TargetRuntime:     req.TargetRuntime,
	})
	if err != nil {
		logger.Warn("failed to record compile run", slog.String("recipe_id", recipeID), slog.String("error", err.Error()))
		return c.Next.Compile(ctx, req)
	}

	res, compileErr := c.Next.Compile(ctx, req)

	errMsg := ""
	if compileErr != nil {
		errMsg = compileErr.Error()
	}
	// The request context may already be cancelled; the outcome is still recorded.
	if err := c.Store.CompleteCompileRun(context.WithoutCancel(ctx), run.ID, res, errMsg); err != nil {
		logger.Warn("failed to complete compile run", slog.String("run_id", run.ID), slog.String("error", err.Error()))
	}
	return res, compileErr
}
