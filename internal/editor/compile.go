package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/recipekit/internal/recipe"
	"github.com/leapstack-labs/recipekit/pkg/core"
)

// Compile validates the recipe and, when it passes, sends it to the compiler.
//
// Validation failures are returned as *ValidationError without contacting the
// compiler. A compile already in flight makes Compile return
// ErrCompileInProgress. A result that arrives after Clear or Reset is dropped
// and reported as ErrCompileSuperseded. Compiler failures are alerted once and
// returned wrapped; the editor goes back to editing either way.
func (e *Editor) Compile(ctx context.Context) (*core.CompiledRecipe, error) {
	e.mu.Lock()
	if e.opts.Compiler == nil {
		e.mu.Unlock()
		return nil, ErrNoCompiler
	}
	// A failed compile is still in flight until its alert has been shown.
	if e.state == StateCompiling || e.state == StateCompileFailed {
		e.mu.Unlock()
		return nil, ErrCompileInProgress
	}
	if err := e.fire(EventCompileRequested); err != nil {
		e.mu.Unlock()
		return nil, err
	}

	if errs := recipe.Validate(e.nodes, e.edges); len(errs) > 0 {
		_ = e.fire(EventValidationFailed)
		e.commit()
		return nil, &ValidationError{Errors: errs}
	}

	_ = e.fire(EventValidationPassed)
	e.result = nil
	e.lastErr = ""
	e.seq++
	seq := e.seq
	req := core.NewCompileRequest(e.recipeLocked(), e.viewport, e.opts.Settings)
	compiler := e.opts.Compiler
	e.commit()

	e.logger.Info("compiling recipe",
		slog.String("recipe", req.FlowDefinition.Metadata.Name),
		slog.Int("nodes", len(req.FlowDefinition.Nodes)),
		slog.Int("edges", len(req.FlowDefinition.Edges)),
		slog.String("runtime", string(req.TargetRuntime)))

	res, err := compiler.Compile(ctx, req)
	if err == nil && res == nil {
		err = errors.New("compiler returned no result")
	}

	e.mu.Lock()
	if e.seq != seq {
		e.mu.Unlock()
		e.logger.Debug("discarding superseded compile result", slog.Uint64("seq", seq))
		return nil, ErrCompileSuperseded
	}

	if err != nil {
		_ = e.fire(EventCompileFailed)
		e.lastErr = err.Error()
		e.commit()

		e.logger.Error("compile failed", slog.String("error", err.Error()))
		e.alert("Compilation failed: " + err.Error())

		e.mu.Lock()
		if e.seq == seq {
			_ = e.fire(EventAlertShown)
		}
		e.commit()
		return nil, fmt.Errorf("compile recipe: %w", err)
	}

	_ = e.fire(EventCompileSucceeded)
	e.result = res
	e.commit()

	e.logger.Info("recipe compiled",
		slog.String("recipe_id", res.RecipeID),
		slog.String("estimated_cost", res.CostString()),
		slog.Float64("estimated_duration", res.EstimatedDuration),
		slog.Int("warnings", len(res.Warnings)))

	if e.opts.OnCompile != nil {
		e.opts.OnCompile(res)
	}
	return res, nil
}

func (e *Editor) alert(msg string) {
	if e.opts.Alerter == nil {
		e.logger.Warn("no alerter configured", slog.String("message", msg))
		return
	}
	e.opts.Alerter.Alert(msg)
}

// Result returns the last successful compile result, if any.
func (e *Editor) Result() *core.CompiledRecipe {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result
}
