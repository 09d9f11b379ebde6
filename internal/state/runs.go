package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/recipekit/pkg/core"
)

// DefaultRunLimit is used by ListCompileRuns for a non-positive limit.
const DefaultRunLimit = 50

// CreateCompileRun records the start of a compile request.
func (s *SQLStore) CreateCompileRun(ctx context.Context, recipeID string, settings core.CompileSettings) (*core.CompileRun, error) {
	settings = settings.WithDefaults()
	run := &core.CompileRun{
		ID:                generateID(),
		RecipeID:          recipeID,
		OptimizationLevel: settings.OptimizationLevel,
		TargetRuntime:     settings.TargetRuntime,
		Status:            core.CompileRunRunning,
		StartedAt:         s.now(),
	}

	s.logger.Debug("creating compile run", slog.String("id", run.ID), slog.String("recipe_id", recipeID))

	_, err := s.exec(ctx, `
		INSERT INTO compile_runs (id, recipe_id, optimization_level, target_runtime, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.RecipeID, string(run.OptimizationLevel), string(run.TargetRuntime), string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create compile run: %w", err)
	}
	return run, nil
}

// CompleteCompileRun stores the outcome of a compile run. A non-empty errMsg
// marks the run failed.
func (s *SQLStore) CompleteCompileRun(ctx context.Context, id string, result *core.CompiledRecipe, errMsg string) error {
	status := core.CompileRunSucceeded
	if errMsg != "" {
		status = core.CompileRunFailed
	}

	var resultJSON sql.NullString
	if result != nil {
		raw, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to encode compile result: %w", err)
		}
		resultJSON = sql.NullString{String: string(raw), Valid: true}
	}

	res, err := s.exec(ctx, `
		UPDATE compile_runs SET status = ?, completed_at = ?, result = ?, error = ?
		WHERE id = ?`,
		string(status), s.now(), resultJSON, nullString(errMsg), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete compile run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("compile run %s: %w", id, core.ErrNotFound)
	}
	return nil
}

const runColumns = `id, recipe_id, optimization_level, target_runtime, status, started_at, completed_at, result, error`

// GetCompileRun loads one compile run.
func (s *SQLStore) GetCompileRun(ctx context.Context, id string) (*core.CompileRun, error) {
	run, err := scanRun(s.queryRow(ctx, `SELECT `+runColumns+` FROM compile_runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("compile run %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get compile run: %w", err)
	}
	return run, nil
}

// ListCompileRuns returns the newest runs of a recipe first.
func (s *SQLStore) ListCompileRuns(ctx context.Context, recipeID string, limit int) ([]*core.CompileRun, error) {
	if limit <= 0 {
		limit = DefaultRunLimit
	}
	rows, err := s.query(ctx, `
		SELECT `+runColumns+` FROM compile_runs
		WHERE recipe_id = ?
		ORDER BY started_at DESC, id
		LIMIT ?`, recipeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list compile runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := []*core.CompileRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan compile run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list compile runs: %w", err)
	}
	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*core.CompileRun, error) {
	var (
		run         core.CompileRun
		level       string
		runtime     string
		status      string
		completedAt sql.NullTime
		result      sql.NullString
		errMsg      sql.NullString
	)
	if err := row.Scan(&run.ID, &run.RecipeID, &level, &runtime, &status,
		&run.StartedAt, &completedAt, &result, &errMsg); err != nil {
		return nil, err
	}

	run.OptimizationLevel = core.OptimizationLevel(level)
	run.TargetRuntime = core.TargetRuntime(runtime)
	run.Status = core.CompileRunStatus(status)
	run.StartedAt = run.StartedAt.UTC()
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		run.CompletedAt = &t
	}
	if result.Valid {
		var cr core.CompiledRecipe
		if err := json.Unmarshal([]byte(result.String), &cr); err != nil {
			return nil, fmt.Errorf("decode compile result: %w", err)
		}
		run.Result = &cr
	}
	run.Error = errMsg.String
	return &run, nil
}
