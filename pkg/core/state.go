package core

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the persistence operations recipekit needs.
type Store interface {
	Close() error

	// Recipe operations
	SaveRecipe(ctx context.Context, recipe *Recipe) error
	GetRecipe(ctx context.Context, id string) (*Recipe, error)
	ListRecipes(ctx context.Context) ([]RecipeSummary, error)
	DeleteRecipe(ctx context.Context, id string) error

	// Compile run operations
	CreateCompileRun(ctx context.Context, recipeID string, settings CompileSettings) (*CompileRun, error)
	CompleteCompileRun(ctx context.Context, id string, result *CompiledRecipe, errMsg string) error
	GetCompileRun(ctx context.Context, id string) (*CompileRun, error)
	ListCompileRuns(ctx context.Context, recipeID string, limit int) ([]*CompileRun, error)
}

// CompileRunStatus is the lifecycle state of a recorded compile request.
type CompileRunStatus string

// Compile run statuses.
const (
	CompileRunRunning   CompileRunStatus = "running"
	CompileRunSucceeded CompileRunStatus = "succeeded"
	CompileRunFailed    CompileRunStatus = "failed"
)

// CompileRun records one compile request for a stored recipe.
type CompileRun struct {
	ID                string            `json:"id"`
	RecipeID          string            `json:"recipe_id"`
	OptimizationLevel OptimizationLevel `json:"optimization_level"`
	TargetRuntime     TargetRuntime     `json:"target_runtime"`
	Status            CompileRunStatus  `json:"status"`
	StartedAt         time.Time         `json:"started_at"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
	Result            *CompiledRecipe   `json:"result,omitempty"`
	Error             string            `json:"error,omitempty"`
}
