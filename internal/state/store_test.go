package state

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/recipekit/internal/session"
	"github.com/leapstack-labs/recipekit/internal/testutil"
	"github.com/leapstack-labs/recipekit/pkg/core"
)

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := Open(context.Background(), MemoryDSN, testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// tick makes s.now advance one second per call from a fixed start.
func tick(s *SQLStore) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func sampleRecipe() *core.Recipe {
	return &core.Recipe{
		Name:        "Churn",
		Description: "weekly churn model",
		Nodes: []core.Node{
			{ID: "src", Type: core.KindDataSource, Position: core.Position{X: 1, Y: 2},
				Data: core.NodeData{Label: "Data Source", Config: map[string]any{"source": "postgres"}}},
			{ID: "out", Type: core.KindOutput, Data: core.NodeData{Label: "Output"}},
		},
		Edges:    []core.Edge{{ID: "e1", Source: "src", Target: "out", Animated: true}},
		Metadata: map[string]any{"owner": "ops"},
	}
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		dsn  string
		want Dialect
	}{
		{":memory:", DialectSQLite},
		{"/var/lib/recipekit/state.db", DialectSQLite},
		{"postgres://u:p@localhost/recipes", DialectPostgres},
		{"postgresql://localhost/recipes?sslmode=disable", DialectPostgres},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			assert.Equal(t, tt.want, DialectFor(tt.dsn))
		})
	}
}

func TestRebind(t *testing.T) {
	pg := New(nil, DialectPostgres, nil)
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))

	lite := New(nil, DialectSQLite, nil)
	assert.Equal(t, "x = ?", lite.rebind("x = ?"))
}

func TestMigrate(t *testing.T) {
	s := openTestStore(t)
	v, err := s.MigrationVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	// Re-running is a no-op.
	require.NoError(t, s.Migrate(context.Background()))
}

func TestRecipes_CRUD(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	tick(s)

	r := sampleRecipe()
	require.NoError(t, s.SaveRecipe(ctx, r))
	require.NotEmpty(t, r.ID, "save assigns an id")

	got, err := s.GetRecipe(ctx, r.ID)
	require.NoError(t, err)
	// JSON numbers come back as float64; config here holds strings only.
	if diff := cmp.Diff(r, got); diff != "" {
		t.Errorf("GetRecipe mismatch (-want +got):\n%s", diff)
	}

	r.Name = "Churn v2"
	r.Nodes = r.Nodes[:1]
	r.Edges = nil
	require.NoError(t, s.SaveRecipe(ctx, r))

	other := &core.Recipe{Nodes: []core.Node{}, Edges: []core.Edge{}}
	require.NoError(t, s.SaveRecipe(ctx, other))
	assert.Equal(t, core.DefaultRecipeName, other.Name)

	list, err := s.ListRecipes(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, other.ID, list[0].ID, "most recently updated first")
	assert.Equal(t, "Churn v2", list[1].Name)
	assert.Equal(t, 1, list[1].NodeCount)
	assert.Equal(t, 0, list[1].EdgeCount)

	require.NoError(t, s.DeleteRecipe(ctx, r.ID))
	_, err = s.GetRecipe(ctx, r.ID)
	require.ErrorIs(t, err, core.ErrNotFound)
	require.ErrorIs(t, s.DeleteRecipe(ctx, r.ID), core.ErrNotFound)
}

func TestCompileRuns(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	tick(s)

	r := sampleRecipe()
	require.NoError(t, s.SaveRecipe(ctx, r))

	first, err := s.CreateCompileRun(ctx, r.ID, core.CompileSettings{})
	require.NoError(t, err)
	assert.Equal(t, core.CompileRunRunning, first.Status)
	assert.Equal(t, core.OptimizationOptimized, first.OptimizationLevel)
	assert.Equal(t, core.RuntimePython, first.TargetRuntime)

	result := &core.CompiledRecipe{RecipeID: r.ID, CompiledCode: "run()", EstimatedCost: 2.5, Warnings: []string{"w"}}
	require.NoError(t, s.CompleteCompileRun(ctx, first.ID, result, ""))

	second, err := s.CreateCompileRun(ctx, r.ID, core.CompileSettings{TargetRuntime: core.RuntimeQuantum})
	require.NoError(t, err)
	require.NoError(t, s.CompleteCompileRun(ctx, second.ID, nil, "500 Internal Server Error"))

	got, err := s.GetCompileRun(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, core.CompileRunSucceeded, got.Status)
	require.NotNil(t, got.CompletedAt)
	require.NotNil(t, got.Result)
	assert.Equal(t, "run()", got.Result.CompiledCode)
	assert.Empty(t, got.Error)

	runs, err := s.ListCompileRuns(ctx, r.ID, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID, "newest first")
	assert.Equal(t, core.CompileRunFailed, runs[0].Status)
	assert.Equal(t, "500 Internal Server Error", runs[0].Error)
	assert.Nil(t, runs[0].Result)

	limited, err := s.ListCompileRuns(ctx, r.ID, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	require.ErrorIs(t, s.CompleteCompileRun(ctx, "missing", nil, ""), core.ErrNotFound)
	_, err = s.GetCompileRun(ctx, "missing")
	require.ErrorIs(t, err, core.ErrNotFound)

	// Deleting the recipe drops its history.
	require.NoError(t, s.DeleteRecipe(ctx, r.ID))
	runs, err = s.ListCompileRuns(ctx, r.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestTokens(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.LoadToken(ctx, "default")
	require.ErrorIs(t, err, session.ErrNoToken)

	require.NoError(t, s.SaveToken(ctx, "default", "one"))
	require.NoError(t, s.SaveToken(ctx, "default", "two"))

	tok, err := s.LoadToken(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "two", tok)

	sess := session.New("")
	require.NoError(t, sess.Restore(ctx, s, ""))
	assert.Equal(t, "two", sess.Token())

	require.NoError(t, s.DeleteToken(ctx, "default"))
	require.NoError(t, s.DeleteToken(ctx, "default"))
	_, err = s.LoadToken(ctx, "default")
	require.ErrorIs(t, err, session.ErrNoToken)
}

func TestSQLStore_Errors(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		setup   func(mock sqlmock.Sqlmock)
		run     func(s *SQLStore) error
		errMsg  string
	}{
		{
			name:    "get recipe query fails",
			dialect: DialectSQLite,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("SELECT body FROM recipes WHERE id = ?")).
					WithArgs("r1").WillReturnError(errors.New("disk I/O error"))
			},
			run: func(s *SQLStore) error {
				_, err := s.GetRecipe(context.Background(), "r1")
				return err
			},
			errMsg: "failed to get recipe: disk I/O error",
		},
		{
			name:    "postgres placeholders are rebound",
			dialect: DialectPostgres,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("DELETE FROM recipes WHERE id = $1")).
					WithArgs("r1").WillReturnError(errors.New("connection reset"))
			},
			run: func(s *SQLStore) error {
				return s.DeleteRecipe(context.Background(), "r1")
			},
			errMsg: "failed to delete recipe: connection reset",
		},
		{
			name:    "corrupt recipe body",
			dialect: DialectSQLite,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT body FROM recipes").
					WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow("{"))
			},
			run: func(s *SQLStore) error {
				_, err := s.GetRecipe(context.Background(), "r1")
				return err
			},
			errMsg: "failed to decode recipe r1",
		},
		{
			name:    "save token fails",
			dialect: DialectSQLite,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO session_tokens").WillReturnError(errors.New("read-only"))
			},
			run: func(s *SQLStore) error {
				return s.SaveToken(context.Background(), "default", "t")
			},
			errMsg: "failed to save token: read-only",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()

			tt.setup(mock)
			err = tt.run(New(db, tt.dialect, nil))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRecordingCompiler(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	tick(s)

	r := sampleRecipe()
	require.NoError(t, s.SaveRecipe(ctx, r))

	boom := errors.New("backend down")
	fail := false
	rc := &RecordingCompiler{
		Store:  s,
		Logger: testutil.NewTestLogger(t),
		Next: core.CompilerFunc(func(_ context.Context, req *core.CompileRequest) (*core.CompiledRecipe, error) {
			if fail {
				return nil, boom
			}
			return &core.CompiledRecipe{RecipeID: req.FlowDefinition.Metadata.RecipeID}, nil
		}),
	}

	_, err := rc.Compile(ctx, core.NewCompileRequest(r, core.Viewport{}, core.CompileSettings{}))
	require.NoError(t, err)

	fail = true
	_, err = rc.Compile(ctx, core.NewCompileRequest(r, core.Viewport{}, core.CompileSettings{}))
	require.ErrorIs(t, err, boom)

	// Unsaved recipes are compiled without a record.
	_, err = rc.Compile(ctx, core.NewCompileRequest(&core.Recipe{}, core.Viewport{}, core.CompileSettings{}))
	require.ErrorIs(t, err, boom)

	runs, err := s.ListCompileRuns(ctx, r.ID, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, core.CompileRunFailed, runs[0].Status)
	assert.Equal(t, "backend down", runs[0].Error)
	assert.Equal(t, core.CompileRunSucceeded, runs[1].Status)
}
