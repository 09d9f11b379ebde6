package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/recipekit/internal/testutil"
	"github.com/leapstack-labs/recipekit/pkg/core"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "recipekit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func newFlags(t *testing.T) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("api-url", "", "")
	flags.String("database-url", "", "")
	flags.String("state", "", "")
	flags.String("output", "", "")
	flags.String("runtime", "", "")
	flags.Bool("verbose", false, "")
	return flags
}

// isolate clears variables that would leak in from the developer's shell.
func isolate(t *testing.T) {
	t.Helper()
	ResetConfig()
	for _, key := range []string{"DATABASE_URL", "RECIPEKIT_API_URL", "RECIPEKIT_DATABASE_URL", "RECIPEKIT_OUTPUT"} {
		t.Setenv(key, "") // restores the original value on cleanup
		require.NoError(t, os.Unsetenv(key))
	}
	t.Chdir(t.TempDir())
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, DefaultEnv, cfg.Environment)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, core.DefaultCompileSettings(), cfg.Compile)
	assert.True(t, filepath.IsAbs(cfg.StatePath))
	assert.Equal(t, cfg.StatePath, cfg.StateDSN())
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_File(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, `api_url: https://api.example.com
state_path: data/state.db
timeout: 5s
compile:
  optimization_level: aggressive
  target_runtime: quantum
server:
  port: 9000
  stub_compiler: true
  editor_idle_timeout: 30m
  max_editors: 16
backend:
  qei: 0.5
  latency: 250ms
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.APIURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, core.OptimizationAggressive, cfg.Compile.OptimizationLevel)
	assert.Equal(t, core.RuntimeQuantum, cfg.Compile.TargetRuntime)
	assert.Equal(t, filepath.Join(dir, "data", "state.db"), cfg.StatePath)
	assert.Equal(t, dir, cfg.ProjectRoot)

	srv := cfg.GetServerConfig()
	assert.Equal(t, 9000, srv.Port)
	assert.Equal(t, DefaultHost, srv.Host)
	assert.True(t, srv.StubCompiler)
	assert.Equal(t, 30*time.Minute, srv.EditorIdleTimeout)
	assert.Equal(t, 16, srv.MaxEditors)

	require.NotNil(t, cfg.Backend)
	assert.InDelta(t, 0.5, cfg.Backend.QEI, 1e-9)
	assert.Equal(t, 250*time.Millisecond, cfg.Backend.Latency)
}

func TestLoadConfig_UpwardSearch(t *testing.T) {
	isolate(t)
	root := t.TempDir()
	writeConfig(t, root, "api_url: https://found.example.com\n")
	nested := filepath.Join(root, "recipes", "team")
	require.NoError(t, os.MkdirAll(nested, 0750))
	t.Chdir(nested)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "https://found.example.com", cfg.APIURL)
	assert.Equal(t, filepath.Join(root, "recipekit.yaml"), GetConfigFileUsed())
}

func TestLoadConfig_Precedence(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		flagVal string
		want    string
	}{
		{
			name: "file only",
			want: "https://file.example.com",
		},
		{
			name: "env over file",
			env:  map[string]string{"RECIPEKIT_API_URL": "https://env.example.com"},
			want: "https://env.example.com",
		},
		{
			name:    "flag over env",
			env:     map[string]string{"RECIPEKIT_API_URL": "https://env.example.com"},
			flagVal: "https://flag.example.com",
			want:    "https://flag.example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			path := writeConfig(t, t.TempDir(), "api_url: https://file.example.com\n")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			flags := newFlags(t)
			if tt.flagVal != "" {
				require.NoError(t, flags.Set("api-url", tt.flagVal))
			}

			cfg, err := LoadConfig(path, flags)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.APIURL)
		})
	}
}

func TestLoadConfig_DatabaseURL(t *testing.T) {
	isolate(t)

	t.Setenv("DATABASE_URL", "postgres://deploy/db")
	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://deploy/db", cfg.DatabaseURL)
	assert.Equal(t, "postgres://deploy/db", cfg.StateDSN())

	t.Setenv("RECIPEKIT_DATABASE_URL", "postgres://override/db")
	cfg, err = LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://override/db", cfg.DatabaseURL)
}

func TestLoadConfig_NestedEnv(t *testing.T) {
	isolate(t)
	t.Setenv("RECIPEKIT_COMPILE__TARGET_RUNTIME", "javascript")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, core.RuntimeJavaScript, cfg.Compile.TargetRuntime)
}

func TestLoadConfig_FlagMappings(t *testing.T) {
	isolate(t)
	flags := newFlags(t)
	require.NoError(t, flags.Set("runtime", "quantum"))
	require.NoError(t, flags.Set("state", "local.db"))
	require.NoError(t, flags.Set("verbose", "true"))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, core.RuntimeQuantum, cfg.Compile.TargetRuntime)
	assert.Equal(t, filepath.Join(cwd, "local.db"), cfg.StatePath)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfigWithTarget_Environments(t *testing.T) {
	content := `api_url: https://dev.example.com
environments:
  staging:
    api_url: https://staging.example.com
  prod:
    api_url: https://prod.example.com
    database_url: postgres://prod/recipes
    profile: prod
`
	tests := []struct {
		name        string
		target      string
		wantAPI     string
		wantDB      string
		wantProfile string
	}{
		{"no target", "", "https://dev.example.com", "", "default"},
		{"staging", "staging", "https://staging.example.com", "", "default"},
		{"prod", "prod", "https://prod.example.com", "postgres://prod/recipes", "prod"},
		{"unknown falls back to base", "qa", "https://dev.example.com", "", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			path := writeConfig(t, t.TempDir(), content)

			cfg, err := LoadConfigWithTarget(path, tt.target, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAPI, cfg.APIURL)
			assert.Equal(t, tt.wantDB, cfg.DatabaseURL)
			assert.Equal(t, tt.wantProfile, cfg.Profile)
		})
	}
}

func TestLoadConfigWithTarget_FlagBeatsEnvironment(t *testing.T) {
	isolate(t)
	path := writeConfig(t, t.TempDir(), `environments:
  prod:
    api_url: https://prod.example.com
`)
	flags := newFlags(t)
	require.NoError(t, flags.Set("api-url", "http://localhost:9999"))

	cfg, err := LoadConfigWithTarget(path, "prod", flags)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999", cfg.APIURL)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		errSubstr string
	}{
		{"bad runtime", "compile:\n  target_runtime: rust\n", "compile.target_runtime"},
		{"bad level", "compile:\n  optimization_level: max\n", "compile.optimization_level"},
		{"bad url", "api_url: ftp://example.com\n", "api_url"},
		{"bad output", "output: html\n", "output must be one of"},
		{"bad yaml", "api_url: [\n", "error reading config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			path := writeConfig(t, t.TempDir(), tt.content)

			_, err := LoadConfig(path, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("RK_TEST_HOST", "db.internal")

	tests := []struct {
		input    string
		expected string
	}{
		{"postgres://${RK_TEST_HOST}/x", "postgres://db.internal/x"},
		{"${RK_UNSET_VARIABLE}", "${RK_UNSET_VARIABLE}"},
		{"plain", "plain"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, expandEnvVars(tt.input))
	}
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	logger := testutil.NewTestLogger(t)
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, GetLogger(ctx))
	assert.Same(t, logger, ctx.Value(LoggerKey()))
}
