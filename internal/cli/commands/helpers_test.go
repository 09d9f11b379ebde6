package commands

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/recipekit/internal/backend"
	"github.com/leapstack-labs/recipekit/internal/cli/config"
	"github.com/leapstack-labs/recipekit/internal/cli/testutil"
	"github.com/spf13/cobra"
)

// execute runs cmd with args and returns its captured stdout and stderr.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	return executeWithInput(t, cmd, "", args...)
}

// executeWithInput is execute with stdin. Usage and error printing are
// silenced as the root command does, so stdout holds only command output.
func executeWithInput(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// setupProject creates a project pointing at apiURL and makes it the working
// directory. Output defaults to JSON unless mode is given.
func setupProject(t *testing.T, apiURL string, mode ...string) (string, string) {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	output := "json"
	if len(mode) > 0 {
		output = mode[0]
	}
	t.Setenv("RECIPEKIT_OUTPUT", output)
	t.Setenv("RECIPEKIT_API_URL", apiURL)

	dir, path := testutil.SetupTestProject(t, apiURL)
	t.Chdir(dir)
	return dir, path
}

// stubServer serves the development compile endpoint and counts requests.
func stubServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			hits.Add(1)
			next.ServeHTTP(w, req)
		})
	})
	backend.NewStubCompileHandler(nil, nil).Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, &hits
}
