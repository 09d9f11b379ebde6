package commands

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/recipekit/internal/api"
	"github.com/leapstack-labs/recipekit/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const portalToken = "tok-123"

// portalServer fakes the account endpoints for ada@example.com / secret.
func portalServer(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Post(api.PathLogin, func(w http.ResponseWriter, req *http.Request) {
		var creds api.Credentials
		_ = json.NewDecoder(req.Body).Decode(&creds)
		if creds.Email != "ada@example.com" || creds.Password != "secret" {
			http.Error(w, "bad credentials", http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(api.LoginResponse{
			Token: portalToken,
			User:  &session.User{ID: "u1", Email: creds.Email, Name: "Ada"},
		})
	})
	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			if req.Header.Get("Authorization") != "Bearer "+portalToken {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			h(w, req)
		}
	}
	r.Get(api.PathBusinessPods, authed(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]api.BusinessPod{{ID: "p1", Name: "Growth", Status: "active", MemberCount: 4, QEI: 0.87, Momentum: 15.6}})
	}))
	r.Get(api.PathOperations, authed(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]api.Operation{{ID: "op1", PodID: "p1", Type: "forecast", Status: "running", Progress: 40}})
	}))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoginPodsLogout(t *testing.T) {
	srv := portalServer(t)
	setupProject(t, srv.URL)

	_, _, err := execute(t, NewPodsCommand())
	require.ErrorIs(t, err, errNotLoggedIn)

	_, _, err = executeWithInput(t, NewLoginCommand(), "secret\n", "--email", "ada@example.com")
	require.NoError(t, err)

	stdout, _, err := execute(t, NewPodsCommand())
	require.NoError(t, err)
	var pods struct {
		Pods []api.BusinessPod `json:"pods"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &pods))
	require.Len(t, pods.Pods, 1)
	assert.Equal(t, "Growth", pods.Pods[0].Name)

	stdout, _, err = execute(t, NewPodsCommand(), "--operations")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"forecast"`)

	_, _, err = execute(t, NewLogoutCommand())
	require.NoError(t, err)

	_, _, err = execute(t, NewPodsCommand())
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestLogin_Errors(t *testing.T) {
	srv := portalServer(t)
	setupProject(t, srv.URL)

	tests := []struct {
		name    string
		stdin   string
		args    []string
		wantErr string
	}{
		{name: "wrong password", stdin: "nope\n", args: []string{"--email", "ada@example.com"}, wantErr: "invalid email or password"},
		{name: "no email off a terminal", stdin: "secret\n", wantErr: "--email is required"},
		{name: "empty password", stdin: "", args: []string{"--email", "ada@example.com"}, wantErr: "required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeWithInput(t, NewLoginCommand(), tt.stdin, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
