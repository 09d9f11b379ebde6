// Package config provides configuration management for the recipekit CLI.
//
// Configuration is layered with koanf: defaults, then recipekit.yaml, then
// RECIPEKIT_* environment variables, then explicitly set flags. A named
// environment selected with --target overrides the service endpoints.
package config

import (
	"time"

	"github.com/leapstack-labs/recipekit/pkg/core"
)

// Config holds all CLI configuration options.
type Config struct {
	APIURL       string               `koanf:"api_url"`
	DatabaseURL  string               `koanf:"database_url"`
	StatePath    string               `koanf:"state_path"`
	Profile      string               `koanf:"profile"`
	Environment  string               `koanf:"environment"`
	Verbose      bool                 `koanf:"verbose"`
	OutputFormat string               `koanf:"output"`
	Timeout      time.Duration        `koanf:"timeout"`
	Compile      core.CompileSettings `koanf:"compile"`
	Server       *ServerConfig        `koanf:"server"`
	Backend      *BackendConfig       `koanf:"backend"`
	Environments map[string]EnvConfig `koanf:"environments"`

	// ProjectRoot is the directory holding recipekit.yaml, or the working directory.
	ProjectRoot string `koanf:"-"`
}

// EnvConfig holds environment-specific overrides.
type EnvConfig struct {
	APIURL      string `koanf:"api_url"`
	DatabaseURL string `koanf:"database_url"`
	Profile     string `koanf:"profile"`
}

// ServerConfig configures `recipekit serve`.
type ServerConfig struct {
	Host          string `koanf:"host"`
	Port          int    `koanf:"port"`
	SessionSecret string `koanf:"session_secret"`
	StubCompiler  bool   `koanf:"stub_compiler"`
	// EditorIdleTimeout and MaxEditors bound the per-browser editors kept in
	// memory. Zero uses the server defaults.
	EditorIdleTimeout time.Duration `koanf:"editor_idle_timeout"`
	MaxEditors        int           `koanf:"max_editors"`
}

// BackendConfig configures the fixture backing the stub compiler.
type BackendConfig struct {
	QEI      float64       `koanf:"qei"`
	Momentum float64       `koanf:"momentum"`
	Latency  time.Duration `koanf:"latency"`
}

// Default configuration values.
const (
	DefaultAPIURL    = "http://localhost:8000"
	DefaultStateFile = ".recipekit/state.db"
	DefaultEnv       = "dev"
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultTimeout   = 60 * time.Second
	DefaultHost      = "127.0.0.1"
	DefaultPort      = 8420
)

// ConfigFileNames are searched in order in each candidate directory.
var ConfigFileNames = []string{"recipekit.yaml", "recipekit.yml"}

// GetServerConfig returns the server config with defaults applied for any unset values.
func (c *Config) GetServerConfig() *ServerConfig {
	srv := ServerConfig{}
	if c.Server != nil {
		srv = *c.Server
	}
	if srv.Host == "" {
		srv.Host = DefaultHost
	}
	if srv.Port == 0 {
		srv.Port = DefaultPort
	}
	return &srv
}

// StateDSN returns the store location: DatabaseURL when set, else the SQLite state path.
func (c *Config) StateDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.StatePath
}
