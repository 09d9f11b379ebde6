package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/recipekit/internal/api"
	"github.com/leapstack-labs/recipekit/internal/cli/config"
	"github.com/leapstack-labs/recipekit/internal/cli/output"
	"github.com/leapstack-labs/recipekit/internal/session"
	"github.com/leapstack-labs/recipekit/internal/state"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext for cmd.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// OpenStore opens the state store named by the configuration.
// Returns the store and a cleanup function that must be called (typically via defer).
func (c *CommandContext) OpenStore(ctx context.Context) (*state.SQLStore, func(), error) {
	dsn := c.Cfg.StateDSN()
	if state.DialectFor(dsn) == state.DialectSQLite && dsn != state.MemoryDSN {
		// Ensure state directory exists
		stateDir := filepath.Dir(dsn)
		if stateDir != "." && stateDir != "" {
			if err := os.MkdirAll(stateDir, 0750); err != nil {
				return nil, nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}

	store, err := state.Open(ctx, dsn, c.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open state store: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}

// NewClient returns an API client authenticated with sess.
func (c *CommandContext) NewClient(sess *session.Session) *api.Client {
	return api.New(c.Cfg.APIURL, sess,
		api.WithTimeout(c.Cfg.Timeout),
		api.WithLogger(c.Logger),
	)
}

// RestoreSession loads the stored token for the configured profile.
func (c *CommandContext) RestoreSession(ctx context.Context, store session.TokenStore) (*session.Session, error) {
	sess := session.New("")
	if err := sess.Restore(ctx, store, c.Cfg.Profile); err != nil {
		return nil, err
	}
	return sess, nil
}

// getConfig returns the current configuration, or defaults when the root
// command did not load one (commands executed directly in tests).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	cfg, err := config.LoadConfig("", nil)
	if err != nil {
		return &config.Config{
			APIURL:       config.DefaultAPIURL,
			StatePath:    config.DefaultStateFile,
			Profile:      session.DefaultProfile,
			OutputFormat: config.DefaultOutput,
			Timeout:      config.DefaultTimeout,
		}
	}
	return cfg
}
