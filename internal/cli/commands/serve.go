package commands

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/leapstack-labs/recipekit/internal/backend"
	"github.com/leapstack-labs/recipekit/internal/cli/config"
	"github.com/leapstack-labs/recipekit/internal/server"
	"github.com/spf13/cobra"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Host         string
	Port         int
	Open         bool
	StubCompiler bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the editor server",
		Long: `Start a local HTTP server that hosts recipe editors.

Each browser session gets its own editor. Editor state is streamed over
server-sent events, stored recipes are served from the state database, and
compile requests are forwarded to the compile service.

With --stub-compiler the server also answers POST /api/recipes/compile
itself, backed by a fixed-value quantum fixture. This is meant for local
development without a compile service.

Prometheus metrics are exposed at /metrics.`,
		Example: `  # Serve on the default address
  recipekit serve

  # Serve with the development compiler on port 9000
  recipekit serve --port 9000 --stub-compiler`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Host, "host", "", "Host to listen on (default: 127.0.0.1)")
	cmd.Flags().IntVar(&opts.Port, "port", 0, fmt.Sprintf("Port to serve on (default: %d)", config.DefaultPort))
	cmd.Flags().BoolVar(&opts.Open, "open", false, "Open the editor in a browser")
	cmd.Flags().BoolVar(&opts.StubCompiler, "stub-compiler", false, "Serve the development compile endpoint")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	logger := cmdCtx.Logger

	// CLI flags override config file
	srvCfg := cfg.GetServerConfig()
	host, port := srvCfg.Host, srvCfg.Port
	if opts.Host != "" {
		host = opts.Host
	}
	if opts.Port != 0 {
		port = opts.Port
	}
	stub := srvCfg.StubCompiler
	if cmd.Flags().Changed("stub-compiler") {
		stub = opts.StubCompiler
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := cmdCtx.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	sess, err := cmdCtx.RestoreSession(ctx, store)
	if err != nil {
		return err
	}

	secret := srvCfg.SessionSecret
	if secret == "" {
		secret = generateSessionSecret()
		logger.Debug("no session secret configured, sessions end with the process")
	}

	apiURL := cfg.APIURL
	if stub && !cmd.Flags().Changed("api-url") && cfg.APIURL == config.DefaultAPIURL {
		// Compile against ourselves.
		apiURL = ""
	}

	srv := server.NewServer(server.Config{
		Store:         store,
		APIURL:        apiURL,
		Session:       sess,
		Settings:      cfg.Compile,
		StubCompiler:  stub,
		Backend:       newFixture(cfg.Backend),
		Host:          host,
		Port:          port,
		SessionSecret: secret,
		Logger:        logger,

		EditorIdleTimeout: srvCfg.EditorIdleTimeout,
		MaxEditors:        srvCfg.MaxEditors,
	})

	url := "http://" + srv.Addr()
	r := cmdCtx.Renderer
	r.Println(r.Styles().Bold.Render("Serving recipe editor on " + url))
	if stub {
		r.Muted("Development compiler enabled at /api/recipes/compile")
	}
	r.Muted("Press Ctrl+C to stop")

	if opts.Open {
		go openBrowser(url)
	}

	return srv.Serve(ctx)
}

// newFixture builds the stub compiler's backend from configuration.
func newFixture(cfg *config.BackendConfig) *backend.Fixture {
	f := backend.NewFixture()
	if cfg == nil {
		return f
	}
	if cfg.QEI != 0 {
		f.QEIValue = cfg.QEI
	}
	if cfg.Momentum != 0 {
		f.MomentumValue = cfg.Momentum
	}
	f.Latency = cfg.Latency
	return f
}

func generateSessionSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(context.Background(), "open", url)
	case "linux":
		cmd = exec.CommandContext(context.Background(), "xdg-open", url)
	case "windows":
		cmd = exec.CommandContext(context.Background(), "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return
	}

	_ = cmd.Start()
}
