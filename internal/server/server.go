// Package server exposes pipeline editors over HTTP for browser front-ends.
//
// Each browser (identified by a signed session cookie) owns one editor.
// Front-ends drive it through the JSON endpoints under /api/editor and
// follow changes on /api/editor/updates, a datastar SSE stream of editor
// snapshots.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/recipekit/internal/api"
	"github.com/leapstack-labs/recipekit/internal/backend"
	"github.com/leapstack-labs/recipekit/internal/server/notifier"
	"github.com/leapstack-labs/recipekit/internal/session"
	"github.com/leapstack-labs/recipekit/internal/state"
	"github.com/leapstack-labs/recipekit/pkg/core"
)

// Defaults for zero Config fields.
const (
	DefaultPort              = 8420
	DefaultEditorIdleTimeout = 2 * time.Hour
	DefaultMaxEditors        = 256
)

// Config holds configuration for the server.
type Config struct {
	// Store persists recipes and compile history. Optional.
	Store core.Store
	// Compiler overrides the compile client built from APIURL.
	Compiler core.Compiler
	// APIURL is the compile service base URL.
	APIURL string
	// Session authenticates compile requests.
	Session *session.Session
	// Settings are the default compile settings of new editors.
	Settings core.CompileSettings
	// StubCompiler mounts the development compile handler on this server.
	StubCompiler bool
	// Backend serves the stub compiler's quantum jobs.
	Backend backend.QuantumBackend

	// EditorIdleTimeout evicts editors not used for this long.
	EditorIdleTimeout time.Duration
	// MaxEditors caps live editors; the least recently used one is evicted.
	MaxEditors int

	Host          string
	Port          int
	SessionSecret string
	Logger        *slog.Logger
}

// Server is the editor HTTP server.
type Server struct {
	cfg          Config
	sessionStore *sessions.CookieStore
	notifier     *notifier.Notifier
	metrics      *metrics
	workspaces   *workspaces
	logger       *slog.Logger
}

// NewServer creates a new server instance.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.EditorIdleTimeout <= 0 {
		cfg.EditorIdleTimeout = DefaultEditorIdleTimeout
	}
	if cfg.MaxEditors <= 0 {
		cfg.MaxEditors = DefaultMaxEditors
	}
	if cfg.StubCompiler && cfg.APIURL == "" {
		cfg.APIURL = fmt.Sprintf("http://%s", net.JoinHostPort(loopback(cfg.Host), fmt.Sprint(cfg.Port)))
	}

	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode
	// The server listens on plain HTTP; a Secure cookie would never come back.
	sessionStore.Options.Secure = false

	s := &Server{
		cfg:          cfg,
		sessionStore: sessionStore,
		notifier:     notifier.New(),
		metrics:      newMetrics(),
		logger:       cfg.Logger,
	}

	s.workspaces = &workspaces{
		byID:     make(map[string]*workspace),
		idleTTL:  cfg.EditorIdleTimeout,
		max:      cfg.MaxEditors,
		now:      time.Now,
		sessions: sessionStore,
		notify:   s.notifier,
		metrics:  s.metrics,
		logger:   s.logger,
		compiler: s.compiler(),
		store:    cfg.Store,
		settings: cfg.Settings,
	}
	return s
}

func loopback(host string) string {
	if host == "" || host == "0.0.0.0" || host == "::" {
		return "localhost"
	}
	return host
}

// compiler assembles the compile chain: metrics, then run recording, then
// the compile service client.
func (s *Server) compiler() core.Compiler {
	base := s.cfg.Compiler
	if base == nil {
		if s.cfg.APIURL == "" {
			return nil
		}
		base = api.New(s.cfg.APIURL, s.cfg.Session, api.WithLogger(s.logger))
	}
	if s.cfg.Store != nil {
		base = &state.RecordingCompiler{Next: base, Store: s.cfg.Store, Logger: s.logger}
	}
	return &instrumentedCompiler{next: base, metrics: s.metrics}
}

// Handler builds the HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger(s.logger),
		middleware.Recoverer,
	)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"editors": s.workspaces.count(),
			"streams": s.notifier.Listeners(),
		})
	})
	r.Handle("/metrics", s.metrics.handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", catalogHandler)

		eh := &editorHandlers{ws: s.workspaces, store: s.cfg.Store, metrics: s.metrics, logger: s.logger}
		r.Route("/editor", eh.routes)

		if s.cfg.Store != nil {
			rh := &recipeHandlers{store: s.cfg.Store, changed: s.workspaces.recipesChanged}
			r.Route("/recipes", func(r chi.Router) {
				rh.routes(r)
			})
		}
	})

	if s.cfg.StubCompiler {
		backend.NewStubCompileHandler(s.cfg.Backend, s.logger).Routes(r)
	}

	return r
}

// requestLogger logs each request at debug level.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("elapsed", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
}

// Serve listens on the configured address and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting server", slog.String("addr", "http://"+ln.Addr().String()))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
