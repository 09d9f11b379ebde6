// Package api is the HTTP client for the recipe platform endpoints.
//
// The client never retries. Every call honours ctx; the underlying
// http.Client additionally carries a timeout (see WithTimeout).
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/leapstack-labs/recipekit/internal/session"
	"github.com/leapstack-labs/recipekit/pkg/core"
)

// DefaultTimeout bounds a single request when no http.Client is supplied.
const DefaultTimeout = 60 * time.Second

// Endpoint paths relative to the base URL.
const (
	PathCompile      = "/api/recipes/compile"
	PathLogin        = "/auth/login"
	PathBusinessPods = "/business-pods"
	PathOperations   = "/operations"
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 4 << 10

// Client talks to the platform API on behalf of one session.
type Client struct {
	baseURL string
	http    *http.Client
	session *session.Session
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
// Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a client for baseURL. sess may be nil for anonymous use.
func New(baseURL string, sess *session.Session, opts ...Option) *Client {
	if sess == nil {
		sess = &session.Session{}
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		session: sess,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *session.Session {
	return c.session
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Compile submits a recipe to the compile endpoint. It implements core.Compiler.
func (c *Client) Compile(ctx context.Context, req *core.CompileRequest) (*core.CompiledRecipe, error) {
	var out core.CompiledRecipe
	if err := c.do(ctx, http.MethodPost, PathCompile, req, &out); err != nil {
		return nil, fmt.Errorf("compile request failed: %w", err)
	}
	return &out, nil
}

var _ core.Compiler = (*Client)(nil)

// Ping reports whether the service answers at all. Any HTTP response,
// including an error status, counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	var se *StatusError
	if err := c.do(ctx, http.MethodGet, "/", nil, nil); err != nil && !errors.As(err, &se) {
		return err
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("api request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()))
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("api response",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			StatusCode: resp.StatusCode,
			Status:     statusText(resp),
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusText returns "500 Internal Server Error" style text even when the
// server sent a bare status line.
func statusText(resp *http.Response) string {
	if s := strings.TrimSpace(resp.Status); s != "" && s != fmt.Sprint(resp.StatusCode) {
		return s
	}
	return fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}
