package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leapstack-labs/recipekit/internal/api"
	"github.com/leapstack-labs/recipekit/pkg/core"
)

// Compile outcomes reported by the compile counter.
const (
	outcomeSuccess  = "success"
	outcomeRejected = "rejected" // non-2xx from the compile service
	outcomeError    = "error"
	outcomeCanceled = "canceled"
)

// metrics holds the server's collectors on a private registry.
type metrics struct {
	registry        *prometheus.Registry
	compiles        *prometheus.CounterVec
	compileDuration prometheus.Histogram
	editors         prometheus.Gauge
	streams         prometheus.Gauge
	drops           *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		compiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recipekit",
			Name:      "compile_requests_total",
			Help:      "Compile requests sent to the compile service, by outcome.",
		}, []string{"outcome", "runtime"}),
		compileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "recipekit",
			Name:      "compile_duration_seconds",
			Help:      "Latency of compile requests.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		editors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "recipekit",
			Name:      "editor_sessions",
			Help:      "Editor sessions held by the server.",
		}),
		streams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "recipekit",
			Name:      "update_streams",
			Help:      "Open editor update streams.",
		}),
		drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recipekit",
			Name:      "drops_total",
			Help:      "Node drops, by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(m.compiles, m.compileDuration, m.editors, m.streams, m.drops)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// instrumentedCompiler records count and latency of every compile request.
type instrumentedCompiler struct {
	next    core.Compiler
	metrics *metrics
}

func (c *instrumentedCompiler) Compile(ctx context.Context, req *core.CompileRequest) (*core.CompiledRecipe, error) {
	start := time.Now()
	res, err := c.next.Compile(ctx, req)
	c.metrics.compileDuration.Observe(time.Since(start).Seconds())
	c.metrics.compiles.WithLabelValues(compileOutcome(err), string(req.TargetRuntime)).Inc()
	return res, err
}

func compileOutcome(err error) string {
	var se *api.StatusError
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.As(err, &se):
		return outcomeRejected
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return outcomeCanceled
	default:
		return outcomeError
	}
}
