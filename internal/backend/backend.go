// Package backend defines the contracts of the external optimisation services
// and a configurable fixture that stands in for them.
//
// Contract for every method: it blocks for at most the service latency and
// returns ctx.Err() when ctx ends first. Errors are terminal for the call;
// callers do not retry.
package backend

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// JobSpec describes a job submitted to a quantum backend.
type JobSpec struct {
	RecipeID string         `json:"recipe_id,omitempty"`
	Qubits   int            `json:"qubits"`
	Shots    int            `json:"shots"`
	Params   map[string]any `json:"params,omitempty"`
}

// QuantumBackend accepts jobs and returns a job id.
type QuantumBackend interface {
	SubmitJob(ctx context.Context, spec JobSpec) (string, error)
}

// Scorer produces business health scores for a pod.
type Scorer interface {
	// QEI returns the quantum efficiency index in [0, 1].
	QEI(ctx context.Context, podID string) (float64, error)
	// Momentum returns the momentum score, a percentage.
	Momentum(ctx context.Context, podID string) (float64, error)
}

// Fixture defaults.
const (
	DefaultQEI      = 0.87
	DefaultMomentum = 15.6
)

// Fixture implements QuantumBackend and Scorer with fixed, configurable values.
// It is a test double and carries no computation.
type Fixture struct {
	QEIValue      float64
	MomentumValue float64
	// Latency delays every call.
	Latency time.Duration
	// Err, when set, is returned by every call.
	Err error
	// Now stamps job ids. Defaults to time.Now.
	Now func() time.Time

	mu   sync.Mutex
	jobs []JobSpec
}

var (
	_ QuantumBackend = (*Fixture)(nil)
	_ Scorer         = (*Fixture)(nil)
)

// NewFixture returns a fixture with the default values and no latency.
func NewFixture() *Fixture {
	return &Fixture{QEIValue: DefaultQEI, MomentumValue: DefaultMomentum}
}

func (f *Fixture) wait(ctx context.Context) error {
	if f.Latency > 0 {
		t := time.NewTimer(f.Latency)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}
	return f.Err
}

// SubmitJob records spec and returns "job_<unix millis>".
func (f *Fixture) SubmitJob(ctx context.Context, spec JobSpec) (string, error) {
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	f.mu.Lock()
	f.jobs = append(f.jobs, spec)
	f.mu.Unlock()
	return fmt.Sprintf("job_%d", now().UnixMilli()), nil
}

// Jobs returns the submitted job specs.
func (f *Fixture) Jobs() []JobSpec {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]JobSpec(nil), f.jobs...)
}

// QEI returns QEIValue.
func (f *Fixture) QEI(ctx context.Context, _ string) (float64, error) {
	if err := f.wait(ctx); err != nil {
		return 0, err
	}
	return f.QEIValue, nil
}

// Momentum returns MomentumValue.
func (f *Fixture) Momentum(ctx context.Context, _ string) (float64, error) {
	if err := f.wait(ctx); err != nil {
		return 0, err
	}
	return f.MomentumValue, nil
}
