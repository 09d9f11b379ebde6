// Package portal holds the client-side data slices of the business portal.
//
// Each slice wraps one remote call in an Async lifecycle: pending sets the
// loading flag and clears the error, fulfilled stores the data, rejected
// stores the error text. There are no optimistic updates and no retries.
package portal

import (
	"context"
	"sync"
)

// Status is the lifecycle phase of an Async value.
type Status string

// Async lifecycle phases.
const (
	StatusIdle      Status = "idle"
	StatusPending   Status = "pending"
	StatusFulfilled Status = "fulfilled"
	StatusRejected  Status = "rejected"
)

// State is a copy of an Async value.
type State[T any] struct {
	Status    Status `json:"status"`
	IsLoading bool   `json:"is_loading"`
	Data      T      `json:"data"`
	Error     string `json:"error,omitempty"`
}

// Async tracks one remote value through its request lifecycle.
type Async[T any] struct {
	mu    sync.RWMutex
	state State[T]
}

// Run executes thunk and records its outcome. Data from a previous
// successful run is kept when thunk fails.
func (a *Async[T]) Run(ctx context.Context, thunk func(context.Context) (T, error)) (T, error) {
	a.mu.Lock()
	a.state.Status = StatusPending
	a.state.IsLoading = true
	a.state.Error = ""
	a.mu.Unlock()

	data, err := thunk(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.IsLoading = false
	if err != nil {
		a.state.Status = StatusRejected
		a.state.Error = err.Error()
		return data, err
	}
	a.state.Status = StatusFulfilled
	a.state.Data = data
	return data, nil
}

// Reset returns the value to idle with zero data.
func (a *Async[T]) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = State[T]{}
}

// Snapshot returns the current state.
func (a *Async[T]) Snapshot() State[T] {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s := a.state
	if s.Status == "" {
		s.Status = StatusIdle
	}
	return s
}
