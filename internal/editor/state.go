package editor

import (
	"errors"
	"fmt"
)

// State is the lifecycle state of an editor.
type State int

// Editor states.
const (
	// StateEditing is the resting state; graph edits are always allowed.
	StateEditing State = iota
	// StateValidating is entered while the compile gate checks the graph.
	StateValidating
	// StateCompiling means a compile request is outstanding.
	StateCompiling
	// StateCompiled holds a successful compile result.
	StateCompiled
	// StateCompileFailed is held until the failure has been alerted.
	StateCompileFailed
)

var stateNames = [...]string{
	StateEditing:       "editing",
	StateValidating:    "validating",
	StateCompiling:     "compiling",
	StateCompiled:      "compiled",
	StateCompileFailed: "compile_failed",
}

// String returns the state name.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalText encodes the state as its name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown editor state %q", text)
}

// Event drives a state transition.
type Event int

// Editor events.
const (
	EventCompileRequested Event = iota
	EventValidationFailed
	EventValidationPassed
	EventCompileSucceeded
	EventCompileFailed
	EventAlertShown
	EventEdited
	EventCleared
)

var eventNames = [...]string{
	EventCompileRequested: "compile_requested",
	EventValidationFailed: "validation_failed",
	EventValidationPassed: "validation_passed",
	EventCompileSucceeded: "compile_succeeded",
	EventCompileFailed:    "compile_failed",
	EventAlertShown:       "alert_shown",
	EventEdited:           "edited",
	EventCleared:          "cleared",
}

// String returns the event name.
func (e Event) String() string {
	if e < 0 || int(e) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[e]
}

// ErrInvalidTransition is returned for an event the current state does not accept.
var ErrInvalidTransition = errors.New("invalid state transition")

// transitions lists every legal (state, event) pair.
// Graph edits are legal while compiling; the outstanding request keeps the
// graph it was built from.
var transitions = map[State]map[Event]State{
	StateEditing: {
		EventCompileRequested: StateValidating,
		EventEdited:           StateEditing,
		EventCleared:          StateEditing,
	},
	StateValidating: {
		EventValidationFailed: StateEditing,
		EventValidationPassed: StateCompiling,
	},
	StateCompiling: {
		EventCompileSucceeded: StateCompiled,
		EventCompileFailed:    StateCompileFailed,
		EventEdited:           StateCompiling,
		EventCleared:          StateEditing,
	},
	StateCompiled: {
		EventCompileRequested: StateValidating,
		EventEdited:           StateEditing,
		EventCleared:          StateEditing,
	},
	StateCompileFailed: {
		EventAlertShown: StateEditing,
		EventEdited:     StateCompileFailed,
		EventCleared:    StateEditing,
	},
}

// Transition returns the state that follows s on event e.
func Transition(s State, e Event) (State, error) {
	next, ok := transitions[s][e]
	if !ok {
		return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, s, e)
	}
	return next, nil
}
