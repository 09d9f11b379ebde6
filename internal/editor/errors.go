package editor

import (
	"errors"
	"strings"
)

// Sentinel errors returned by Editor operations.
var (
	// ErrCompileInProgress is returned when Compile is called while a request is outstanding.
	ErrCompileInProgress = errors.New("compile already in progress")
	// ErrCompileSuperseded is returned when the editor was cleared or reset while compiling.
	ErrCompileSuperseded = errors.New("compile result discarded: editor was reset")
	// ErrUnknownNodeType is returned by Drop for a payload that names no template.
	ErrUnknownNodeType = errors.New("unknown node type")
	// ErrViewNotReady is returned by Drop before the graph view reported its viewport.
	ErrViewNotReady = errors.New("graph view is not ready")
	// ErrNodeNotFound is returned when an operation names a node that does not exist.
	ErrNodeNotFound = errors.New("node not found")
	// ErrNoCompiler is returned by Compile when the editor has no compiler.
	ErrNoCompiler = errors.New("no compiler configured")
	// ErrNoSaveHook is returned by Save when the editor has no save hook.
	ErrNoSaveHook = errors.New("no save hook configured")
)

// ValidationError is returned by Compile when the compile gate refuses the graph.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Errors) == 0 {
		return "recipe is invalid"
	}
	return "recipe is invalid: " + strings.Join(e.Errors, "; ")
}
