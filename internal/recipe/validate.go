// Package recipe validates, analyzes and serializes recipes.
//
// Validate is the gate the editor applies before compiling. Lint reports
// findings that never block. Both are pure functions of the graph.
package recipe

import (
	"fmt"

	"github.com/leapstack-labs/recipekit/pkg/core"
)

// Validation messages, shown to users verbatim.
const (
	MsgNoNodes      = "Recipe must contain at least one node."
	MsgNoOutput     = "Recipe must contain at least one output node."
	MsgNoDataSource = "Recipe must contain at least one data source node."
)

// DisconnectedMessage is reported when count nodes have no incident edge.
func DisconnectedMessage(count int) string {
	return fmt.Sprintf("Found %d disconnected node(s). All nodes should be connected.", count)
}

// Validate returns the problems that block compilation, in a stable order.
// An empty result means the graph may be compiled.
func Validate(nodes []core.Node, edges []core.Edge) []string {
	var errs []string

	if len(nodes) == 0 {
		errs = append(errs, MsgNoNodes)
	}

	var hasOutput, hasSource bool
	for _, n := range nodes {
		switch n.Type {
		case core.KindOutput:
			hasOutput = true
		case core.KindDataSource:
			hasSource = true
		}
	}
	if !hasOutput {
		errs = append(errs, MsgNoOutput)
	}
	if !hasSource {
		errs = append(errs, MsgNoDataSource)
	}

	if len(nodes) > 1 {
		if disconnected := Disconnected(nodes, edges); len(disconnected) > 0 {
			errs = append(errs, DisconnectedMessage(len(disconnected)))
		}
	}

	return errs
}

// Disconnected returns the ids of nodes that no edge touches, in node order.
func Disconnected(nodes []core.Node, edges []core.Edge) []string {
	touched := make(map[string]bool, len(edges)*2)
	for _, e := range edges {
		touched[e.Source] = true
		touched[e.Target] = true
	}

	var out []string
	for _, n := range nodes {
		if !touched[n.ID] {
			out = append(out, n.ID)
		}
	}
	return out
}
