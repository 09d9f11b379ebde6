package core

import (
	"encoding/json"
	"fmt"
)

// NodeKind identifies one of the fixed block types a recipe node can take.
type NodeKind int

// Node kinds. The order is the palette order.
const (
	KindDataSource NodeKind = iota
	KindProcessor
	KindAIModel
	KindQuantum
	KindOutput
	KindConditional
	KindIntegration
)

var kindTokens = [...]string{
	KindDataSource:  "dataSource",
	KindProcessor:   "processor",
	KindAIModel:     "aiModel",
	KindQuantum:     "quantum",
	KindOutput:      "output",
	KindConditional: "conditional",
	KindIntegration: "integration",
}

// AllKinds returns every node kind in palette order.
func AllKinds() []NodeKind {
	kinds := make([]NodeKind, len(kindTokens))
	for i := range kindTokens {
		kinds[i] = NodeKind(i)
	}
	return kinds
}

// String returns the wire token of the kind.
func (k NodeKind) String() string {
	if k < 0 || int(k) >= len(kindTokens) {
		return "unknown"
	}
	return kindTokens[k]
}

// Valid reports whether k is one of the known kinds.
func (k NodeKind) Valid() bool {
	return k >= 0 && int(k) < len(kindTokens)
}

// ParseNodeKind converts a wire token to a NodeKind.
// Tokens are case-sensitive, matching what the editor palette emits.
func ParseNodeKind(token string) (NodeKind, bool) {
	for i, t := range kindTokens {
		if t == token {
			return NodeKind(i), true
		}
	}
	return 0, false
}

// MarshalText implements encoding.TextMarshaler.
func (k NodeKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid node kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *NodeKind) UnmarshalText(text []byte) error {
	parsed, ok := ParseNodeKind(string(text))
	if !ok {
		return fmt.Errorf("unknown node type %q", string(text))
	}
	*k = parsed
	return nil
}

// MarshalJSON encodes the kind as its token.
func (k NodeKind) MarshalJSON() ([]byte, error) {
	text, err := k.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON decodes a kind token.
func (k *NodeKind) UnmarshalJSON(data []byte) error {
	var token string
	if err := json.Unmarshal(data, &token); err != nil {
		return fmt.Errorf("node type must be a string: %w", err)
	}
	return k.UnmarshalText([]byte(token))
}
