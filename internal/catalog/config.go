package catalog

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/leapstack-labs/recipekit/pkg/core"
)

// DataSourceConfig configures a dataSource node.
type DataSourceConfig struct {
	Source     string `mapstructure:"source"`
	Connection string `mapstructure:"connection"`
	Query      string `mapstructure:"query"`
}

// ProcessorConfig configures a processor node.
type ProcessorConfig struct {
	Operation  string         `mapstructure:"operation"`
	Parameters map[string]any `mapstructure:"parameters"`
}

// AIModelConfig configures an aiModel node.
type AIModelConfig struct {
	Model       string  `mapstructure:"model"`
	Prompt      string  `mapstructure:"prompt"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// QuantumConfig configures a quantum node.
type QuantumConfig struct {
	Algorithm string `mapstructure:"algorithm"`
	Qubits    int    `mapstructure:"qubits"`
	Shots     int    `mapstructure:"shots"`
}

// OutputConfig configures an output node.
type OutputConfig struct {
	Format      string `mapstructure:"format"`
	Destination string `mapstructure:"destination"`
}

// ConditionalConfig configures a conditional node.
type ConditionalConfig struct {
	Condition string `mapstructure:"condition"`
}

// IntegrationConfig configures an integration node.
type IntegrationConfig struct {
	Service  string            `mapstructure:"service"`
	Endpoint string            `mapstructure:"endpoint"`
	Method   string            `mapstructure:"method"`
	Headers  map[string]string `mapstructure:"headers"`
}

// newConfig returns a pointer to the typed config for a kind.
func newConfig(kind core.NodeKind) (any, error) {
	switch kind {
	case core.KindDataSource:
		return &DataSourceConfig{}, nil
	case core.KindProcessor:
		return &ProcessorConfig{}, nil
	case core.KindAIModel:
		return &AIModelConfig{}, nil
	case core.KindQuantum:
		return &QuantumConfig{}, nil
	case core.KindOutput:
		return &OutputConfig{}, nil
	case core.KindConditional:
		return &ConditionalConfig{}, nil
	case core.KindIntegration:
		return &IntegrationConfig{}, nil
	default:
		return nil, fmt.Errorf("no config schema for node kind %s", kind)
	}
}

// DecodeConfig decodes a node's free-form config into its typed struct.
// String values are coerced where the target is numeric ("64" -> 64).
// Unknown keys are ignored.
func DecodeConfig(kind core.NodeKind, raw map[string]any) (any, error) {
	target, err := newConfig(kind)
	if err != nil {
		return nil, err
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create config decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", kind, err)
	}
	return target, nil
}
