package recipe

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/recipekit/pkg/core"
	"gopkg.in/yaml.v3"
)

// Format is a recipe file encoding.
type Format string

// Supported recipe file formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads a recipe file.
func Load(path string) (*core.Recipe, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the user
	if err != nil {
		return nil, fmt.Errorf("failed to open recipe: %w", err)
	}
	defer func() { _ = f.Close() }()

	r, err := Decode(f, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Decode reads a recipe in the given format.
func Decode(rd io.Reader, format Format) (*core.Recipe, error) {
	var r core.Recipe
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(rd).Decode(&r); err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to parse yaml recipe: %w", err)
		}
	default:
		if err := json.NewDecoder(rd).Decode(&r); err != nil {
			return nil, fmt.Errorf("failed to parse json recipe: %w", err)
		}
	}
	normalize(&r)
	return &r, nil
}

// Save writes a recipe file, choosing the format from the extension.
func Save(path string, r *core.Recipe) error {
	f, err := os.Create(path) //nolint:gosec // path comes from the user
	if err != nil {
		return fmt.Errorf("failed to create recipe file: %w", err)
	}
	if err := Encode(f, r, FormatFromPath(path)); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Encode writes a recipe in the given format.
func Encode(w io.Writer, r *core.Recipe, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode yaml recipe: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode json recipe: %w", err)
		}
		return nil
	}
}

// normalize fills the fields the editor expects to be non-nil.
func normalize(r *core.Recipe) {
	if r.Name == "" {
		r.Name = core.DefaultRecipeName
	}
	if r.Nodes == nil {
		r.Nodes = []core.Node{}
	}
	if r.Edges == nil {
		r.Edges = []core.Edge{}
	}
}
