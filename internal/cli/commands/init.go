package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/recipekit/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new recipekit project",
		Long: `Initialize a new recipekit project with a configuration file and an
example recipe.

This creates:
  - recipekit.yaml configuration file
  - recipes/example.yaml, a valid three-node recipe
  - .gitignore excluding the local state directory`,
		Example: `  # Initialize in current directory
  recipekit init

  # Initialize in a new directory
  recipekit init my-project

  # Force overwrite existing files
  recipekit init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(NewCommandContext(cmd).Renderer, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}

func runInit(r *output.Renderer, dir string, force bool) error {
	// Create directory if specified and doesn't exist
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	// Check if config already exists
	configPath := filepath.Join(dir, "recipekit.yaml")
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("recipekit.yaml already exists. Use --force to overwrite")
	}

	if err := copyTemplate("minimal", dir, force); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	// List created files by category
	files, _ := listTemplateFiles("minimal")
	groups := groupTemplateFiles(files)

	r.Header(2, "Configuration")
	for _, f := range groups["config"] {
		r.StatusLine(f, "created")
	}

	r.Println("")
	r.Header(2, "Recipes")
	for _, f := range groups["recipes"] {
		r.StatusLine(f, "created")
	}

	r.Println("")
	r.Success("recipekit project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  recipekit nodes                          List the node palette")
	r.Println("  recipekit validate recipes/example.yaml  Check the example recipe")
	r.Println("  recipekit edit recipes/example.yaml      Edit it interactively")
	r.Println("  recipekit serve --stub-compiler          Serve editors with a local compiler")

	return nil
}
