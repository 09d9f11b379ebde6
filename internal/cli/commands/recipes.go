package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leapstack-labs/recipekit/internal/cli/output"
	"github.com/leapstack-labs/recipekit/internal/recipe"
	"github.com/leapstack-labs/recipekit/internal/state"
	"github.com/leapstack-labs/recipekit/pkg/core"
	"github.com/spf13/cobra"
)

// NewRecipesCommand creates the recipes command group.
func NewRecipesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recipes",
		Short: "Manage recipes stored in the state database",
		Long: `List, inspect, import, export and delete recipes stored in the state
database. Recipes get there through 'recipekit compile --save', the editor's
save command, the editor server, or 'recipes import'.`,
	}

	cmd.AddCommand(
		newRecipesListCommand(),
		newRecipesShowCommand(),
		newRecipesImportCommand(),
		newRecipesExportCommand(),
		newRecipesDeleteCommand(),
	)
	return cmd
}

// withStore opens the configured store for the duration of fn.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, cmdCtx *CommandContext, store *state.SQLStore) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmdCtx := NewCommandContext(cmd)
	store, cleanup, err := cmdCtx.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(ctx, cmdCtx, store)
}

func newRecipesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored recipes",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, cmdCtx *CommandContext, store *state.SQLStore) error {
				list, err := store.ListRecipes(ctx)
				if err != nil {
					return err
				}
				r := cmdCtx.Renderer
				if r.EffectiveMode() == output.ModeJSON {
					if list == nil {
						list = []core.RecipeSummary{}
					}
					return r.JSON(output.RecipeListOutput{Recipes: list})
				}
				if r.EffectiveMode() == output.ModeMarkdown {
					r.Println(output.FormatHeader(1, "Recipes"))
					r.Println("")
				}
				renderRecipeTable(r, list)
				return nil
			})
		},
	}
}

func renderRecipeTable(r *output.Renderer, list []core.RecipeSummary) {
	if len(list) == 0 {
		r.Muted("No stored recipes")
		return
	}
	rows := make([][]string, 0, len(list))
	for _, s := range list {
		rows = append(rows, []string{
			s.ID,
			s.Name,
			fmt.Sprint(s.NodeCount),
			fmt.Sprint(s.EdgeCount),
			s.UpdatedAt.Local().Format(time.DateTime),
		})
	}
	r.Table([]string{"ID", "Name", "Nodes", "Edges", "Updated"}, rows)
}

func newRecipesShowCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a stored recipe and its compile history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, cmdCtx *CommandContext, store *state.SQLStore) error {
				rc, err := getStoredRecipe(ctx, store, args[0])
				if err != nil {
					return err
				}
				runs, err := store.ListCompileRuns(ctx, rc.ID, limit)
				if err != nil {
					return err
				}
				if runs == nil {
					runs = []*core.CompileRun{}
				}
				r := cmdCtx.Renderer
				if r.EffectiveMode() == output.ModeJSON {
					return r.JSON(output.RecipeShowOutput{Recipe: rc, Runs: runs})
				}
				renderRecipeShow(r, rc, runs)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "runs", state.DefaultRunLimit, "Maximum number of compile runs to show")
	return cmd
}

func getStoredRecipe(ctx context.Context, store *state.SQLStore, id string) (*core.Recipe, error) {
	rc, err := store.GetRecipe(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("recipe %s not found", id)
	}
	return rc, err
}

func renderRecipeShow(r *output.Renderer, rc *core.Recipe, runs []*core.CompileRun) {
	styles := r.Styles()
	markdown := r.EffectiveMode() == output.ModeMarkdown
	if markdown {
		r.Println(output.FormatHeader(1, rc.Name))
		r.Println("")
		r.Println(output.FormatKeyValue("ID", rc.ID))
		if rc.Description != "" {
			r.Println(output.FormatKeyValue("Description", rc.Description))
		}
		r.Println(output.FormatKeyValue("Nodes", len(rc.Nodes)))
		r.Println(output.FormatKeyValue("Edges", len(rc.Edges)))
	} else {
		r.Header(1, rc.Name)
		r.StatusLine("ID", styles.ID.Render(rc.ID))
		if rc.Description != "" {
			r.StatusLine("Description", rc.Description)
		}
		r.StatusLine("Nodes", fmt.Sprint(len(rc.Nodes)))
		r.StatusLine("Edges", fmt.Sprint(len(rc.Edges)))
	}

	r.Println("")
	if markdown {
		r.Println(output.FormatHeader(2, "Compile Runs"))
		r.Println("")
	} else {
		r.Header(2, "Compile Runs")
	}
	if len(runs) == 0 {
		r.Muted("No compile runs")
		return
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		cost, detail := "", run.Error
		if run.Result != nil {
			cost = "$" + run.Result.CostString()
			detail = fmt.Sprintf("%d warning(s)", len(run.Result.Warnings))
		}
		rows = append(rows, []string{
			run.ID,
			runStatus(r, run.Status, markdown),
			string(run.TargetRuntime),
			string(run.OptimizationLevel),
			run.StartedAt.Local().Format(time.DateTime),
			cost,
			truncateOneLine(detail, 50),
		})
	}
	r.Table([]string{"Run", "Status", "Runtime", "Optimization", "Started", "Cost", "Detail"}, rows)
}

func runStatus(r *output.Renderer, status core.CompileRunStatus, plain bool) string {
	if plain {
		return string(status)
	}
	styles := r.Styles()
	switch status {
	case core.CompileRunSucceeded:
		return styles.StatusSuccess.String() + " " + string(status)
	case core.CompileRunFailed:
		return styles.StatusFailed.String() + " " + string(status)
	default:
		return styles.StatusPending.String() + " " + string(status)
	}
}

func newRecipesImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>...",
		Short: "Store recipe files in the state database",
		Long: `Store recipe files in the state database. A recipe with an id replaces
the stored recipe with that id; a recipe without one is assigned a new id.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, cmdCtx *CommandContext, store *state.SQLStore) error {
				for _, path := range args {
					rc, err := recipe.Load(path)
					if err != nil {
						return err
					}
					if err := store.SaveRecipe(ctx, rc); err != nil {
						return fmt.Errorf("failed to import %s: %w", path, err)
					}
					cmdCtx.Renderer.Success(fmt.Sprintf("Imported %s as %s", path, rc.ID))
				}
				return nil
			})
		},
	}
}

func newRecipesExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <id> <file>",
		Short: "Write a stored recipe to a file",
		Long:  `Write a stored recipe to a file. The format follows the extension (.json, .yaml, .yml).`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, cmdCtx *CommandContext, store *state.SQLStore) error {
				rc, err := getStoredRecipe(ctx, store, args[0])
				if err != nil {
					return err
				}
				if err := recipe.Save(args[1], rc); err != nil {
					return err
				}
				cmdCtx.Renderer.Success("Wrote " + args[1])
				return nil
			})
		},
	}
}

func newRecipesDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete stored recipes and their compile history",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, cmdCtx *CommandContext, store *state.SQLStore) error {
				for _, id := range args {
					if err := store.DeleteRecipe(ctx, id); err != nil {
						if errors.Is(err, core.ErrNotFound) {
							return fmt.Errorf("recipe %s not found", id)
						}
						return err
					}
					cmdCtx.Renderer.Success("Deleted " + id)
				}
				return nil
			})
		},
	}
}
