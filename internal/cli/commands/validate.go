package commands

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/recipekit/internal/cli/output"
	"github.com/leapstack-labs/recipekit/internal/recipe"
	"github.com/leapstack-labs/recipekit/pkg/core"
	"github.com/spf13/cobra"
)

// watchDebounce delays re-validation so an editor's write burst runs it once.
const watchDebounce = 100 * time.Millisecond

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "validate <recipe>...",
		Short: "Validate recipe files",
		Long: `Validate one or more recipe files (.json, .yaml, .yml).

Validation errors are the checks that block compilation: the recipe needs
nodes, an output node, a data source node, and no disconnected nodes.
Lint findings (cycles, bad node config, unparsable conditions) are reported
but never fail the command.

With --watch the files are re-validated whenever they change.`,
		Example: `  # Validate a recipe
  recipekit validate recipes/forecast.json

  # Validate every recipe in a directory as JSON
  recipekit validate recipes/*.yaml --output json

  # Re-validate on save
  recipekit validate recipes/forecast.yaml --watch`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				return runValidateWatch(ctx, cmd, args)
			}
			return runValidate(cmd, args)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-validate when files change")
	return cmd
}

// validateFile loads and checks one recipe file.
func validateFile(path string) output.ValidateOutput {
	out := output.ValidateOutput{File: path, Errors: []string{}, Findings: []core.Finding{}}
	rc, err := recipe.Load(path)
	if err != nil {
		out.Errors = append(out.Errors, err.Error())
		return out
	}
	out.Errors = append(out.Errors, recipe.Validate(rc.Nodes, rc.Edges)...)
	out.Findings = append(out.Findings, recipe.Lint(rc)...)
	out.Valid = len(out.Errors) == 0
	return out
}

func runValidate(cmd *cobra.Command, paths []string) error {
	r := NewCommandContext(cmd).Renderer

	results := make([]output.ValidateOutput, 0, len(paths))
	failed := 0
	for _, path := range paths {
		res := validateFile(path)
		if !res.Valid {
			failed++
		}
		results = append(results, res)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(results); err != nil {
			return err
		}
	case output.ModeMarkdown:
		validateMarkdown(r, results)
	default:
		for _, res := range results {
			validateText(r, res)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d recipe(s) failed validation", failed, len(paths))
	}
	return nil
}

func validateText(r *output.Renderer, res output.ValidateOutput) {
	styles := r.Styles()
	if res.Valid {
		r.Success(res.File)
	} else {
		r.Println(styles.StatusFailed.String() + " " + styles.Bold.Render(res.File))
		for _, msg := range res.Errors {
			r.Println("    " + styles.Error.Render(msg))
		}
	}
	for _, f := range res.Findings {
		style := getSeverityStyle(styles, f.Severity)
		r.Printf("    %s %s %s\n", style.Render(f.Severity.String()), styles.Muted.Render("["+f.Code+"]"), f.Message)
	}
}

func validateMarkdown(r *output.Renderer, results []output.ValidateOutput) {
	r.Println(output.FormatHeader(1, "Validation"))
	for _, res := range results {
		r.Println("")
		status := "valid"
		if !res.Valid {
			status = "invalid"
		}
		r.Println(output.FormatHeader(2, fmt.Sprintf("%s (%s)", res.File, status)))
		if len(res.Errors) > 0 {
			r.Println("")
			r.Println(output.FormatList(res.Errors))
		}
		if len(res.Findings) > 0 {
			r.Println("")
			items := make([]string, 0, len(res.Findings))
			for _, f := range res.Findings {
				items = append(items, fmt.Sprintf("**%s** `%s` %s", f.Severity, f.Code, f.Message))
			}
			r.Println(output.FormatList(items))
		}
	}
}

// runValidateWatch validates once, then again after every change to one of paths.
func runValidateWatch(ctx context.Context, cmd *cobra.Command, paths []string) error {
	cmdCtx := NewCommandContext(cmd)
	logger := cmdCtx.Logger

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the parent directories: editors often replace files on save.
	watched := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		watched[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	revalidate := make(chan struct{}, 1)
	revalidate <- struct{}{}

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-revalidate:
			if err := runValidate(cmd, paths); err != nil {
				cmdCtx.Renderer.Muted(err.Error())
			}
			cmdCtx.Renderer.Muted(fmt.Sprintf("watching %d file(s), Ctrl+C to stop", len(paths)))

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !watched[filepath.Clean(event.Name)] {
				continue
			}

			// Debounce
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(watchDebounce, func() {
				logger.Debug("recipe changed, re-validating", "file", event.Name)
				select {
				case revalidate <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)
		}
	}
}
