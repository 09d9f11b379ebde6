package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/leapstack-labs/recipekit/internal/cli/output"
	"github.com/leapstack-labs/recipekit/internal/editor"
	"github.com/leapstack-labs/recipekit/internal/recipe"
	"github.com/leapstack-labs/recipekit/internal/state"
	"github.com/leapstack-labs/recipekit/pkg/core"
	"github.com/spf13/cobra"
)

// NewCompileCommand creates the compile command.
func NewCompileCommand() *cobra.Command {
	var (
		save    bool
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "compile <recipe>",
		Short: "Compile a recipe with the compile service",
		Long: `Validate a recipe file and send it to the compile service.

The request carries the recipe graph, the optimization level and the target
runtime. Invalid recipes are reported without contacting the service.

With --save the recipe is stored in the state database first and the compile
run is recorded in its history.`,
		Example: `  # Compile with the configured settings
  recipekit compile recipes/forecast.json

  # Compile for the quantum runtime and write the generated code
  recipekit compile recipes/forecast.yaml --runtime quantum --out forecast.py

  # Store the recipe and record the run
  recipekit compile recipes/forecast.yaml --save`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, args[0], save, outPath)
		},
	}

	cmd.Flags().String("optimization-level", "", "Optimization level (basic, optimized, aggressive)")
	cmd.Flags().String("runtime", "", "Target runtime (python, javascript, quantum)")
	cmd.Flags().BoolVar(&save, "save", false, "Save the recipe and record the compile run")
	cmd.Flags().StringVar(&outPath, "out", "", "Write the compiled code to this file")

	return cmd
}

// compileSettings returns the configured settings with explicit flags applied.
func compileSettings(cmd *cobra.Command, base core.CompileSettings) (core.CompileSettings, error) {
	settings := base.WithDefaults()
	if f := cmd.Flags().Lookup("optimization-level"); f != nil && f.Changed {
		level, err := core.ParseOptimizationLevel(f.Value.String())
		if err != nil {
			return settings, err
		}
		settings.OptimizationLevel = level
	}
	if f := cmd.Flags().Lookup("runtime"); f != nil && f.Changed {
		rt, err := core.ParseTargetRuntime(f.Value.String())
		if err != nil {
			return settings, err
		}
		settings.TargetRuntime = rt
	}
	return settings, nil
}

func runCompile(cmd *cobra.Command, path string, save bool, outPath string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	settings, err := compileSettings(cmd, cmdCtx.Cfg.Compile)
	if err != nil {
		return err
	}

	rc, err := recipe.Load(path)
	if err != nil {
		return err
	}

	store, cleanup, err := cmdCtx.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	sess, err := cmdCtx.RestoreSession(ctx, store)
	if err != nil {
		return err
	}

	var compiler core.Compiler = cmdCtx.NewClient(sess)
	if save {
		if err := store.SaveRecipe(ctx, rc); err != nil {
			return fmt.Errorf("failed to save recipe: %w", err)
		}
		cmdCtx.Logger.Info("recipe saved", "id", rc.ID, "name", rc.Name)
		compiler = &state.RecordingCompiler{Next: compiler, Store: store, Logger: cmdCtx.Logger}
	}

	ed := editor.New(editor.Options{
		Compiler: compiler,
		Settings: settings,
		Logger:   cmdCtx.Logger,
		Alerter: editor.AlertFunc(func(msg string) {
			cmdCtx.Logger.Debug("compile alert", "message", msg)
		}),
	}, rc)

	mode := r.EffectiveMode()
	var spinner *output.Spinner
	if mode == output.ModeText && r.IsTTY() {
		spinner = r.NewSpinner(fmt.Sprintf("Compiling %s for %s...", rc.Name, settings.TargetRuntime))
		spinner.Start()
	}

	res, err := ed.Compile(ctx)
	if err != nil {
		if spinner != nil {
			spinner.Fail("Compilation failed")
		}
		var verr *editor.ValidationError
		if errors.As(err, &verr) {
			compileValidationErrors(r, path, verr.Errors)
			return fmt.Errorf("%s is not valid", path)
		}
		return err
	}
	if spinner != nil {
		spinner.Success("Compiled " + rc.Name)
	}

	if outPath != "" {
		if err := os.WriteFile(outPath, []byte(res.CompiledCode), 0600); err != nil {
			return fmt.Errorf("failed to write compiled code: %w", err)
		}
	}

	out := output.CompileOutput{File: path, Settings: settings, Result: res}
	switch mode {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		compileMarkdown(r, out, outPath)
	default:
		compileText(r, out, outPath)
	}
	return nil
}

func compileValidationErrors(r *output.Renderer, path string, errs []string) {
	if r.EffectiveMode() == output.ModeJSON {
		_ = r.JSON(output.ValidateOutput{File: path, Valid: false, Errors: errs, Findings: []core.Finding{}})
		return
	}
	r.Error(path + " has validation errors:")
	for _, msg := range errs {
		r.Error("  - " + msg)
	}
}

func compileText(r *output.Renderer, out output.CompileOutput, outPath string) {
	styles := r.Styles()
	res := out.Result

	r.Header(1, "Compilation Result")
	r.StatusLine("Recipe", styles.ID.Render(res.RecipeID))
	r.StatusLine("Runtime", string(out.Settings.TargetRuntime))
	r.StatusLine("Optimization", string(out.Settings.OptimizationLevel))
	r.StatusLine("Estimated cost", "$"+res.CostString())
	r.StatusLine("Estimated duration", fmt.Sprintf("%gs", res.EstimatedDuration))

	if len(res.Warnings) > 0 {
		r.Println("")
		for _, w := range res.Warnings {
			r.Warning(w)
		}
	}

	r.Println("")
	if outPath != "" {
		r.Success("Compiled code written to " + outPath)
		return
	}
	r.Println(styles.Code.Render(res.CompiledCode))
}

func compileMarkdown(r *output.Renderer, out output.CompileOutput, outPath string) {
	res := out.Result
	r.Println(output.FormatHeader(1, "Compilation Result"))
	r.Println("")
	r.Println(output.FormatKeyValue("Recipe", res.RecipeID))
	r.Println(output.FormatKeyValue("Runtime", out.Settings.TargetRuntime))
	r.Println(output.FormatKeyValue("Optimization", out.Settings.OptimizationLevel))
	r.Println(output.FormatKeyValue("Estimated cost", "$"+res.CostString()))
	r.Println(output.FormatKeyValue("Estimated duration", fmt.Sprintf("%gs", res.EstimatedDuration)))
	if len(res.Warnings) > 0 {
		r.Println("")
		r.Println(output.FormatHeader(2, "Warnings"))
		r.Println(output.FormatList(res.Warnings))
	}
	r.Println("")
	if outPath != "" {
		r.Println("Compiled code written to `" + outPath + "`.")
		return
	}
	r.Println(output.FormatCodeBlock(codeLanguage(out.Settings.TargetRuntime), res.CompiledCode))
}

func codeLanguage(rt core.TargetRuntime) string {
	switch rt {
	case core.RuntimeJavaScript:
		return "javascript"
	default:
		return "python"
	}
}
