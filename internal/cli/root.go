// Package cli provides the command-line interface for recipekit.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/recipekit/internal/cli/commands"
	"github.com/leapstack-labs/recipekit/internal/cli/config"
	"github.com/leapstack-labs/recipekit/internal/cli/output"
	"github.com/leapstack-labs/recipekit/pkg/core"
	"github.com/spf13/cobra"
)

var (
	cfgFile    string
	targetFlag string
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "recipekit",
		Short: "recipekit - pipeline recipe editor and compile client",
		Long: `recipekit authors pipeline recipes: directed graphs of data sources,
processors, AI models, quantum steps, conditionals, integrations and outputs.

Recipes are validated locally, compiled by a remote compile service into
runnable code, and stored with their compile history in a state database.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			// Local flags of the command (compile settings) map to config keys too.
			cfg, err := config.LoadConfigWithTarget(cfgFile, targetFlag, cmd.Flags())
			if err != nil {
				return err
			}

			level := slog.LevelWarn
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			cmd.SetContext(config.WithLogger(cmd.Context(), logger))

			// Print config file used (if verbose)
			if cfg.Verbose {
				if configFile := config.GetConfigFileUsed(); configFile != "" {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Using config file: %s\n", configFile)
				}
				if targetFlag != "" {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Using environment: %s\n", targetFlag)
				}
			}

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set version template
	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./recipekit.yaml)")
	rootCmd.PersistentFlags().StringVarP(&targetFlag, "target", "t", "", "Environment to use (e.g., dev, staging, prod)")
	rootCmd.PersistentFlags().String("api-url", "", "Compile service base URL")
	rootCmd.PersistentFlags().String("state", "", "Path to the SQLite state database")
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL URL for the state database (overrides --state)")
	rootCmd.PersistentFlags().String("profile", "", "Token profile to use")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Compile service request timeout")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (auto|text|markdown|json)")

	// Register completion for output flag
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return output.Modes, cobra.ShellCompDirectiveNoFileComp
	})

	// Register completion for target flag
	_ = rootCmd.RegisterFlagCompletionFunc("target", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		// Return common environment names
		return []string{"dev", "staging", "prod"}, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(commands.NewDoctorCommand())
	rootCmd.AddCommand(commands.NewNodesCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewPlanCommand())
	rootCmd.AddCommand(commands.NewCompileCommand())
	rootCmd.AddCommand(commands.NewEditCommand())
	rootCmd.AddCommand(commands.NewRecipesCommand())
	rootCmd.AddCommand(commands.NewLoginCommand())
	rootCmd.AddCommand(commands.NewLogoutCommand())
	rootCmd.AddCommand(commands.NewPodsCommand())
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	registerCompileFlagCompletion(rootCmd)

	return rootCmd
}

// registerCompileFlagCompletion completes compile settings wherever a command defines them.
func registerCompileFlagCompletion(root *cobra.Command) {
	levels := []string{string(core.OptimizationBasic), string(core.OptimizationOptimized), string(core.OptimizationAggressive)}
	runtimes := []string{string(core.RuntimePython), string(core.RuntimeJavaScript), string(core.RuntimeQuantum)}
	for _, cmd := range root.Commands() {
		if cmd.Flags().Lookup("optimization-level") != nil {
			_ = cmd.RegisterFlagCompletionFunc("optimization-level", cobra.FixedCompletions(levels, cobra.ShellCompDirectiveNoFileComp))
		}
		if cmd.Flags().Lookup("runtime") != nil {
			_ = cmd.RegisterFlagCompletionFunc("runtime", cobra.FixedCompletions(runtimes, cobra.ShellCompDirectiveNoFileComp))
		}
	}
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for recipekit.

To load completions:

Bash:
  $ source <(recipekit completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ recipekit completion bash > /etc/bash_completion.d/recipekit
  # macOS:
  $ recipekit completion bash > $(brew --prefix)/etc/bash_completion.d/recipekit

Zsh:
  $ recipekit completion zsh > "${fpath[1]}/_recipekit"

Fish:
  $ recipekit completion fish > ~/.config/fish/completions/recipekit.fish

PowerShell:
  PS> recipekit completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
