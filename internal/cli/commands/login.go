package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/leapstack-labs/recipekit/internal/api"
	"github.com/leapstack-labs/recipekit/internal/portal"
	"github.com/leapstack-labs/recipekit/internal/session"
	"github.com/leapstack-labs/recipekit/internal/state"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the compile service",
		Long: `Exchange an email and password for a bearer token and store the token in
the state database under the active profile.

The password is read without echo from a terminal, or as the first line of
standard input when it is piped.`,
		Example: `  recipekit login --email ada@example.com
  echo "$PASSWORD" | recipekit login --email ada@example.com --profile ci`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogin(cmd, email)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token of the active profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, cmdCtx *CommandContext, store *state.SQLStore) error {
				auth := portal.NewAuthSlice(cmdCtx.NewClient(session.New("")), store, cmdCtx.Cfg.Profile, cmdCtx.Logger)
				if err := auth.Logout(ctx); err != nil {
					return err
				}
				cmdCtx.Renderer.Success("Logged out of profile " + cmdCtx.Cfg.Profile)
				return nil
			})
		},
	}
}

func runLogin(cmd *cobra.Command, email string) error {
	in := bufio.NewReader(cmd.InOrStdin())
	stdinTTY := isStdinTerminal(cmd)

	if email == "" {
		if !stdinTTY {
			return errors.New("--email is required when stdin is not a terminal")
		}
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Email: ")
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		email = strings.TrimSpace(line)
	}

	password, err := readPassword(cmd, in, stdinTTY)
	if err != nil {
		return err
	}
	if email == "" || password == "" {
		return errors.New("email and password are required")
	}

	return withStore(cmd, func(ctx context.Context, cmdCtx *CommandContext, store *state.SQLStore) error {
		client := cmdCtx.NewClient(session.New(""))
		auth := portal.NewAuthSlice(client, store, cmdCtx.Cfg.Profile, cmdCtx.Logger)

		user, err := auth.Login(ctx, api.Credentials{Email: email, Password: password})
		if err != nil {
			if api.IsUnauthorized(err) {
				return errors.New("login failed: invalid email or password")
			}
			return fmt.Errorf("login failed: %w", err)
		}

		who := email
		if user != nil && user.Name != "" {
			who = fmt.Sprintf("%s <%s>", user.Name, user.Email)
		}
		cmdCtx.Renderer.Success(fmt.Sprintf("Logged in as %s (profile %s)", who, cmdCtx.Cfg.Profile))
		return nil
	})
}

func isStdinTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.InOrStdin().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func readPassword(cmd *cobra.Command, in *bufio.Reader, tty bool) (string, error) {
	if tty {
		f := cmd.InOrStdin().(*os.File)
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
