package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/leapstack-labs/recipekit/internal/api"
	"github.com/leapstack-labs/recipekit/internal/cli/output"
	"github.com/leapstack-labs/recipekit/internal/portal"
	"github.com/leapstack-labs/recipekit/internal/state"
	"github.com/spf13/cobra"
)

// errNotLoggedIn is returned by commands that need a stored token.
var errNotLoggedIn = errors.New("not logged in (run 'recipekit login')")

// NewPodsCommand creates the pods command.
func NewPodsCommand() *cobra.Command {
	var operations bool

	cmd := &cobra.Command{
		Use:   "pods",
		Short: "List business pods",
		Long: `List the business pods of the logged-in account, or with --operations the
operations running in them.`,
		Example: `  recipekit pods
  recipekit pods --operations -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, cmdCtx *CommandContext, store *state.SQLStore) error {
				sess, err := cmdCtx.RestoreSession(ctx, store)
				if err != nil {
					return err
				}
				if !sess.Authenticated() {
					return errNotLoggedIn
				}
				client := cmdCtx.NewClient(sess)
				if operations {
					return listOperations(ctx, cmdCtx.Renderer, portal.NewOperationsSlice(client))
				}
				return listPods(ctx, cmdCtx.Renderer, portal.NewBusinessPodsSlice(client))
			})
		},
	}

	cmd.Flags().BoolVar(&operations, "operations", false, "List operations instead of pods")
	return cmd
}

func portalError(err error) error {
	if api.IsUnauthorized(err) {
		return fmt.Errorf("session expired: %w", errNotLoggedIn)
	}
	return err
}

func listPods(ctx context.Context, r *output.Renderer, slice *portal.BusinessPodsSlice) error {
	pods, err := slice.Fetch(ctx)
	if err != nil {
		return portalError(err)
	}
	if r.EffectiveMode() == output.ModeJSON {
		if pods == nil {
			pods = []api.BusinessPod{}
		}
		return r.JSON(map[string]any{"pods": pods})
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatHeader(1, "Business Pods"))
		r.Println("")
	}
	if len(pods) == 0 {
		r.Muted("No business pods")
		return nil
	}
	rows := make([][]string, 0, len(pods))
	for _, p := range pods {
		rows = append(rows, []string{
			p.ID,
			p.Name,
			p.Status,
			fmt.Sprint(p.MemberCount),
			fmt.Sprintf("%.2f", p.QEI),
			fmt.Sprintf("%.1f", p.Momentum),
		})
	}
	r.Table([]string{"ID", "Name", "Status", "Members", "QEI", "Momentum"}, rows)
	return nil
}

func listOperations(ctx context.Context, r *output.Renderer, slice *portal.OperationsSlice) error {
	ops, err := slice.Fetch(ctx)
	if err != nil {
		return portalError(err)
	}
	if r.EffectiveMode() == output.ModeJSON {
		if ops == nil {
			ops = []api.Operation{}
		}
		return r.JSON(map[string]any{"operations": ops})
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatHeader(1, "Operations"))
		r.Println("")
	}
	if len(ops) == 0 {
		r.Muted("No operations")
		return nil
	}
	rows := make([][]string, 0, len(ops))
	for _, op := range ops {
		rows = append(rows, []string{
			op.ID,
			op.PodID,
			op.Type,
			op.Status,
			fmt.Sprintf("%.0f%%", op.Progress),
		})
	}
	r.Table([]string{"ID", "Pod", "Type", "Status", "Progress"}, rows)
	return nil
}
