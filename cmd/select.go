package cmd

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"kcfg/internal/picker"
	"kcfg/internal/registry"
)

// For mocking in tests
var pickContext = func(ctx context.Context, cmd *cobra.Command, contexts []registry.ContextSummary) (string, error) {
	return picker.Pick(ctx, contexts, tea.WithOutput(cmd.ErrOrStderr()))
}

func newSelectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "select [NAME]",
		Aliases: []string{"use"},
		Short:   "Make a context the current context",
		Long: `Set current-context to NAME.

Without NAME an interactive list of all contexts opens with the current
context preselected. Enter selects, Esc or q cancels without writing.`,
		Args: withUsage(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := opts.newRegistry(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			var name string
			if len(args) == 1 {
				name = args[0]
			} else {
				contexts, err := reg.List(ctx)
				if err != nil {
					return err
				}
				name, err = pickContext(ctx, cmd, contexts)
				if errors.Is(err, picker.ErrCancelled) {
					fmt.Fprintln(cmd.ErrOrStderr(), "No context selected, kubeconfig unchanged")
					return nil
				}
				if err != nil {
					return err
				}
			}

			if err := reg.Select(ctx, name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Switched to context %q\n", name)
			return nil
		},
	}
}
