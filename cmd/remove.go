package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRemoveCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove NAME...",
		Aliases: []string{"rm"},
		Short:   "Remove contexts from the kubeconfig",
		Long: `Remove the named contexts. Clusters and users that no remaining context
references are removed as well unless --keep-orphans is given. If the current
context is removed, current-context is cleared.

All names are checked first: if one does not exist, nothing is removed.`,
		Args: withUsage(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := opts.newRegistry(cmd)
			if err != nil {
				return err
			}
			res, err := reg.Remove(cmd.Context(), args)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, name := range res.Contexts {
				fmt.Fprintf(w, "Removed context %q\n", name)
			}
			for _, name := range res.Clusters {
				fmt.Fprintf(w, "Removed cluster %q\n", name)
			}
			for _, name := range res.Users {
				fmt.Fprintf(w, "Removed user %q\n", name)
			}
			if res.CurrentCleared {
				fmt.Fprintln(w, "No context is current any more, use 'kcfg select' to choose one")
			}
			return nil
		},
	}

	cmd.Flags().Bool("keep-orphans", false, "Keep clusters and users no context references any more")
	return cmd
}
