package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newDedupCmd(opts *rootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "dedup",
		Short: "Merge contexts that point at the same cluster with the same credentials",
		Long: `Find contexts that resolve to the same cluster, the same credentials and the
same namespace, and keep one of each group. The current context is kept if
it is part of a group, otherwise the alphabetically first one. Clusters and
users left unused are removed unless --keep-orphans is given.`,
		Args: withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := opts.newRegistry(cmd)
			if err != nil {
				return err
			}
			results, err := reg.Dedup(cmd.Context(), dryRun)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(w, "No duplicate contexts found")
				return nil
			}

			verb := "Merged"
			if dryRun {
				verb = "Would merge"
			}
			for _, res := range results {
				fmt.Fprintf(w, "%s %s into %q\n", verb, strings.Join(quoteAll(res.Contexts), ", "), res.Canonical)
				if len(res.Clusters) > 0 {
					fmt.Fprintf(w, "  clusters removed: %s\n", strings.Join(res.Clusters, ", "))
				}
				if len(res.Users) > 0 {
					fmt.Fprintf(w, "  users removed: %s\n", strings.Join(res.Users, ", "))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be merged without writing")
	cmd.Flags().Bool("keep-orphans", false, "Keep clusters and users no context references any more")
	return cmd
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = fmt.Sprintf("%q", n)
	}
	return out
}
