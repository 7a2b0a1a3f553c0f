package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"kcfg/internal/config"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "status NAME",
		Short: "Show whether the credential of a context is still valid",
		Long: `Report the credential kind of the user bound to context NAME and whether
it is fresh, expired or of unknown validity. Nothing is written.`,
		Args: withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := opts.outputFormat(output, config.OutputPlain, config.OutputJSON, config.OutputYAML)
			if err != nil {
				return err
			}
			reg, err := opts.newRegistry(cmd)
			if err != nil {
				return err
			}
			st, err := reg.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if format != config.OutputPlain {
				return printStructured(w, format, st)
			}
			fmt.Fprintf(w, "Context:   %s\n", st.Context)
			fmt.Fprintf(w, "User:      %s\n", st.User)
			fmt.Fprintf(w, "Kind:      %s\n", st.Kind)
			fmt.Fprintf(w, "Staleness: %s\n", st.Staleness)
			fmt.Fprintf(w, "Expires:   %s\n", describeExpiry(st.ExpiresAt))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output format: plain, json or yaml")
	return cmd
}
