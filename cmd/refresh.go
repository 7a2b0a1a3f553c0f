package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRefreshCmd(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "refresh NAME",
		Short: "Refresh the credential of a context",
		Long: `Refresh the credential of the user bound to context NAME.

exec credentials are renewed by running the user's credential plugin and
caching its token in the kubeconfig. OIDC credentials are renewed with the
stored refresh token. A credential that is still fresh is left alone unless
--force is given. Other credential kinds cannot be refreshed.`,
		Args: withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := opts.newRegistry(cmd)
			if err != nil {
				return err
			}
			res, err := reg.Refresh(cmd.Context(), args[0], force)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if !res.Refreshed {
				fmt.Fprintf(w, "Credential of user %q for context %q is still fresh (expires %s), use --force to refresh anyway\n",
					res.User, res.Context, describeExpiry(res.Status.ExpiresAt))
				return nil
			}
			fmt.Fprintf(w, "Refreshed %s credential of user %q for context %q (expires %s)\n",
				res.Kind, res.User, res.Context, describeExpiry(res.Status.ExpiresAt))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Refresh even if the credential is still fresh")
	return cmd
}
