package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of kcfg",
		Long:  `All software has versions. This is kcfg's.`,
		Args:  withUsage(cobra.NoArgs),
		// Printing the version needs neither logging nor configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kcfg version %s\n", version)
		},
	}
}
