package cmd

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"kcfg/internal/config"
	"kcfg/internal/registry"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the contexts in the kubeconfig",
		Long: `List all contexts sorted by name. The current context is marked with '*'.

Output formats:
  plain  - one context per line (default)
  table  - contexts with their cluster, user and namespace
  json   - machine readable
  yaml   - machine readable`,
		Args: withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := opts.outputFormat(output, config.OutputFormats...)
			if err != nil {
				return err
			}
			reg, err := opts.newRegistry(cmd)
			if err != nil {
				return err
			}
			contexts, err := reg.List(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			switch format {
			case config.OutputTable:
				printContextTable(w, contexts)
				return nil
			case config.OutputJSON, config.OutputYAML:
				return printStructured(w, format, contexts)
			default:
				for _, c := range contexts {
					marker := " "
					if c.Current {
						marker = "*"
					}
					fmt.Fprintf(w, "%s %s\n", marker, c.Name)
				}
				return nil
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output format: plain, table, json or yaml")
	return cmd
}

func printContextTable(w io.Writer, contexts []registry.ContextSummary) {
	if len(contexts) == 0 {
		fmt.Fprintln(w, "No contexts found")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Current", "Name", "Cluster", "User", "Namespace"})
	for _, c := range contexts {
		current := ""
		if c.Current {
			current = "*"
		}
		namespace := c.Namespace
		if namespace == "" {
			namespace = "-"
		}
		t.AppendRow(table.Row{current, c.Name, c.Cluster, c.User, namespace})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignCenter},
	})
	t.Render()
}
