package main

import (
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Print index parameters and graph statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := openIndex(cmd, args[0])
			if err != nil {
				return err
			}
			defer idx.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, idx)

			stats := idx.Stats()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "live\t%d\n", idx.Len())
			fmt.Fprintf(tw, "deleted\t%d\n", idx.NumElements()-idx.Len())
			for _, section := range []map[string]string{stats.Parameters, stats.Storage} {
				keys := make([]string, 0, len(section))
				for k := range section {
					keys = append(keys, k)
				}
				slices.Sort(keys)
				for _, k := range keys {
					fmt.Fprintf(tw, "%s\t%s\n", k, section[k])
				}
			}
			return tw.Flush()
		},
	}
}
