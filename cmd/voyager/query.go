package main

import (
	"fmt"

	"github.com/spf13/cobra"

	voyager "github.com/canbakiskan/voyager-go"
)

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <file> <v1,v2,...>",
		Short: "Print the nearest neighbors of a vector",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, _ := cmd.Flags().GetInt("k")
			ef, _ := cmd.Flags().GetInt("ef")

			q, err := parseVector(args[1])
			if err != nil {
				return fmt.Errorf("query vector: %w", err)
			}
			idx, err := openIndex(cmd, args[0])
			if err != nil {
				return err
			}
			defer idx.Close()

			res, err := idx.Query(q, k, voyager.WithQueryEf(ef))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i := range res.Labels {
				fmt.Fprintf(out, "%d\t%g\n", res.Labels[i], res.Distances[i])
			}
			return nil
		},
	}
	cmd.Flags().Int("k", 10, "number of neighbors")
	cmd.Flags().Int("ef", 0, "candidate list size (0 keeps the stored default)")
	return cmd
}
