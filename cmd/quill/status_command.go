package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show record counts by processing state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			stats, err := st.Stats(cmd.Context())
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Total records", fmt.Sprintf("%d", stats.Total)},
				{"Awaiting generation", fmt.Sprintf("%d", stats.Unprocessed)},
				{"Cards generated", fmt.Sprintf("%d", stats.Generated)},
				{"Skipped by model", fmt.Sprintf("%d", stats.Skipped)},
				{"Synced to Anki", fmt.Sprintf("%d", stats.Synced)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"State", "Count"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}
}
