package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResetCommand(ctx *commandContext) *cobra.Command {
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear generation or sync state so records are processed again",
	}

	resetCmd.AddCommand(newResetGenerationsCommand(ctx))
	resetCmd.AddCommand(newResetSyncedCommand(ctx))

	return resetCmd
}

func newResetGenerationsCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "generations",
		Short: "Discard all generated cards so every highlight regenerates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				ok, err := confirm(cmd, "Discard all generated cards?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
					return nil
				}
			}

			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			affected, err := st.ResetAllGenerated(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset generation state on %d records\n", affected)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")
	return cmd
}

func newResetSyncedCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "synced",
		Short: "Forget which cards were pushed so the next sync resends them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				ok, err := confirm(cmd, "Mark all synced cards as unsynced?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
					return nil
				}
			}

			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			affected, err := st.ResetAllSynced(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset sync state on %d records\n", affected)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")
	return cmd
}
