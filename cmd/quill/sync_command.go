package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"quill/internal/anki"
	"quill/internal/logging"
	"quill/internal/preflight"
	"quill/internal/reconcile"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push generated cards to Anki and reconcile drift",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			if err := preflight.Error(preflight.RunAll(cmd.Context(), cfg, false, true)); err != nil {
				return err
			}

			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			runLogger := logger.With(logging.String(logging.FieldRunID, uuid.NewString()))
			deck := anki.NewClient(cfg, runLogger)

			if err := deck.Setup(cmd.Context()); err != nil {
				return err
			}

			report, err := reconcile.Reconcile(cmd.Context(), st, deck, runLogger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if report.InSync() {
				fmt.Fprintln(out, "Deck and database are in sync")
			} else {
				if len(report.Repaired) > 0 {
					fmt.Fprintf(out, "Repaired %d records whose cards vanished from the deck; rerun generate to rebuild them\n", len(report.Repaired))
				}
				if len(report.Untracked) > 0 {
					fmt.Fprintf(out, "Found %d deck cards not tracked locally (left untouched)\n", len(report.Untracked))
				}
				if report.Foreign > 0 {
					fmt.Fprintf(out, "Found %d deck cards without a readable record id (left untouched)\n", report.Foreign)
				}
			}

			summary, err := reconcile.Push(cmd.Context(), st, deck, runLogger)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Synced %d cards to deck %q\n", summary.Synced, deck.Deck())
			if summary.Errors > 0 {
				fmt.Fprintf(out, "Errors: %d (cards rejected by Anki, see log)\n", summary.Errors)
			}
			return nil
		},
	}
}
