package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"quill/internal/config"
	"quill/internal/generate"
	"quill/internal/logging"
	"quill/internal/preflight"
	"quill/internal/services"
	"quill/internal/services/openai"
)

func newGenerateBatchCommand(ctx *commandContext) *cobra.Command {
	var bookTitles []string
	var maxGenerations int
	var loadBatchID string

	cmd := &cobra.Command{
		Use:   "generate-batch",
		Short: "Generate flashcards through the asynchronous batch endpoint",
		Long: "Submits unprocessed highlights as one batch job at reduced cost. " +
			"Batches finish within 24 hours; rerun with --load-batch-id to collect the results.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			if err := preflight.Error(preflight.RunAll(cmd.Context(), cfg, true, false)); err != nil {
				return err
			}

			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			client := batchClient(cfg)
			runLogger := logger.With(logging.String(logging.FieldRunID, uuid.NewString()))

			if loadBatchID != "" {
				results, err := generate.LoadBatch(cmd.Context(), client, loadBatchID)
				if errors.Is(err, services.ErrNotReady) {
					fmt.Fprintf(cmd.OutOrStdout(), "Batch %s is still processing, try again later\n", loadBatchID)
					return nil
				}
				if err != nil {
					return err
				}
				summary, err := generate.Apply(cmd.Context(), st, results)
				if err != nil {
					return err
				}
				runLogger.Info("batch loaded",
					logging.String("batch_id", loadBatchID),
					logging.Int("generated", summary.Generated),
					logging.Int("skipped", summary.Skipped),
					logging.Int("errors", summary.Errors))
				printGenerationSummary(cmd, summary)
				return nil
			}

			records, err := selectUnprocessed(cmd.Context(), st, bookTitles, maxGenerations)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to generate")
				return nil
			}

			batchID, included, err := generate.SubmitBatch(cmd.Context(), client, records)
			if err != nil {
				return err
			}
			if batchID == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to generate (no highlights with content)")
				return nil
			}

			runLogger.Info("batch submitted",
				logging.String("batch_id", batchID),
				logging.Int("records", len(included)))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Submitted batch %s with %d highlights\n", batchID, len(included))
			fmt.Fprintf(out, "Collect the results with: quill generate-batch --load-batch-id %s\n", batchID)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&bookTitles, "book", nil, "Only generate for this book title (repeatable)")
	cmd.Flags().IntVar(&maxGenerations, "max-generations", 0, "Cap the number of highlights submitted (0 = no cap)")
	cmd.Flags().StringVar(&loadBatchID, "load-batch-id", "", "Load the results of a previously submitted batch")

	return cmd
}

func batchClient(cfg *config.Config) *openai.Client {
	return openai.NewClient(openai.Config{
		APIKey:         cfg.OpenAI.APIKey,
		BaseURL:        cfg.OpenAI.BaseURL,
		Model:          cfg.OpenAI.Model,
		TimeoutSeconds: cfg.OpenAI.TimeoutSeconds,
	})
}
