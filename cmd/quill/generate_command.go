package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"quill/internal/generate"
	"quill/internal/logging"
	"quill/internal/preflight"
	"quill/internal/services/openai"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var bookTitles []string
	var maxGenerations int
	var parallel int

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate flashcards for unprocessed highlights",
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

			if err := preflight.Error(preflight.RunAll(cmd.Context(), cfg, true, false)); err != nil {
				return err
			}

			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := selectUnprocessed(cmd.Context(), st, bookTitles, maxGenerations)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to generate")
				return nil
			}

			if parallel <= 0 {
				parallel = cfg.OpenAI.ParallelRequests
			}

			runLogger := logger.With(logging.String(logging.FieldRunID, uuid.NewString()))
			runLogger.Info("generation pass starting",
				logging.Int("records", len(records)),
				logging.Int("parallel", parallel))

			client := openai.NewClient(openai.Config{
				APIKey:         cfg.OpenAI.APIKey,
				BaseURL:        cfg.OpenAI.BaseURL,
				Model:          cfg.OpenAI.Model,
				TimeoutSeconds: cfg.OpenAI.TimeoutSeconds,
			})
			orchestrator := generate.NewOrchestrator(client, parallel, runLogger)

			results := orchestrator.GenerateAll(cmd.Context(), records)
			summary, err := generate.Apply(cmd.Context(), st, results)
			if err != nil {
				return err
			}

			printGenerationSummary(cmd, summary)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&bookTitles, "book", nil, "Only generate for this book title (repeatable)")
	cmd.Flags().IntVar(&maxGenerations, "max-generations", 0, "Cap the number of highlights processed (0 = no cap)")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "Concurrent requests (0 = config default)")

	return cmd
}

func printGenerationSummary(cmd *cobra.Command, summary generate.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Generated %d cards\n", summary.Generated)
	fmt.Fprintf(out, "Skipped %d highlights (SKIP verdict or too short)\n", summary.Skipped)
	if summary.Errors > 0 {
		fmt.Fprintf(out, "Errors: %d (rerun generate to retry)\n", summary.Errors)
	}
}
