package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"quill/internal/store"
)

var dumpHeader = []string{
	"id", "book_title", "author", "clipping_type",
	"page", "location_start", "location_end", "date_added",
	"content", "pattern", "front", "back",
	"imported_at", "generated_at", "synced_to_anki",
}

func newDumpCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var onlyGenerated bool

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Export all records as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			var records []*store.Record
			if onlyGenerated {
				records, err = st.Generated(cmd.Context())
			} else {
				records, err = st.All(cmd.Context())
			}
			if err != nil {
				return err
			}

			var out io.Writer = cmd.OutOrStdout()
			if outputPath != "" && outputPath != "-" {
				file, err := os.Create(outputPath)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer file.Close()
				out = file
			}

			writer := csv.NewWriter(out)
			if err := writer.Write(dumpHeader); err != nil {
				return err
			}
			for _, rec := range records {
				if err := writer.Write(dumpRow(rec)); err != nil {
					return err
				}
			}
			writer.Flush()
			if err := writer.Error(); err != nil {
				return err
			}

			if outputPath != "" && outputPath != "-" {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d records to %s\n", len(records), outputPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write CSV to this file instead of stdout")
	cmd.Flags().BoolVar(&onlyGenerated, "only-generated", false, "Export only records with generated cards")

	return cmd
}

func dumpRow(rec *store.Record) []string {
	generatedAt := ""
	if rec.GeneratedAt != nil {
		generatedAt = rec.GeneratedAt.Format(time.RFC3339)
	}
	return []string{
		strconv.FormatInt(rec.ID, 10),
		rec.BookTitle,
		rec.Author,
		string(rec.Kind),
		zeroAsEmpty(rec.Page),
		strconv.Itoa(rec.LocationStart),
		zeroAsEmpty(rec.LocationEnd),
		rec.DateAdded.Format(time.RFC3339),
		rec.Content,
		string(rec.Pattern),
		rec.Front,
		rec.Back,
		rec.ImportedAt.Format(time.RFC3339),
		generatedAt,
		strconv.FormatBool(rec.Synced),
	}
}

func zeroAsEmpty(value int) string {
	if value == 0 {
		return ""
	}
	return strconv.Itoa(value)
}
