package generate

import (
	"context"
	"errors"
	"strings"

	"quill/internal/services/openai"
	"quill/internal/store"
)

// BatchClient is the slice of the completion service used for asynchronous
// generation.
type BatchClient interface {
	SubmitBatch(ctx context.Context, items []openai.BatchItem) (string, []int64, error)
	BatchStatusByID(ctx context.Context, batchID string) (openai.BatchStatus, error)
	BatchResults(ctx context.Context, batchID string) ([]openai.BatchResult, error)
}

// SubmitBatch queues the records as one asynchronous batch job and returns
// the batch id plus the ids of the records it actually contains.
func SubmitBatch(ctx context.Context, client BatchClient, records []*store.Record) (string, []int64, error) {
	items := make([]openai.BatchItem, 0, len(records))
	for _, rec := range records {
		if strings.TrimSpace(rec.Content) == "" {
			continue
		}
		items = append(items, openai.BatchItem{
			RecordID:  rec.ID,
			BookTitle: rec.BookTitle,
			Excerpt:   rec.Content,
		})
	}
	return client.SubmitBatch(ctx, items)
}

// LoadBatch fetches a finished batch and converts its rows into pass results.
// The not-ready and failed cases pass through unchanged for the caller to
// report.
func LoadBatch(ctx context.Context, client BatchClient, batchID string) ([]Result, error) {
	raw, err := client.BatchResults(ctx, batchID)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(raw))
	for _, row := range raw {
		result := Result{RecordID: row.RecordID, Card: row.Card}
		if row.Err != "" {
			result.Err = errors.New(row.Err)
		}
		results = append(results, result)
	}
	return results, nil
}
