// Package generate fans excerpts out to the completion service and applies
// the resulting cards to the store.
package generate

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"quill/internal/cards"
	"quill/internal/logging"
	"quill/internal/store"
)

// Excerpts shorter than this never carry a complete idea, so they are skipped
// locally instead of spending a request.
const minContentLength = 20

// CardGenerator produces one card per excerpt.
type CardGenerator interface {
	GenerateCard(ctx context.Context, bookTitle, excerpt string) (cards.Card, error)
}

// CardWriter persists a generated card against its record.
type CardWriter interface {
	WriteGenerated(ctx context.Context, id int64, card cards.Card) error
}

// Result is the generation outcome for one record. A zero Pattern with a nil
// Err means the record was skipped locally and must stay unprocessed.
type Result struct {
	RecordID int64
	Card     cards.Card
	Err      error
}

// Summary aggregates one generation pass.
type Summary struct {
	Generated int
	Skipped   int
	Errors    int
}

// Orchestrator coordinates parallel generation passes.
type Orchestrator struct {
	gen      CardGenerator
	logger   *slog.Logger
	parallel int
}

// NewOrchestrator builds an orchestrator with the given parallelism limit.
func NewOrchestrator(gen CardGenerator, parallel int, logger *slog.Logger) *Orchestrator {
	if parallel <= 0 {
		parallel = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{gen: gen, logger: logger, parallel: parallel}
}

// GenerateAll runs one generation request per record, at most the configured
// number in flight at once. Every input record produces exactly one Result;
// failures never abort the pass.
func (o *Orchestrator) GenerateAll(ctx context.Context, records []*store.Record) []Result {
	results := make([]Result, len(records))
	sem := make(chan struct{}, o.parallel)
	var wg sync.WaitGroup

	for i, rec := range records {
		wg.Add(1)
		go func(i int, rec *store.Record) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = o.generateOne(ctx, rec)
		}(i, rec)
	}
	wg.Wait()
	return results
}

func (o *Orchestrator) generateOne(ctx context.Context, rec *store.Record) Result {
	result := Result{RecordID: rec.ID}

	content := strings.TrimSpace(rec.Content)
	if len(content) < minContentLength {
		o.logger.Debug("skipping short excerpt",
			logging.Int64(logging.FieldRecordID, rec.ID),
			logging.Int("length", len(content)))
		return result
	}
	if ctx.Err() != nil {
		result.Err = ctx.Err()
		return result
	}

	card, err := o.gen.GenerateCard(ctx, rec.BookTitle, content)
	if err != nil {
		o.logger.Warn("card generation failed",
			logging.Int64(logging.FieldRecordID, rec.ID),
			logging.String(logging.FieldBook, rec.BookTitle),
			logging.Error(err))
		result.Err = err
		return result
	}

	result.Card = card
	return result
}

// Apply writes the pass results to the store. Every model verdict is
// persisted, SKIP included, so the record never re-enters the unprocessed
// pool; locally skipped records are left untouched.
func Apply(ctx context.Context, writer CardWriter, results []Result) (Summary, error) {
	var summary Summary
	for _, result := range results {
		if result.Err != nil {
			summary.Errors++
			continue
		}
		if result.Card.Pattern == "" {
			summary.Skipped++
			continue
		}
		if err := writer.WriteGenerated(ctx, result.RecordID, result.Card); err != nil {
			return summary, err
		}
		if result.Card.Pattern == cards.PatternSkip {
			summary.Skipped++
		} else {
			summary.Generated++
		}
	}
	return summary, nil
}
