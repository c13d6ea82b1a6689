// Package reconcile repairs drift between the local store and the Anki deck,
// then pushes pending cards. The store is ground truth for content; the deck
// is ground truth for what actually survived in Anki.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"quill/internal/anki"
	"quill/internal/logging"
	"quill/internal/services"
	"quill/internal/store"
)

// Store is the slice of record persistence reconciliation needs.
type Store interface {
	Synced(ctx context.Context) ([]*store.Record, error)
	Unsynced(ctx context.Context) ([]*store.Record, error)
	ResetGenerated(ctx context.Context, ids []int64) (int64, error)
	MarkSynced(ctx context.Context, id int64) error
}

// Deck is the slice of the Anki client reconciliation needs.
type Deck interface {
	DeckCards(ctx context.Context) ([]anki.Note, error)
	AddNote(ctx context.Context, note anki.Note) (int64, error)
}

// Report describes one reconciliation sweep.
type Report struct {
	// Repaired lists records the store believed were synced but the deck no
	// longer holds; their generated state was reset so they regenerate.
	Repaired []int64
	// Untracked lists record ids present in the deck but not marked synced
	// locally. These are reported, never auto-repaired: deleting a user's
	// cards is not this tool's call.
	Untracked []int64
	// Foreign counts deck notes whose id field does not parse as a record
	// id, typically cards added by hand or by another tool. Reported only.
	Foreign int
}

// InSync reports whether the sweep found no drift.
func (r Report) InSync() bool {
	return len(r.Repaired) == 0 && len(r.Untracked) == 0 && r.Foreign == 0
}

// Summary describes one push pass.
type Summary struct {
	Synced int
	Errors int
}

// Reconcile compares synced records against the deck's actual contents and
// repairs records whose cards disappeared. Running it twice in a row is a
// no-op the second time.
func Reconcile(ctx context.Context, st Store, deck Deck, logger *slog.Logger) (Report, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	var report Report

	synced, err := st.Synced(ctx)
	if err != nil {
		return report, fmt.Errorf("load synced records: %w", err)
	}
	notes, err := deck.DeckCards(ctx)
	if err != nil {
		return report, err
	}

	external := make(map[int64]bool, len(notes))
	for _, note := range notes {
		if note.RecordID == 0 {
			report.Foreign++
			continue
		}
		external[note.RecordID] = true
	}
	local := make(map[int64]bool, len(synced))
	for _, rec := range synced {
		local[rec.ID] = true
		if !external[rec.ID] {
			report.Repaired = append(report.Repaired, rec.ID)
		}
	}
	for id := range external {
		if !local[id] {
			report.Untracked = append(report.Untracked, id)
		}
	}
	sort.Slice(report.Repaired, func(i, j int) bool { return report.Repaired[i] < report.Repaired[j] })
	sort.Slice(report.Untracked, func(i, j int) bool { return report.Untracked[i] < report.Untracked[j] })

	if len(report.Repaired) > 0 {
		logger.Warn("cards missing from deck, resetting for regeneration",
			logging.Int("count", len(report.Repaired)))
		if _, err := st.ResetGenerated(ctx, report.Repaired); err != nil {
			return report, fmt.Errorf("reset records missing from deck: %w", err)
		}
	}
	if len(report.Untracked) > 0 {
		logger.Warn("deck holds cards this store never synced",
			logging.Int("count", len(report.Untracked)))
	}
	if report.Foreign > 0 {
		logger.Warn("deck holds cards without a readable record id",
			logging.Int("count", report.Foreign))
	}
	return report, nil
}

// Push sends every pending generated card to the deck. A rejected card is
// logged and skipped so the rest of the pass proceeds; an unreachable deck
// aborts the pass since nothing further can succeed.
func Push(ctx context.Context, st Store, deck Deck, logger *slog.Logger) (Summary, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	var summary Summary

	pending, err := st.Unsynced(ctx)
	if err != nil {
		return summary, fmt.Errorf("load unsynced records: %w", err)
	}

	for _, rec := range pending {
		note := anki.Note{
			RecordID:         rec.ID,
			BookTitle:        rec.BookTitle,
			Author:           rec.Author,
			OriginalClipping: rec.Content,
			Front:            rec.Front,
			Back:             rec.Back,
			Pattern:          rec.Pattern,
		}
		if _, err := deck.AddNote(ctx, note); err != nil {
			if errors.Is(err, services.ErrUnreachable) {
				return summary, err
			}
			summary.Errors++
			logger.Warn("card rejected by deck",
				logging.Int64(logging.FieldRecordID, rec.ID),
				logging.Error(err))
			continue
		}
		if err := st.MarkSynced(ctx, rec.ID); err != nil {
			return summary, fmt.Errorf("mark record %d synced: %w", rec.ID, err)
		}
		summary.Synced++
	}
	return summary, nil
}
