package store_test

import (
	"context"
	"testing"
	"time"

	"quill/internal/cards"
	"quill/internal/store"
	"quill/internal/testsupport"
)

func seedHighlight(t *testing.T, st *store.Store, title, content string) int64 {
	t.Helper()
	return testsupport.SeedRecord(t, st, store.Record{
		BookTitle: title,
		Author:    "Donella Meadows",
		Content:   content,
	})
}

func TestInsertIgnoresDuplicates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	rec := store.Record{
		BookTitle:     "Thinking in Systems",
		Author:        "Donella Meadows",
		Kind:          store.KindHighlight,
		LocationStart: 412,
		DateAdded:     time.Date(2024, 3, 10, 21, 15, 0, 0, time.UTC),
		Content:       "A system is more than the sum of its parts.",
	}

	id, inserted, err := st.Insert(ctx, rec)
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if !inserted || id == 0 {
		t.Fatalf("expected first insert to create a row, got id=%d inserted=%v", id, inserted)
	}

	// Same triple with different location metadata is still the same excerpt.
	rec.LocationStart = 9999
	_, inserted, err = st.Insert(ctx, rec)
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if inserted {
		t.Fatal("expected duplicate insert to be ignored")
	}

	all, err := st.All(ctx)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 record after duplicate insert, got %d", len(all))
	}
}

func TestUnprocessedExcludesGeneratedAndEmptyContent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	pending := seedHighlight(t, st, "Thinking in Systems", "Stocks change slowly even when flows change suddenly.")
	done := seedHighlight(t, st, "Thinking in Systems", "Feedback loops can stabilize or destabilize a system.")
	testsupport.SeedRecord(t, st, store.Record{
		BookTitle: "Thinking in Systems",
		Author:    "Donella Meadows",
		Kind:      store.KindBookmark,
	})

	card := cards.Card{Pattern: cards.PatternMentalModel, Front: "Q", Back: "A"}
	if err := st.WriteGenerated(ctx, done, card); err != nil {
		t.Fatalf("write generated: %v", err)
	}

	records, err := st.Unprocessed(ctx, nil)
	if err != nil {
		t.Fatalf("unprocessed: %v", err)
	}
	if len(records) != 1 || records[0].ID != pending {
		t.Fatalf("expected only record %d unprocessed, got %+v", pending, records)
	}
}

func TestUnprocessedFiltersByBook(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	want := seedHighlight(t, st, "Thinking in Systems", "Delays in feedback loops cause oscillation.")
	seedHighlight(t, st, "The Goal", "Bottlenecks govern throughput.")

	records, err := st.Unprocessed(ctx, []store.BookKey{{Title: "Thinking in Systems", Author: "Donella Meadows"}})
	if err != nil {
		t.Fatalf("unprocessed: %v", err)
	}
	if len(records) != 1 || records[0].ID != want {
		t.Fatalf("expected only record %d for the selected book, got %+v", want, records)
	}
}

func TestWriteGeneratedRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	id := seedHighlight(t, st, "Thinking in Systems", "Purpose is deduced from behavior, not rhetoric.")

	card := cards.Card{
		Pattern: cards.PatternDistinction,
		Front:   "Stated goals vs. revealed purpose?",
		Back:    "A system's purpose is deduced from its behavior.",
	}
	if err := st.WriteGenerated(ctx, id, card); err != nil {
		t.Fatalf("write generated: %v", err)
	}

	rec, err := st.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if rec == nil {
		t.Fatal("record missing after generation")
	}
	if rec.Pattern != card.Pattern || rec.Front != card.Front || rec.Back != card.Back {
		t.Fatalf("generated fields not persisted: %+v", rec)
	}
	if rec.GeneratedAt == nil {
		t.Fatal("generated_at not stamped")
	}
	if rec.ImportedAt.IsZero() {
		t.Fatal("imported_at lost in the round trip")
	}
	if rec.Synced {
		t.Fatal("fresh generation must not be marked synced")
	}
}

func TestUnsyncedExcludesSkipRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	card := seedHighlight(t, st, "Thinking in Systems", "Resilience arises from redundant feedback loops.")
	skip := seedHighlight(t, st, "Thinking in Systems", "Chapter 3")
	synced := seedHighlight(t, st, "Thinking in Systems", "Leverage points are places to intervene in a system.")

	if err := st.WriteGenerated(ctx, card, cards.Card{Pattern: cards.PatternMentalModel, Front: "Q1", Back: "A1"}); err != nil {
		t.Fatalf("write generated: %v", err)
	}
	if err := st.WriteGenerated(ctx, skip, cards.Card{Pattern: cards.PatternSkip}); err != nil {
		t.Fatalf("write skip: %v", err)
	}
	if err := st.WriteGenerated(ctx, synced, cards.Card{Pattern: cards.PatternTactic, Front: "Q2", Back: "A2"}); err != nil {
		t.Fatalf("write generated: %v", err)
	}
	if err := st.MarkSynced(ctx, synced); err != nil {
		t.Fatalf("mark synced: %v", err)
	}

	records, err := st.Unsynced(ctx)
	if err != nil {
		t.Fatalf("unsynced: %v", err)
	}
	if len(records) != 1 || records[0].ID != card {
		t.Fatalf("expected only record %d unsynced, got %+v", card, records)
	}
}

func TestResetGeneratedReturnsRecordToPool(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	id := seedHighlight(t, st, "Thinking in Systems", "Growth in a finite world eventually meets limits.")
	if err := st.WriteGenerated(ctx, id, cards.Card{Pattern: cards.PatternFramework, Front: "Q", Back: "A"}); err != nil {
		t.Fatalf("write generated: %v", err)
	}
	if err := st.MarkSynced(ctx, id); err != nil {
		t.Fatalf("mark synced: %v", err)
	}

	affected, err := st.ResetGenerated(ctx, []int64{id})
	if err != nil {
		t.Fatalf("reset generated: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 row reset, got %d", affected)
	}

	rec, err := st.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if rec.Pattern != "" || rec.Front != "" || rec.Back != "" || rec.GeneratedAt != nil || rec.Synced {
		t.Fatalf("reset left generated state behind: %+v", rec)
	}

	records, err := st.Unprocessed(ctx, nil)
	if err != nil {
		t.Fatalf("unprocessed: %v", err)
	}
	if len(records) != 1 || records[0].ID != id {
		t.Fatalf("expected reset record back in unprocessed pool, got %+v", records)
	}
}

func TestResetWithEmptyIDListIsNoop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	affected, err := st.ResetGenerated(ctx, nil)
	if err != nil {
		t.Fatalf("reset generated: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected 0 rows, got %d", affected)
	}

	affected, err = st.ResetSynced(ctx, nil)
	if err != nil {
		t.Fatalf("reset synced: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected 0 rows, got %d", affected)
	}
}

func TestStatsCountsStates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	seedHighlight(t, st, "Thinking in Systems", "Pending excerpt.")
	generated := seedHighlight(t, st, "Thinking in Systems", "Generated excerpt.")
	skipped := seedHighlight(t, st, "Thinking in Systems", "Page 12")

	if err := st.WriteGenerated(ctx, generated, cards.Card{Pattern: cards.PatternMetaphor, Front: "Q", Back: "A"}); err != nil {
		t.Fatalf("write generated: %v", err)
	}
	if err := st.WriteGenerated(ctx, skipped, cards.Card{Pattern: cards.PatternSkip}); err != nil {
		t.Fatalf("write skip: %v", err)
	}
	if err := st.MarkSynced(ctx, generated); err != nil {
		t.Fatalf("mark synced: %v", err)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := store.Stats{Total: 3, Unprocessed: 1, Generated: 1, Skipped: 1, Synced: 1}
	if stats != want {
		t.Fatalf("stats mismatch: got %+v want %+v", stats, want)
	}
}

func TestOpenRejectsSecondWriter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.MustOpenStore(t, cfg)

	if _, err := store.Open(cfg); err == nil {
		t.Fatal("expected second open on the same data dir to fail")
	}
}

func TestBooksWithUnprocessed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	seedHighlight(t, st, "The Goal", "First pending excerpt.")
	seedHighlight(t, st, "The Goal", "Second pending excerpt.")
	done := seedHighlight(t, st, "Thinking in Systems", "Finished excerpt.")
	if err := st.WriteGenerated(ctx, done, cards.Card{Pattern: cards.PatternCaseStudy, Front: "Q", Back: "A"}); err != nil {
		t.Fatalf("write generated: %v", err)
	}

	books, err := st.BooksWithUnprocessed(ctx)
	if err != nil {
		t.Fatalf("books with unprocessed: %v", err)
	}
	if len(books) != 1 {
		t.Fatalf("expected 1 book with pending work, got %+v", books)
	}
	if books[0].Title != "The Goal" || books[0].Unprocessed != 2 {
		t.Fatalf("unexpected book count: %+v", books[0])
	}
}
