package generate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"quill/internal/cards"
	"quill/internal/services"
	"quill/internal/services/openai"
	"quill/internal/store"
)

type stubGenerator struct {
	mu         sync.Mutex
	inFlight   int
	maxSeen    int
	calls      int
	generate   func(bookTitle, excerpt string) (cards.Card, error)
	perExcerpt map[string]error
}

func (s *stubGenerator) GenerateCard(ctx context.Context, bookTitle, excerpt string) (cards.Card, error) {
	s.mu.Lock()
	s.calls++
	s.inFlight++
	if s.inFlight > s.maxSeen {
		s.maxSeen = s.inFlight
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if s.perExcerpt != nil {
		if err, ok := s.perExcerpt[excerpt]; ok {
			return cards.Card{}, err
		}
	}
	if s.generate != nil {
		return s.generate(bookTitle, excerpt)
	}
	return cards.Card{Pattern: cards.PatternMentalModel, Front: "Q?", Back: "A."}, nil
}

func highlightRecords(n int) []*store.Record {
	records := make([]*store.Record, n)
	for i := range records {
		records[i] = &store.Record{
			ID:        int64(i + 1),
			BookTitle: "Thinking in Systems",
			Content:   fmt.Sprintf("Excerpt number %d with enough content to pass the length gate.", i+1),
		}
	}
	return records
}

func TestGenerateAllBoundsParallelism(t *testing.T) {
	gen := &stubGenerator{}
	o := NewOrchestrator(gen, 3, nil)

	results := o.GenerateAll(context.Background(), highlightRecords(12))
	if len(results) != 12 {
		t.Fatalf("expected 12 results, got %d", len(results))
	}
	if gen.calls != 12 {
		t.Fatalf("expected 12 generation calls, got %d", gen.calls)
	}
	if gen.maxSeen > 3 {
		t.Fatalf("parallelism limit exceeded: saw %d in flight", gen.maxSeen)
	}
	for _, result := range results {
		if result.Err != nil {
			t.Fatalf("unexpected error for record %d: %v", result.RecordID, result.Err)
		}
		if result.Card.Pattern != cards.PatternMentalModel {
			t.Fatalf("unexpected card for record %d: %+v", result.RecordID, result.Card)
		}
	}
}

func TestGenerateAllSkipsShortExcerptsLocally(t *testing.T) {
	gen := &stubGenerator{}
	o := NewOrchestrator(gen, 2, nil)

	records := []*store.Record{
		{ID: 1, BookTitle: "B", Content: "Too short"},
		{ID: 2, BookTitle: "B", Content: "   "},
		{ID: 3, BookTitle: "B", Content: "This one is long enough to be sent to the model."},
	}
	results := o.GenerateAll(context.Background(), records)

	if gen.calls != 1 {
		t.Fatalf("expected 1 generation call, got %d", gen.calls)
	}
	if results[0].Card.Pattern != "" || results[0].Err != nil {
		t.Fatalf("short excerpt must be skipped without error: %+v", results[0])
	}
	if results[2].Card.Pattern == "" {
		t.Fatalf("long excerpt must be generated: %+v", results[2])
	}
}

func TestGenerateAllIsolatesFailures(t *testing.T) {
	records := highlightRecords(3)
	gen := &stubGenerator{
		perExcerpt: map[string]error{
			records[1].Content: services.Wrap(services.ErrTransient, "openai", "generate", "boom", nil),
		},
	}
	o := NewOrchestrator(gen, 2, nil)

	results := o.GenerateAll(context.Background(), records)
	if results[1].Err == nil {
		t.Fatal("expected error for failing record")
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Fatalf("failure leaked into sibling records: %+v", results)
	}
}

type recordingWriter struct {
	written map[int64]cards.Card
	fail    map[int64]error
}

func (w *recordingWriter) WriteGenerated(_ context.Context, id int64, card cards.Card) error {
	if err := w.fail[id]; err != nil {
		return err
	}
	if w.written == nil {
		w.written = make(map[int64]cards.Card)
	}
	w.written[id] = card
	return nil
}

func TestApplyCountsAndPersists(t *testing.T) {
	writer := &recordingWriter{}
	results := []Result{
		{RecordID: 1, Card: cards.Card{Pattern: cards.PatternTactic, Front: "Q", Back: "A"}},
		{RecordID: 2, Card: cards.Card{Pattern: cards.PatternSkip}},
		{RecordID: 3},
		{RecordID: 4, Err: errors.New("api failure")},
	}

	summary, err := Apply(context.Background(), writer, results)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	want := Summary{Generated: 1, Skipped: 2, Errors: 1}
	if summary != want {
		t.Fatalf("summary mismatch: got %+v want %+v", summary, want)
	}

	if _, ok := writer.written[1]; !ok {
		t.Fatal("generated card not persisted")
	}
	if _, ok := writer.written[2]; !ok {
		t.Fatal("model SKIP verdict must be persisted")
	}
	if _, ok := writer.written[3]; ok {
		t.Fatal("locally skipped record must stay unprocessed")
	}
}

type stubBatchClient struct {
	submitted []openai.BatchItem
	status    openai.BatchStatus
	results   []openai.BatchResult
	resultErr error
}

func (s *stubBatchClient) SubmitBatch(_ context.Context, items []openai.BatchItem) (string, []int64, error) {
	s.submitted = items
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.RecordID
	}
	return "batch_1", ids, nil
}

func (s *stubBatchClient) BatchStatusByID(context.Context, string) (openai.BatchStatus, error) {
	return s.status, nil
}

func (s *stubBatchClient) BatchResults(context.Context, string) ([]openai.BatchResult, error) {
	if s.resultErr != nil {
		return nil, s.resultErr
	}
	return s.results, nil
}

func TestSubmitBatchFiltersEmptyContent(t *testing.T) {
	client := &stubBatchClient{}
	records := []*store.Record{
		{ID: 1, BookTitle: "B", Content: "Excerpt with content."},
		{ID: 2, BookTitle: "B"},
	}

	batchID, included, err := SubmitBatch(context.Background(), client, records)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if batchID != "batch_1" {
		t.Fatalf("batch id mismatch: %q", batchID)
	}
	if len(included) != 1 || included[0] != 1 {
		t.Fatalf("included mismatch: %v", included)
	}
	if len(client.submitted) != 1 || client.submitted[0].RecordID != 1 {
		t.Fatalf("submitted items mismatch: %+v", client.submitted)
	}
}

func TestLoadBatchPassesNotReadyThrough(t *testing.T) {
	client := &stubBatchClient{
		resultErr: services.Wrap(services.ErrNotReady, "openai", "batch results", "still running", nil),
	}
	_, err := LoadBatch(context.Background(), client, "batch_1")
	if !errors.Is(err, services.ErrNotReady) {
		t.Fatalf("expected not-ready marker, got %v", err)
	}
}

func TestLoadBatchConvertsRows(t *testing.T) {
	client := &stubBatchClient{
		results: []openai.BatchResult{
			{RecordID: 1, Card: cards.Card{Pattern: cards.PatternDefinition, Front: "Q", Back: "{{c1::A}}"}},
			{RecordID: 2, Err: "model exploded"},
		},
	}

	results, err := LoadBatch(context.Background(), client, "batch_1")
	if err != nil {
		t.Fatalf("load batch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Card.Pattern != cards.PatternDefinition || results[0].Err != nil {
		t.Fatalf("row 0 mismatch: %+v", results[0])
	}
	if results[1].Err == nil || results[1].Err.Error() != "model exploded" {
		t.Fatalf("row 1 mismatch: %+v", results[1])
	}
}
