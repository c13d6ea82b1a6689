package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"quill/internal/cards"
	"quill/internal/services"
)

func TestSubmitBatchSkipsEmptyContent(t *testing.T) {
	var uploadedJSONL string
	var batchPayload map[string]string

	mux := http.NewServeMux()
	mux.HandleFunc("/files", func(w http.ResponseWriter, r *http.Request) {
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("read form file: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		defer file.Close()
		scanner := bufio.NewScanner(file)
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		uploadedJSONL = strings.Join(lines, "\n")
		if purpose := r.FormValue("purpose"); purpose != "batch" {
			t.Errorf("purpose mismatch: %q", purpose)
		}
		fmt.Fprint(w, `{"id":"file_abc"}`)
	})
	mux.HandleFunc("/batches", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&batchPayload); err != nil {
			t.Errorf("decode batch payload: %v", err)
		}
		fmt.Fprint(w, `{"id":"batch_xyz"}`)
	})

	client, _ := newTestClient(t, mux)

	items := []BatchItem{
		{RecordID: 7, BookTitle: "Book A", Excerpt: "A real excerpt with content."},
		{RecordID: 8, BookTitle: "Book A", Excerpt: "   "},
		{RecordID: 9, BookTitle: "Book B", Excerpt: "Another excerpt."},
	}
	batchID, included, err := client.SubmitBatch(context.Background(), items)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if batchID != "batch_xyz" {
		t.Fatalf("batch id mismatch: %q", batchID)
	}
	if len(included) != 2 || included[0] != 7 || included[1] != 9 {
		t.Fatalf("included ids mismatch: %v", included)
	}

	lines := strings.Split(strings.TrimSpace(uploadedJSONL), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 jsonl lines, got %d", len(lines))
	}
	var first batchRequestLine
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode first line: %v", err)
	}
	if first.CustomID != "7" || first.URL != "/v1/chat/completions" || first.Method != http.MethodPost {
		t.Fatalf("unexpected request line: %+v", first)
	}
	if batchPayload["input_file_id"] != "file_abc" || batchPayload["completion_window"] != "24h" {
		t.Fatalf("unexpected batch payload: %v", batchPayload)
	}
}

func TestSubmitBatchWithNothingToSend(t *testing.T) {
	client, _ := newTestClient(t, http.NewServeMux())
	_, _, err := client.SubmitBatch(context.Background(), []BatchItem{{RecordID: 1, Excerpt: ""}})
	if !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestBatchResultsNotReady(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/batches/batch_1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"batch_1","status":"in_progress","request_counts":{"total":10,"completed":4,"failed":0}}`)
	})
	client, _ := newTestClient(t, mux)

	_, err := client.BatchResults(context.Background(), "batch_1")
	if !errors.Is(err, services.ErrNotReady) {
		t.Fatalf("expected not-ready marker, got %v", err)
	}
}

func TestBatchResultsFailedBatch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/batches/batch_1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"batch_1","status":"expired","request_counts":{"total":10,"completed":4,"failed":6}}`)
	})
	client, _ := newTestClient(t, mux)

	_, err := client.BatchResults(context.Background(), "batch_1")
	if !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("expected permanent error for expired batch, got %v", err)
	}
}

func TestBatchResultsParsesOutputTolerantly(t *testing.T) {
	goodBody := completionBody(t, `{"pattern":"FRAMEWORK","front":"Q?","back":"A."}`)
	output := `{"custom_id":"3","response":{"status_code":200,"body":` + goodBody + `}}
not json at all
{"custom_id":"4","error":{"message":"model exploded"}}
{"custom_id":"5","response":{"status_code":500,"body":{}}}
`

	mux := http.NewServeMux()
	mux.HandleFunc("/batches/batch_1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"batch_1","status":"completed","output_file_id":"file_out","request_counts":{"total":3,"completed":3,"failed":0}}`)
	})
	mux.HandleFunc("/files/file_out/content", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, output)
	})
	client, _ := newTestClient(t, mux)

	results, err := client.BatchResults(context.Background(), "batch_1")
	if err != nil {
		t.Fatalf("batch results: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results (malformed line dropped), got %d", len(results))
	}

	byID := make(map[int64]BatchResult, len(results))
	for _, res := range results {
		byID[res.RecordID] = res
	}
	if got := byID[3]; got.Err != "" || got.Card.Pattern != cards.PatternFramework {
		t.Fatalf("record 3 mismatch: %+v", got)
	}
	if got := byID[4]; got.Err != "model exploded" {
		t.Fatalf("record 4 mismatch: %+v", got)
	}
	if got := byID[5]; got.Err == "" {
		t.Fatalf("record 5 should carry an error: %+v", got)
	}
}
