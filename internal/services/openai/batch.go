package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"quill/internal/cards"
	"quill/internal/services"
)

// BatchItem is one excerpt queued for asynchronous generation.
type BatchItem struct {
	RecordID  int64
	BookTitle string
	Excerpt   string
}

// BatchStatus reports the server-side state of a batch job.
type BatchStatus struct {
	ID           string
	Status       string
	Total        int
	Completed    int
	Failed       int
	OutputFileID string
	ErrorFileID  string
}

// Terminal reports whether the batch has stopped processing, successfully or
// not.
func (s BatchStatus) Terminal() bool {
	switch s.Status {
	case "completed", "failed", "expired", "cancelled":
		return true
	}
	return false
}

// BatchResult is the outcome for one record in a finished batch.
type BatchResult struct {
	RecordID int64
	Card     cards.Card
	Err      string
}

// batchRequestLine is the JSONL request envelope the batch endpoint expects.
type batchRequestLine struct {
	CustomID string                `json:"custom_id"`
	Method   string                `json:"method"`
	URL      string                `json:"url"`
	Body     chatCompletionRequest `json:"body"`
}

// SubmitBatch uploads the excerpts as a batch input file and starts a batch
// job against the chat completions endpoint. Items without content are left
// out; the returned ids list the records actually included.
func (c *Client) SubmitBatch(ctx context.Context, items []BatchItem) (string, []int64, error) {
	if c.cfg.APIKey == "" {
		return "", nil, services.Wrap(services.ErrPermanent, "openai", "batch submit", "api key required", nil)
	}

	lines, included := buildBatchLines(items, c.cfg.Model)
	if len(included) == 0 {
		return "", nil, services.Wrap(services.ErrPermanent, "openai", "batch submit", "no excerpts with content to submit", nil)
	}

	fileID, err := c.uploadBatchFile(ctx, lines)
	if err != nil {
		return "", nil, err
	}

	payload := map[string]string{
		"input_file_id":     fileID,
		"endpoint":          "/v1/chat/completions",
		"completion_window": "24h",
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := c.postJSON(ctx, "/batches", payload, &created); err != nil {
		return "", nil, c.classify("batch submit", err)
	}
	if created.ID == "" {
		return "", nil, services.Wrap(services.ErrPermanent, "openai", "batch submit", "api returned no batch id", nil)
	}
	return created.ID, included, nil
}

// BatchStatusByID fetches the current state of a batch job.
func (c *Client) BatchStatusByID(ctx context.Context, batchID string) (BatchStatus, error) {
	var raw struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		OutputFileID  string `json:"output_file_id"`
		ErrorFileID   string `json:"error_file_id"`
		RequestCounts struct {
			Total     int `json:"total"`
			Completed int `json:"completed"`
			Failed    int `json:"failed"`
		} `json:"request_counts"`
	}
	if err := c.getJSON(ctx, "/batches/"+batchID, &raw); err != nil {
		return BatchStatus{}, c.classify("batch status", err)
	}
	return BatchStatus{
		ID:           raw.ID,
		Status:       raw.Status,
		Total:        raw.RequestCounts.Total,
		Completed:    raw.RequestCounts.Completed,
		Failed:       raw.RequestCounts.Failed,
		OutputFileID: raw.OutputFileID,
		ErrorFileID:  raw.ErrorFileID,
	}, nil
}

// BatchResults downloads and parses the output of a completed batch. A batch
// that is still running returns ErrNotReady so callers can poll again later;
// a batch that stopped without completing is a permanent failure.
func (c *Client) BatchResults(ctx context.Context, batchID string) ([]BatchResult, error) {
	status, err := c.BatchStatusByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if !status.Terminal() {
		return nil, services.Wrap(services.ErrNotReady, "openai", "batch results",
			fmt.Sprintf("batch %s still %s (%d/%d completed)", batchID, status.Status, status.Completed, status.Total), nil)
	}
	if status.Status != "completed" {
		return nil, services.Wrap(services.ErrPermanent, "openai", "batch results",
			fmt.Sprintf("batch %s ended with status %s", batchID, status.Status), nil)
	}
	if status.OutputFileID == "" {
		return nil, services.Wrap(services.ErrPermanent, "openai", "batch results", "completed batch has no output file", nil)
	}

	body, err := c.downloadFile(ctx, status.OutputFileID)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	return parseBatchOutput(body), nil
}

func buildBatchLines(items []BatchItem, model string) ([]byte, []int64) {
	var buf bytes.Buffer
	var included []int64
	enc := json.NewEncoder(&buf)
	for _, item := range items {
		if strings.TrimSpace(item.Excerpt) == "" {
			continue
		}
		line := batchRequestLine{
			CustomID: strconv.FormatInt(item.RecordID, 10),
			Method:   http.MethodPost,
			URL:      "/v1/chat/completions",
			Body: chatCompletionRequest{
				Model: model,
				Messages: []chatMessage{
					{Role: "system", Content: cardSystemPrompt},
					{Role: "user", Content: userPrompt(item.BookTitle, item.Excerpt)},
				},
				ResponseFormat: responseFormat(),
			},
		}
		if err := enc.Encode(line); err != nil {
			continue
		}
		included = append(included, item.RecordID)
	}
	return buf.Bytes(), included
}

// parseBatchOutput reads the result JSONL line by line. Malformed lines and
// unknown custom ids are skipped so one bad row cannot discard a whole batch.
func parseBatchOutput(r io.Reader) []BatchResult {
	var results []BatchResult
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var row struct {
			CustomID string `json:"custom_id"`
			Response *struct {
				StatusCode int             `json:"status_code"`
				Body       json.RawMessage `json:"body"`
			} `json:"response"`
			Error *struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			continue
		}
		recordID, err := strconv.ParseInt(row.CustomID, 10, 64)
		if err != nil {
			continue
		}

		result := BatchResult{RecordID: recordID}
		switch {
		case row.Error != nil:
			result.Err = row.Error.Message
		case row.Response == nil:
			result.Err = "row has no response"
		case row.Response.StatusCode != http.StatusOK:
			result.Err = fmt.Sprintf("http %d", row.Response.StatusCode)
		default:
			var completion chatCompletionResponse
			if err := json.Unmarshal(row.Response.Body, &completion); err != nil {
				result.Err = fmt.Sprintf("decode completion: %v", err)
				break
			}
			content := ""
			for _, choice := range completion.Choices {
				if trimmed := strings.TrimSpace(choice.Message.Content); trimmed != "" {
					content = trimmed
					break
				}
			}
			if content == "" {
				result.Err = "empty completion content"
				break
			}
			card, err := parseCardJSON(content)
			if err != nil {
				result.Err = err.Error()
				break
			}
			result.Card = card
		}
		results = append(results, result)
	}
	return results
}

func (c *Client) uploadBatchFile(ctx context.Context, jsonl []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("purpose", "batch"); err != nil {
		return "", services.Wrap(services.ErrPermanent, "openai", "batch upload", "build form", err)
	}
	part, err := writer.CreateFormFile("file", "batch_input.jsonl")
	if err != nil {
		return "", services.Wrap(services.ErrPermanent, "openai", "batch upload", "build form", err)
	}
	if _, err := part.Write(jsonl); err != nil {
		return "", services.Wrap(services.ErrPermanent, "openai", "batch upload", "build form", err)
	}
	if err := writer.Close(); err != nil {
		return "", services.Wrap(services.ErrPermanent, "openai", "batch upload", "build form", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/files", &body)
	if err != nil {
		return "", services.Wrap(services.ErrPermanent, "openai", "batch upload", "new request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", c.classify("batch upload", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", c.classify("batch upload", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", c.classify("batch upload", &httpStatusError{StatusCode: resp.StatusCode, Body: string(raw)})
	}

	var uploaded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &uploaded); err != nil {
		return "", services.Wrap(services.ErrPermanent, "openai", "batch upload", "decode response", err)
	}
	if uploaded.ID == "" {
		return "", services.Wrap(services.ErrPermanent, "openai", "batch upload", "api returned no file id", nil)
	}
	return uploaded.ID, nil
}

func (c *Client) downloadFile(ctx context.Context, fileID string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/files/"+fileID+"/content", nil)
	if err != nil {
		return nil, services.Wrap(services.ErrPermanent, "openai", "batch download", "new request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.classify("batch download", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		resp.Body.Close()
		return nil, c.classify("batch download", &httpStatusError{StatusCode: resp.StatusCode, Body: string(raw)})
	}
	return resp.Body, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("openai request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("openai request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("openai request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("openai request: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("openai request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return &httpStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("openai request: decode response: %w", err)
	}
	return nil
}
