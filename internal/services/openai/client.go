// Package openai wraps the OpenAI chat completion and batch APIs for card
// generation.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"quill/internal/cards"
	"quill/internal/services"
)

const (
	defaultBaseURL        = "https://api.openai.com/v1"
	defaultHTTPTimeout    = 60 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryMaxDelay  = 60 * time.Second
	defaultRetryAttempts  = 5
)

// Config captures the runtime settings required to talk to OpenAI.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Client issues completion requests that turn one excerpt into one card.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default retry count (defaults to 5).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a completion client from the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("openai request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// cardResponse is the JSON payload the model is constrained to produce.
type cardResponse struct {
	Pattern string `json:"pattern"`
	Front   string `json:"front"`
	Back    string `json:"back"`
}

// GenerateCard asks the model to classify one excerpt and produce a card.
// Transient failures are retried with exponential backoff before the error
// is surfaced; surfaced errors carry the transient or permanent marker so
// callers can tell quota exhaustion from a bad request.
func (c *Client) GenerateCard(ctx context.Context, bookTitle, excerpt string) (cards.Card, error) {
	var empty cards.Card
	excerpt = strings.TrimSpace(excerpt)
	if excerpt == "" {
		return empty, services.Wrap(services.ErrPermanent, "openai", "generate", "excerpt required", nil)
	}
	if c.cfg.APIKey == "" {
		return empty, services.Wrap(services.ErrPermanent, "openai", "generate", "api key required", nil)
	}

	payload := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: cardSystemPrompt},
			{Role: "user", Content: userPrompt(bookTitle, excerpt)},
		},
		ResponseFormat: responseFormat(),
	}

	content, err := c.completionContentWithRetry(ctx, payload)
	if err != nil {
		return empty, c.classify("generate", err)
	}

	card, err := parseCardJSON(content)
	if err != nil {
		return empty, services.Wrap(services.ErrPermanent, "openai", "generate", "parse model payload", err)
	}
	return card, nil
}

// HealthCheck verifies the API key and base URL are usable without spending a
// real completion.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return services.Wrap(services.ErrPermanent, "openai", "health", "api key required", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/models", nil)
	if err != nil {
		return services.Wrap(services.ErrPermanent, "openai", "health", "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrUnreachable, "openai", "health", "api not reachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return c.classify("health", &httpStatusError{StatusCode: resp.StatusCode, Body: string(body)})
	}
	return nil
}

func userPrompt(bookTitle, excerpt string) string {
	return fmt.Sprintf("Book: %s\nHighlight: %s", bookTitle, excerpt)
}

func parseCardJSON(content string) (cards.Card, error) {
	var parsed cardResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return cards.Card{}, fmt.Errorf("decode card payload: %w", err)
	}
	pattern := cards.Pattern(strings.TrimSpace(parsed.Pattern))
	if !pattern.Valid() {
		return cards.Card{}, fmt.Errorf("unknown pattern %q", parsed.Pattern)
	}
	return cards.Card{
		Pattern: pattern,
		Front:   strings.TrimSpace(parsed.Front),
		Back:    strings.TrimSpace(parsed.Back),
	}, nil
}

// classify maps a raw request error to the shared transient/permanent error
// taxonomy once retries are exhausted.
func (c *Client) classify(operation string, err error) error {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		if retryableStatus(statusErr.StatusCode) {
			return services.Wrap(services.ErrTransient, "openai", operation, "api unavailable", err)
		}
		return services.Wrap(services.ErrPermanent, "openai", operation, "api rejected request", err)
	}
	if isTimeout(err) {
		return services.Wrap(services.ErrTransient, "openai", operation, "request timed out", err)
	}
	return services.Wrap(services.ErrPermanent, "openai", operation, "request failed", err)
}

type chatCompletionRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat any           `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) completionContentWithRetry(ctx context.Context, payload chatCompletionRequest) (string, error) {
	attempts := c.retryAttempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		content, err := c.sendChatRequestOnce(ctx, payload)
		if err == nil {
			return content, nil
		}

		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return "", err
		}
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return "", sleepErr
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return "", fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) sendChatRequestOnce(ctx context.Context, payload chatCompletionRequest) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("openai request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("openai request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("openai request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return "", &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("openai request: decode response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("openai request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	for _, choice := range completion.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
		if refusal := strings.TrimSpace(choice.Message.Refusal); refusal != "" {
			return "", fmt.Errorf("openai request: model refused: %s", refusal)
		}
	}
	return "", errors.New("openai request: empty completion content")
}

func (c *Client) retryAttempts() int {
	if c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || err == nil {
		return 0, false
	}
	if ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		if !retryableStatus(statusErr.StatusCode) {
			return 0, false
		}
		if statusErr.RetryAfter > 0 {
			return c.capDelay(statusErr.RetryAfter), true
		}
		return c.backoffDelay(attempt), true
	}

	if isTimeout(err) {
		return c.backoffDelay(attempt), true
	}
	return 0, false
}

// retryableStatus reports whether a request with this status is worth
// repeating. Auth and validation failures never are.
func retryableStatus(status int) bool {
	switch {
	case status == http.StatusRequestTimeout:
		return true
	case status == http.StatusTooManyRequests:
		return true
	case status >= http.StatusInternalServerError:
		return true
	}
	return false
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	return false
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	base := c.retryBaseDelay
	if base <= 0 {
		return 0
	}
	maxDelay := c.retryMaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultRetryMaxDelay
	}

	// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	return c.capDelay(delay)
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	maxDelay := c.retryMaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultRetryMaxDelay
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		delta := time.Until(at)
		if delta <= 0 {
			return 0, false
		}
		return delta, true
	}
	return 0, false
}
