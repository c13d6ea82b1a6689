// Package anki talks to a running Anki instance through the AnkiConnect
// add-on's JSON-RPC endpoint.
package anki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"quill/internal/config"
	"quill/internal/logging"
	"quill/internal/services"
)

const connectVersion = 6

// Client issues AnkiConnect actions against one deck.
type Client struct {
	url        string
	deck       string
	basicModel string
	clozeModel string
	httpClient *http.Client
	logger     *slog.Logger
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

// NewClient constructs an AnkiConnect client from the configuration.
func NewClient(cfg *config.Config, logger *slog.Logger, opts ...Option) *Client {
	timeout := 30 * time.Second
	if cfg.Anki.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.Anki.TimeoutSeconds) * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	client := &Client{
		url:        cfg.Anki.URL,
		deck:       cfg.Anki.Deck,
		basicModel: cfg.Anki.BasicModel,
		clozeModel: cfg.Anki.ClozeModel,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Deck returns the configured deck name.
func (c *Client) Deck() string {
	return c.deck
}

type connectRequest struct {
	Action  string `json:"action"`
	Version int    `json:"version"`
	Params  any    `json:"params,omitempty"`
}

type connectResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *string         `json:"error"`
}

// invoke performs one AnkiConnect action. A failure to reach the endpoint is
// marked unreachable so callers abort the pass; an error in the response
// envelope means Anki rejected this one action and is marked permanent.
func (c *Client) invoke(ctx context.Context, action string, params any, out any) error {
	payload, err := json.Marshal(connectRequest{Action: action, Version: connectVersion, Params: params})
	if err != nil {
		return services.Wrap(services.ErrPermanent, "anki", action, "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return services.Wrap(services.ErrPermanent, "anki", action, "new request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrUnreachable, "anki", action,
			fmt.Sprintf("cannot reach AnkiConnect at %s (is Anki running with the AnkiConnect add-on?)", c.url), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return services.Wrap(services.ErrUnreachable, "anki", action, "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrUnreachable, "anki", action,
			fmt.Sprintf("unexpected http %d", resp.StatusCode), nil)
	}

	var envelope connectResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return services.Wrap(services.ErrPermanent, "anki", action, "decode response", err)
	}
	if envelope.Error != nil && *envelope.Error != "" {
		return services.Wrap(services.ErrPermanent, "anki", action, *envelope.Error, nil)
	}
	if out != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return services.Wrap(services.ErrPermanent, "anki", action, "decode result", err)
		}
	}
	return nil
}

// Ping verifies the AnkiConnect endpoint responds.
func (c *Client) Ping(ctx context.Context) error {
	var version int
	if err := c.invoke(ctx, "version", nil, &version); err != nil {
		return err
	}
	if version < connectVersion {
		return services.Wrap(services.ErrPermanent, "anki", "version",
			fmt.Sprintf("AnkiConnect version %d too old, need %d", version, connectVersion), nil)
	}
	return nil
}

// Setup makes the deck and both note types exist. Safe to run repeatedly.
func (c *Client) Setup(ctx context.Context) error {
	if err := c.invoke(ctx, "createDeck", map[string]string{"deck": c.deck}, nil); err != nil {
		return err
	}
	c.logger.Info("deck ready", logging.String("deck", c.deck))

	var existing []string
	if err := c.invoke(ctx, "modelNames", nil, &existing); err != nil {
		return err
	}
	known := make(map[string]bool, len(existing))
	for _, name := range existing {
		known[name] = true
	}

	if !known[c.basicModel] {
		if err := c.createModel(ctx, c.basicModel, false); err != nil {
			return err
		}
		c.logger.Info("note type created", logging.String("model", c.basicModel))
	}
	if !known[c.clozeModel] {
		if err := c.createModel(ctx, c.clozeModel, true); err != nil {
			return err
		}
		c.logger.Info("note type created", logging.String("model", c.clozeModel))
	}
	return nil
}

func (c *Client) createModel(ctx context.Context, name string, cloze bool) error {
	prefix := "basic"
	templateName := "Card 1"
	if cloze {
		prefix = "cloze"
		templateName = "Cloze 1"
	}

	params := map[string]any{
		"modelName":     name,
		"inOrderFields": noteFields,
		"css":           loadTemplate(prefix + "_css.css"),
		"cardTemplates": []map[string]string{
			{
				"Name":  templateName,
				"Front": loadTemplate(prefix + "_front.html"),
				"Back":  loadTemplate(prefix + "_back.html"),
			},
		},
	}
	if cloze {
		params["isCloze"] = true
	}
	return c.invoke(ctx, "createModel", params, nil)
}
