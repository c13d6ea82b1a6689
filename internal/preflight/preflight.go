// Package preflight verifies the environment before a pass touches the
// store or external services.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"quill/internal/anki"
	"quill/internal/config"
	"quill/internal/services/openai"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks relevant to the given config. Local checks run
// unconditionally; service checks only when the pass will need the service.
func RunAll(ctx context.Context, cfg *config.Config, checkOpenAI, checkAnki bool) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckFreeSpace("Data directory space", cfg.Paths.DataDir),
	}
	if cfg.Calibre.LibraryDir != "" {
		results = append(results, CheckDirectoryAccess("Calibre library", cfg.Calibre.LibraryDir))
	}
	if checkOpenAI {
		results = append(results, CheckOpenAI(ctx, cfg))
	}
	if checkAnki {
		results = append(results, CheckAnki(ctx, cfg))
	}
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}

// Error flattens failed checks into a single error, or nil when all passed.
func Error(results []Result) error {
	failed := Failed(results)
	if len(failed) == 0 {
		return nil
	}
	detail := ""
	for i, result := range failed {
		if i > 0 {
			detail += "; "
		}
		detail += fmt.Sprintf("%s: %s", result.Name, result.Detail)
	}
	return fmt.Errorf("preflight failed: %s", detail)
}

// CheckOpenAI verifies the API key and endpoint with a single attempt.
func CheckOpenAI(ctx context.Context, cfg *config.Config) Result {
	const name = "OpenAI API"
	if cfg.OpenAI.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := openai.NewClient(openai.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.Model,
	}, openai.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeServiceError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckAnki verifies the AnkiConnect endpoint responds.
func CheckAnki(ctx context.Context, cfg *config.Config) Result {
	const name = "AnkiConnect"

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := anki.NewClient(cfg, nil)
	if err := client.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeServiceError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

func summarizeServiceError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (service unreachable)"
	}
	return err.Error()
}
