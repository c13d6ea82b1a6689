package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for external-service failures. The retry and reporting
// policies dispatch on these via errors.Is, never on message text.
var (
	// ErrTransient marks rate-limit and server-error class failures that are
	// safe to retry with backoff.
	ErrTransient = errors.New("transient service error")
	// ErrPermanent marks auth and validation failures that must never be
	// retried.
	ErrPermanent = errors.New("permanent service error")
	// ErrUnreachable marks a service that could not be contacted at all,
	// distinct from a service that rejected the request.
	ErrUnreachable = errors.New("service unreachable")
	// ErrNotReady marks an asynchronous job that has not reached a terminal
	// state yet.
	ErrNotReady = errors.New("job not ready")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether an error belongs to the class that is retried
// with backoff.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
