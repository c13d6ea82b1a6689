// Package testsupport centralizes test fixtures shared across packages.
package testsupport

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"quill/internal/config"
	"quill/internal/store"
)

// NewConfig returns a fully valid configuration rooted in a per-test
// temporary directory.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.OpenAI.APIKey = "test-key"

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// MustOpenStore opens a store against the test configuration and registers
// cleanup.
func MustOpenStore(t *testing.T, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return st
}

// SeedRecord inserts a highlight and returns its id. Content defaults to a
// distinct excerpt per call when empty.
func SeedRecord(t *testing.T, st *store.Store, rec store.Record) int64 {
	t.Helper()

	if rec.BookTitle == "" {
		rec.BookTitle = "Thinking in Systems"
	}
	if rec.Kind == "" {
		rec.Kind = store.KindHighlight
	}
	if rec.LocationStart == 0 {
		rec.LocationStart = 100
	}
	if rec.DateAdded.IsZero() {
		rec.DateAdded = time.Date(2024, 3, 10, 21, 15, 0, 0, time.UTC)
	}

	id, inserted, err := st.Insert(context.Background(), rec)
	if err != nil {
		t.Fatalf("insert record: %v", err)
	}
	if !inserted {
		t.Fatalf("record %q already present", rec.Content)
	}
	return id
}
