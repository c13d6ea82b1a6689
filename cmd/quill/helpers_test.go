package main

import (
	"sort"
	"strings"
	"testing"

	"quill/internal/matcher"
)

func TestAbbreviateFlattensAndTruncates(t *testing.T) {
	got := abbreviate("line one\nline  two", 0)
	if got != "line one line two" {
		t.Fatalf("flatten mismatch: %q", got)
	}

	got = abbreviate("a long sentence that keeps going", 12)
	if got != "a long se..." {
		t.Fatalf("truncate mismatch: %q", got)
	}
	if len(got) != 12 {
		t.Fatalf("expected 12 bytes, got %d", len(got))
	}

	if got := abbreviate("short", 20); got != "short" {
		t.Fatalf("short input must pass through, got %q", got)
	}
}

func TestRenderHighlightedMergesOverlaps(t *testing.T) {
	text := "the quick brown fox jumps"
	spans := []matcher.MatchResult{
		{Start: 4, Length: 11}, // "quick brown"
		{Start: 10, Length: 9}, // "brown fox" overlaps the first span
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })

	got := renderHighlighted(text, spans, false)
	want := "the >>>quick brown<<<>>> fox<<< jumps"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestRenderHighlightedWithoutSpans(t *testing.T) {
	if got := renderHighlighted("plain text", nil, false); got != "plain text" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderTableAlignsColumns(t *testing.T) {
	out := renderTable(
		[]string{"Name", "Count"},
		[][]string{{"alpha", "1"}, {"beta", "22"}},
		[]columnAlignment{alignLeft, alignRight},
	)
	if out == "" {
		t.Fatal("expected rendered table")
	}
	// The rounded style upper-cases header cells.
	for _, want := range []string{"NAME", "COUNT", "alpha", "22"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
}
