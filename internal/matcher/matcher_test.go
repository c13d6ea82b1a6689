package matcher_test

import (
	"errors"
	"strings"
	"testing"

	"quill/internal/matcher"
)

func TestMatchAbsorbsPunctuationAndCase(t *testing.T) {
	doc := matcher.NewDocument("The quick, brown FOX jumps.")

	result, err := doc.Match("quick brown fox")
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	span := doc.Text()[result.Start : result.Start+result.Length]
	if span != "quick, brown FOX" {
		t.Fatalf("unexpected span %q", span)
	}
}

func TestMatchRoundTripsVerbatimSubstrings(t *testing.T) {
	text := "Call me Ishmael. Some years ago -- never mind how long precisely -- having little or no money in my purse."
	doc := matcher.NewDocument(text)

	cases := []string{
		"Call me Ishmael",
		"never mind how long precisely",
		"little or no money in my purse",
	}
	for _, excerpt := range cases {
		result, err := doc.Match(excerpt)
		if err != nil {
			t.Fatalf("Match(%q) failed: %v", excerpt, err)
		}
		span := text[result.Start : result.Start+result.Length]
		if span != excerpt {
			t.Fatalf("Match(%q) returned span %q", excerpt, span)
		}
	}
}

func TestMatchHandlesUnicode(t *testing.T) {
	text := "Ein MÄDCHEN las über die Brücke."
	doc := matcher.NewDocument(text)

	result, err := doc.Match("mädchen las über")
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	span := doc.Text()[result.Start : result.Start+result.Length]
	if span != "MÄDCHEN las über" {
		t.Fatalf("unexpected span %q", span)
	}
}

func TestMatchReportsNoMatch(t *testing.T) {
	doc := matcher.NewDocument("some document text")

	_, err := doc.Match("absent excerpt")
	var noMatch *matcher.NoMatchError
	if !errors.As(err, &noMatch) {
		t.Fatalf("expected NoMatchError, got %v", err)
	}
}

func TestMatchReportsAmbiguityWithCount(t *testing.T) {
	doc := matcher.NewDocument("the cat sat. The cat sat! THE CAT SAT?")

	_, err := doc.Match("the cat sat")
	var ambiguous *matcher.AmbiguousMatchError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("expected AmbiguousMatchError, got %v", err)
	}
	if ambiguous.Count != 3 {
		t.Fatalf("expected 3 occurrences, got %d", ambiguous.Count)
	}
}

func TestMatchCountsOverlappingOccurrences(t *testing.T) {
	doc := matcher.NewDocument("aaaa")

	_, err := doc.Match("aaa")
	var ambiguous *matcher.AmbiguousMatchError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("expected AmbiguousMatchError, got %v", err)
	}
	if ambiguous.Count != 2 {
		t.Fatalf("expected 2 overlapping occurrences, got %d", ambiguous.Count)
	}
}

func TestMatchRejectsEmptyInput(t *testing.T) {
	doc := matcher.NewDocument("document text")

	for _, excerpt := range []string{"", "   \n\t", "... !!! ---"} {
		if _, err := doc.Match(excerpt); !errors.Is(err, matcher.ErrEmptyInput) {
			t.Fatalf("Match(%q): expected ErrEmptyInput, got %v", excerpt, err)
		}
	}
}

func TestMatchRejectsEmptyDocument(t *testing.T) {
	doc := matcher.NewDocument("")

	if _, err := doc.Match("anything"); !errors.Is(err, matcher.ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument, got %v", err)
	}
}

func TestSkeletonizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"The quick, brown FOX jumps.",
		"Straße 42 — München",
		"already lowered alphanumerics only",
	}
	for _, input := range inputs {
		once := matcher.Skeletonize(input)
		twice := matcher.Skeletonize(once)
		if once != twice {
			t.Fatalf("Skeletonize not idempotent for %q: %q vs %q", input, once, twice)
		}
		if strings.ContainsAny(once, " .,—") {
			t.Fatalf("skeleton retains separators: %q", once)
		}
	}
}
