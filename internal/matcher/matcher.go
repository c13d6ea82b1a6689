package matcher

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Input errors. These are local classification failures and are never retried.
var (
	// ErrEmptyInput indicates the excerpt is empty after trimming, or reduces
	// to nothing after skeletonization (punctuation-only input is rejected
	// rather than silently dropped).
	ErrEmptyInput = errors.New("excerpt has no matchable content")
	// ErrNoDocument indicates the document has no extractable text.
	ErrNoDocument = errors.New("document has no text")
)

// NoMatchError indicates the excerpt does not occur in the document.
type NoMatchError struct {
	Excerpt string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("excerpt not found in document: %q", abbreviate(e.Excerpt))
}

// AmbiguousMatchError indicates the excerpt occurs at more than one location.
type AmbiguousMatchError struct {
	Excerpt string
	Count   int
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("excerpt matches %d locations: %q", e.Count, abbreviate(e.Excerpt))
}

// MatchResult locates a matched excerpt in the original document text.
// Start is a byte offset and Length a byte count, so
// text[Start:Start+Length] reproduces the matched span.
type MatchResult struct {
	Start  int
	Length int
}

// Document indexes one document's text for normalization-tolerant matching.
// The skeleton is built once in the constructor and reused for every Match
// call on the same document.
type Document struct {
	text      string
	skeleton  string
	origStart []int // per skeleton byte: offset of the source rune in text
	origEnd   []int // per skeleton byte: offset just past the source rune
}

// NewDocument builds the skeleton index over the supplied text in one pass.
func NewDocument(text string) *Document {
	doc := &Document{text: text}
	doc.skeleton, doc.origStart, doc.origEnd = skeletonize(text)
	return doc
}

// Text returns the original document text.
func (d *Document) Text() string {
	return d.text
}

// Match locates the excerpt's unique span inside the document.
//
// The excerpt and document are both reduced to their skeletons (lowercase
// alphanumeric runes only) so whitespace, punctuation, and case drift do not
// prevent a match; the skeleton itself must still match exactly. Zero
// occurrences yield a *NoMatchError, two or more a *AmbiguousMatchError with
// the occurrence count. Picking the first of several occurrences would
// silently label the wrong passage, so ambiguity is surfaced instead.
func (d *Document) Match(excerpt string) (MatchResult, error) {
	if strings.TrimSpace(excerpt) == "" {
		return MatchResult{}, ErrEmptyInput
	}
	if d.text == "" {
		return MatchResult{}, ErrNoDocument
	}

	pattern, _, _ := skeletonize(excerpt)
	if pattern == "" {
		return MatchResult{}, ErrEmptyInput
	}

	positions := findAll(d.skeleton, pattern)
	switch len(positions) {
	case 0:
		return MatchResult{}, &NoMatchError{Excerpt: excerpt}
	case 1:
	default:
		return MatchResult{}, &AmbiguousMatchError{Excerpt: excerpt, Count: len(positions)}
	}

	start := d.origStart[positions[0]]
	end := d.origEnd[positions[0]+len(pattern)-1]
	return MatchResult{Start: start, Length: end - start}, nil
}

// Skeletonize reduces text to its lowercase alphanumeric projection. Exposed
// for callers that only need the normalized form.
func Skeletonize(text string) string {
	skeleton, _, _ := skeletonize(text)
	return skeleton
}

// skeletonize builds the normalized projection plus two parallel index
// slices mapping every skeleton byte back to the original rune's byte span.
func skeletonize(text string) (string, []int, []int) {
	var skeleton strings.Builder
	skeleton.Grow(len(text))
	origStart := make([]int, 0, len(text))
	origEnd := make([]int, 0, len(text))

	for offset, r := range text {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		lowered := unicode.ToLower(r)
		width := utf8.RuneLen(lowered)
		skeleton.WriteRune(lowered)
		for i := 0; i < width; i++ {
			origStart = append(origStart, offset)
			origEnd = append(origEnd, offset+utf8.RuneLen(r))
		}
	}

	return skeleton.String(), origStart, origEnd
}

// findAll returns every starting byte offset of pattern in s, advancing one
// past each found position so overlapping occurrences count separately.
func findAll(s, pattern string) []int {
	var positions []int
	from := 0
	for {
		pos := strings.Index(s[from:], pattern)
		if pos < 0 {
			return positions
		}
		positions = append(positions, from+pos)
		from += pos + 1
	}
}

func abbreviate(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	const max = 50
	if len(text) <= max {
		return text
	}
	return text[:max-3] + "..."
}
