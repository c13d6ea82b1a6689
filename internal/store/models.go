package store

import (
	"time"

	"quill/internal/cards"
)

// Kind is the type of an imported Kindle excerpt.
type Kind string

const (
	KindHighlight Kind = "highlight"
	KindNote      Kind = "note"
	KindBookmark  Kind = "bookmark"
)

// Record is one imported excerpt plus its generation and sync status.
//
// The triple (BookTitle, Author, Content) is unique; re-importing the same
// excerpt is a no-op. Generated fields stay empty until the orchestrator
// writes them, and Synced flips only after the card is confirmed in Anki.
// Records are never deleted by this tool.
type Record struct {
	ID            int64
	BookTitle     string
	Author        string
	Kind          Kind
	Page          int // 0 when the clipping carried no page
	LocationStart int
	LocationEnd   int // 0 when the clipping covered a single location
	DateAdded     time.Time
	Content       string // empty when the clipping carried no text

	Pattern cards.Pattern
	Front   string
	Back    string

	ImportedAt  time.Time
	GeneratedAt *time.Time
	Synced      bool
}

// Card assembles the generated flashcard payload from the record.
func (r *Record) Card() cards.Card {
	return cards.Card{Pattern: r.Pattern, Front: r.Front, Back: r.Back}
}

// BookKey identifies a book by title and author.
type BookKey struct {
	Title  string
	Author string
}

// BookCount pairs a book with the number of its records awaiting generation.
type BookCount struct {
	BookKey
	Unprocessed int
}

// Stats summarizes processing state for status output.
type Stats struct {
	Total       int
	Unprocessed int
	Generated   int
	Skipped     int
	Synced      int
}
