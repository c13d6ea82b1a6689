package anki

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"quill/internal/cards"
)

// The record id field comes first: Anki deduplicates notes on the first
// field, and the id is the only value guaranteed stable across regenerations.
var noteFields = []string{
	"db_id",
	"book_title",
	"author",
	"original_clipping",
	"front",
	"back",
	"pattern",
}

// Note is one card as stored in the Anki deck.
type Note struct {
	RecordID         int64
	BookTitle        string
	Author           string
	OriginalClipping string
	Front            string
	Back             string
	Pattern          cards.Pattern
}

var tagCaser = cases.Title(language.English)

// bookTag builds a hierarchical book tag like book::Thinking_In_Systems.
// Anki treats spaces as tag separators, so words are title-cased and joined
// with underscores.
func bookTag(title string) string {
	words := strings.Fields(tagCaser.String(title))
	return "book::" + strings.Join(words, "_")
}

// AddNote creates one note in the deck and returns its Anki note id. The
// cloze note type is used for DEFINITION cards, whose back side carries the
// {{c1::...}} cloze markup; every other pattern maps to the basic type.
func (c *Client) AddNote(ctx context.Context, note Note) (int64, error) {
	model := c.basicModel
	if note.Pattern == cards.PatternDefinition {
		model = c.clozeModel
	}

	params := map[string]any{
		"note": map[string]any{
			"deckName":  c.deck,
			"modelName": model,
			"fields": map[string]string{
				"db_id":             strconv.FormatInt(note.RecordID, 10),
				"book_title":        note.BookTitle,
				"author":            note.Author,
				"original_clipping": note.OriginalClipping,
				"front":             note.Front,
				"back":              note.Back,
				"pattern":           string(note.Pattern),
			},
			"options": map[string]any{
				"allowDuplicate": false,
				"duplicateScope": "deck",
			},
			"tags": []string{
				bookTag(note.BookTitle),
				"pattern::" + string(note.Pattern),
			},
		},
	}

	var noteID int64
	if err := c.invoke(ctx, "addNote", params, &noteID); err != nil {
		return 0, err
	}
	return noteID, nil
}

// DeckCards lists every note currently in the deck. Notes whose id field
// does not parse are returned with RecordID zero so reconciliation can report
// them as foreign cards.
func (c *Client) DeckCards(ctx context.Context) ([]Note, error) {
	var noteIDs []int64
	query := fmt.Sprintf("deck:%q", c.deck)
	if err := c.invoke(ctx, "findNotes", map[string]string{"query": query}, &noteIDs); err != nil {
		return nil, err
	}
	if len(noteIDs) == 0 {
		return nil, nil
	}

	var info []struct {
		Fields map[string]struct {
			Value string `json:"value"`
		} `json:"fields"`
	}
	if err := c.invoke(ctx, "notesInfo", map[string]any{"notes": noteIDs}, &info); err != nil {
		return nil, err
	}

	notes := make([]Note, 0, len(info))
	for _, raw := range info {
		field := func(name string) string { return raw.Fields[name].Value }
		recordID, _ := strconv.ParseInt(field("db_id"), 10, 64)
		notes = append(notes, Note{
			RecordID:         recordID,
			BookTitle:        field("book_title"),
			Author:           field("author"),
			OriginalClipping: field("original_clipping"),
			Front:            field("front"),
			Back:             field("back"),
			Pattern:          cards.Pattern(field("pattern")),
		})
	}
	return notes, nil
}
