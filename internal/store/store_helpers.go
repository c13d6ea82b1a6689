package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"quill/internal/cards"
)

const recordColumns = `id, book_title, author, kind, page,
    location_start, location_end, date_added, content,
    pattern, front, back, imported_at, generated_at, synced`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(scanner rowScanner) (*Record, error) {
	var (
		rec         Record
		kind        string
		page        sql.NullInt64
		locationEnd sql.NullInt64
		dateAdded   string
		content     sql.NullString
		pattern     sql.NullString
		front       sql.NullString
		back        sql.NullString
		importedAt  string
		generatedAt sql.NullString
		synced      int64
	)

	err := scanner.Scan(
		&rec.ID,
		&rec.BookTitle,
		&rec.Author,
		&kind,
		&page,
		&rec.LocationStart,
		&locationEnd,
		&dateAdded,
		&content,
		&pattern,
		&front,
		&back,
		&importedAt,
		&generatedAt,
		&synced,
	)
	if err != nil {
		return nil, err
	}

	rec.Kind = Kind(kind)
	rec.Page = int(page.Int64)
	rec.LocationEnd = int(locationEnd.Int64)
	rec.Content = content.String
	rec.Pattern = cards.Pattern(pattern.String)
	rec.Front = front.String
	rec.Back = back.String
	rec.Synced = synced != 0

	if rec.DateAdded, err = parseTime(dateAdded); err != nil {
		return nil, fmt.Errorf("parse date_added: %w", err)
	}
	imported, err := parseTime(importedAt)
	if err != nil {
		return nil, fmt.Errorf("parse imported_at: %w", err)
	}
	rec.ImportedAt = imported
	if generatedAt.Valid {
		generated, err := parseTime(generatedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse generated_at: %w", err)
		}
		rec.GeneratedAt = &generated
	}

	return &rec, nil
}

func parseTime(value string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value int) any {
	if value == 0 {
		return nil
	}
	return value
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", count), ", ")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
