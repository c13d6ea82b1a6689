// Package library reads book metadata and full text from a Calibre library.
package library

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// Key identifies a book the way Calibre does.
type Key struct {
	Author string
	Title  string
}

// Book is one Calibre library entry. EPUBPath is empty when the library holds
// no EPUB version of the book.
type Book struct {
	Author   string
	Title    string
	EPUBPath string

	text   string
	loaded bool
}

// Text extracts and caches the book's plain text. It returns an empty string
// without error when the library has no EPUB for this book.
func (b *Book) Text() (string, error) {
	if b.loaded {
		return b.text, nil
	}
	if b.EPUBPath == "" {
		return "", nil
	}
	if _, err := os.Stat(b.EPUBPath); err != nil {
		return "", fmt.Errorf("stat epub: %w", err)
	}

	text, err := extractEPUBText(b.EPUBPath)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", filepath.Base(b.EPUBPath), err)
	}

	b.text = text
	b.loaded = true
	return b.text, nil
}

// FromCalibre reads metadata.db in the given library directory and returns
// every book keyed by (author, title). Books without an EPUB are included so
// callers can report "book present but no text" separately from "book
// unknown".
func FromCalibre(calibreDir string) (map[Key]*Book, error) {
	dbPath := filepath.Join(calibreDir, "metadata.db")
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("calibre database not found at %s: %w", dbPath, err)
	}

	// Read-only: Calibre owns this database, we never write to it.
	db, err := sql.Open("sqlite", "file:"+url.PathEscape(dbPath)+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open calibre database: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`
        SELECT
            b.id,
            b.title,
            b.path,
            a.name,
            d.name,
            d.format
        FROM books b
        LEFT JOIN books_authors_link bal ON b.id = bal.book
        LEFT JOIN authors a ON bal.author = a.id
        LEFT JOIN data d ON b.id = d.book
        ORDER BY b.id, a.name`)
	if err != nil {
		return nil, fmt.Errorf("query calibre books: %w", err)
	}
	defer rows.Close()

	type entry struct {
		title    string
		author   string
		bookPath string
		epubName string
	}
	entries := make(map[int64]*entry)
	var order []int64

	for rows.Next() {
		var (
			id       int64
			title    sql.NullString
			bookPath sql.NullString
			author   sql.NullString
			filename sql.NullString
			format   sql.NullString
		)
		if err := rows.Scan(&id, &title, &bookPath, &author, &filename, &format); err != nil {
			return nil, err
		}
		if !title.Valid {
			continue
		}

		item, ok := entries[id]
		if !ok {
			name := author.String
			if name == "" {
				name = "Unknown"
			}
			item = &entry{title: title.String, author: name, bookPath: bookPath.String}
			entries[id] = item
			order = append(order, id)
		}

		// A book may exist in several formats; only the EPUB is readable here.
		if format.Valid && filename.Valid && strings.EqualFold(format.String, "EPUB") {
			item.epubName = filename.String + ".epub"
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	books := make(map[Key]*Book, len(entries))
	for _, id := range order {
		item := entries[id]
		book := &Book{Author: item.author, Title: item.title}
		if item.epubName != "" && item.bookPath != "" {
			book.EPUBPath = filepath.Join(calibreDir, filepath.FromSlash(item.bookPath), item.epubName)
		}
		books[Key{Author: item.author, Title: item.title}] = book
	}
	return books, nil
}
