package main

import (
	"context"
	"fmt"
	"strings"

	"quill/internal/store"
)

// selectUnprocessed resolves the records a generation pass should cover.
// bookTitles filters case-insensitively on title; an empty filter selects
// every book. maxGenerations caps the result, zero means no cap.
func selectUnprocessed(ctx context.Context, st *store.Store, bookTitles []string, maxGenerations int) ([]*store.Record, error) {
	var keys []store.BookKey
	if len(bookTitles) > 0 {
		books, err := st.Books(ctx)
		if err != nil {
			return nil, err
		}
		for _, title := range bookTitles {
			matched := false
			for _, book := range books {
				if strings.EqualFold(book.Title, title) {
					keys = append(keys, book)
					matched = true
				}
			}
			if !matched {
				return nil, fmt.Errorf("no imported book titled %q", title)
			}
		}
	}

	records, err := st.Unprocessed(ctx, keys)
	if err != nil {
		return nil, err
	}
	if maxGenerations > 0 && len(records) > maxGenerations {
		records = records[:maxGenerations]
	}
	return records, nil
}
