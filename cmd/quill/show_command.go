package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"quill/internal/library"
	"quill/internal/logging"
	"quill/internal/matcher"
	"quill/internal/store"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var author string

	cmd := &cobra.Command{
		Use:   "show <book-title>",
		Short: "Render a book's text with imported highlights marked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if cfg.Calibre.LibraryDir == "" {
				return errors.New("show requires calibre.library_dir in the configuration")
			}

			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			key, err := resolveBook(cmd, st, args[0], author)
			if err != nil {
				return err
			}

			records, err := st.RecordsForBook(cmd.Context(), key.Title, key.Author)
			if err != nil {
				return err
			}

			books, err := library.FromCalibre(cfg.Calibre.LibraryDir)
			if err != nil {
				return err
			}
			book := findLibraryBook(books, key)
			if book == nil {
				return fmt.Errorf("book %q by %q not found in the Calibre library", key.Title, key.Author)
			}

			bookText, err := book.Text()
			if err != nil {
				return err
			}
			if strings.TrimSpace(bookText) == "" {
				return fmt.Errorf("book %q has no EPUB text to render", key.Title)
			}

			doc := matcher.NewDocument(bookText)
			var spans []matcher.MatchResult
			matched, noMatch, ambiguous, failed := 0, 0, 0, 0
			for _, rec := range records {
				if strings.TrimSpace(rec.Content) == "" {
					continue
				}
				result, err := doc.Match(rec.Content)
				switch {
				case err == nil:
					matched++
					spans = append(spans, result)
				case isNoMatch(err):
					noMatch++
				case isAmbiguous(err):
					ambiguous++
				default:
					failed++
					logger.Warn("highlight match failed",
						logging.Int64("record_id", rec.ID),
						logging.Error(err))
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderHighlighted(bookText, spans, shouldColorize(out)))
			fmt.Fprintf(out, "\n%s by %s: %d highlights matched, %d not found, %d ambiguous, %d failed\n",
				key.Title, key.Author, matched, noMatch, ambiguous, failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&author, "author", "", "Disambiguate when multiple authors share the title")

	return cmd
}

// resolveBook pairs the requested title with exactly one imported book,
// case-insensitively on both title and author.
func resolveBook(cmd *cobra.Command, st *store.Store, title, author string) (store.BookKey, error) {
	books, err := st.Books(cmd.Context())
	if err != nil {
		return store.BookKey{}, err
	}

	var matches []store.BookKey
	for _, book := range books {
		if !strings.EqualFold(book.Title, title) {
			continue
		}
		if author != "" && !strings.EqualFold(book.Author, author) {
			continue
		}
		matches = append(matches, book)
	}

	switch len(matches) {
	case 0:
		return store.BookKey{}, fmt.Errorf("no imported book titled %q", title)
	case 1:
		return matches[0], nil
	default:
		authors := make([]string, 0, len(matches))
		for _, book := range matches {
			authors = append(authors, book.Author)
		}
		return store.BookKey{}, fmt.Errorf("title %q matches multiple authors (%s), narrow with --author",
			title, strings.Join(authors, ", "))
	}
}

func findLibraryBook(books map[library.Key]*library.Book, key store.BookKey) *library.Book {
	for libKey, book := range books {
		if strings.EqualFold(libKey.Title, key.Title) && strings.EqualFold(libKey.Author, key.Author) {
			return book
		}
	}
	return nil
}

// renderHighlighted interleaves the book text with its matched spans.
// Overlapping spans are merged so every byte prints exactly once.
func renderHighlighted(bookText string, spans []matcher.MatchResult, colorize bool) string {
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })

	highlight := func(s string) string {
		if colorize {
			return text.Colors{text.BgYellow, text.FgBlack}.Sprint(s)
		}
		return ">>>" + s + "<<<"
	}

	var builder strings.Builder
	cursor := 0
	for _, span := range spans {
		start, end := span.Start, span.Start+span.Length
		if start < cursor {
			if end <= cursor {
				continue
			}
			start = cursor
		}
		builder.WriteString(bookText[cursor:start])
		builder.WriteString(highlight(bookText[start:end]))
		cursor = end
	}
	builder.WriteString(bookText[cursor:])
	return builder.String()
}

func isNoMatch(err error) bool {
	var noMatch *matcher.NoMatchError
	return errors.As(err, &noMatch)
}

func isAmbiguous(err error) bool {
	var ambiguous *matcher.AmbiguousMatchError
	return errors.As(err, &ambiguous)
}
