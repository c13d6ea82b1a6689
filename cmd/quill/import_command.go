package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"quill/internal/clippings"
	"quill/internal/logging"
	"quill/internal/preflight"
	"quill/internal/store"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <clippings-file>",
		Short: "Import highlights from a Kindle My Clippings.txt file",
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

			if err := preflight.Error(preflight.RunAll(cmd.Context(), cfg, false, false)); err != nil {
				return err
			}

			clips, err := clippings.ParseFile(args[0])
			if err != nil {
				return err
			}

			var highlights []clippings.Clipping
			for _, clip := range clips {
				if clip.Type == clippings.TypeHighlight {
					highlights = append(highlights, clip)
				}
			}

			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			inserted := 0
			duplicates := 0
			perBook := make(map[store.BookKey]int)
			for _, clip := range highlights {
				_, added, err := st.Insert(cmd.Context(), store.Record{
					BookTitle:     clip.BookTitle,
					Author:        clip.Author,
					Kind:          store.KindHighlight,
					Page:          clip.Page,
					LocationStart: clip.LocationStart,
					LocationEnd:   clip.LocationEnd,
					DateAdded:     clip.DateAdded,
					Content:       clip.Content,
				})
				if err != nil {
					return err
				}
				if added {
					inserted++
					perBook[store.BookKey{Title: clip.BookTitle, Author: clip.Author}]++
				} else {
					duplicates++
				}
			}

			logger.Info("import finished",
				logging.String("file", args[0]),
				logging.Int("parsed", len(clips)),
				logging.Int("inserted", inserted),
				logging.Int("duplicates", duplicates))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Parsed %d clippings (%d highlights)\n", len(clips), len(highlights))
			fmt.Fprintf(out, "Imported %d new highlights, %d already present\n", inserted, duplicates)

			if len(perBook) > 0 {
				books := make([]store.BookKey, 0, len(perBook))
				for book := range perBook {
					books = append(books, book)
				}
				sort.Slice(books, func(i, j int) bool {
					if books[i].Title != books[j].Title {
						return books[i].Title < books[j].Title
					}
					return books[i].Author < books[j].Author
				})
				rows := make([][]string, 0, len(books))
				for _, book := range books {
					rows = append(rows, []string{abbreviate(book.Title, 60), abbreviate(book.Author, 40), fmt.Sprintf("%d", perBook[book])})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Book", "Author", "New"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight},
				))
			}
			return nil
		},
	}
}
