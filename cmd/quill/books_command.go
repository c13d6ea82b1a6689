package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBooksCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "books",
		Short: "List books with highlights awaiting card generation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			books, err := st.BooksWithUnprocessed(cmd.Context())
			if err != nil {
				return err
			}
			if len(books) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No books have highlights awaiting generation")
				return nil
			}

			rows := make([][]string, 0, len(books))
			total := 0
			for _, book := range books {
				rows = append(rows, []string{abbreviate(book.Title, 60), abbreviate(book.Author, 40), fmt.Sprintf("%d", book.Unprocessed)})
				total += book.Unprocessed
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Book", "Author", "Unprocessed"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight},
			))
			fmt.Fprintf(cmd.OutOrStdout(), "%d highlights across %d books\n", total, len(books))
			return nil
		},
	}
}
