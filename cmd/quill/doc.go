// Package main hosts the Quill CLI entrypoint and command graph.
//
// The Cobra-based command tree covers the full highlight lifecycle: importing
// a Kindle My Clippings.txt file, generating flashcards through the
// completion service (synchronously or via batch jobs), syncing the results
// into an Anki deck, and inspection commands for books, records, and matched
// highlight spans. Configuration resolution and structured logging setup are
// centralized in the command context so subcommands stay declarative.
package main
