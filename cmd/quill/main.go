package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// Interrupts already stopped the command; no need to repeat that.
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "quill:", err)
		}
		os.Exit(1)
	}
}
