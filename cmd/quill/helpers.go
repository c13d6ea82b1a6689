package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// abbreviate flattens text onto a single line and truncates it for
// table display.
func abbreviate(text string, maxLen int) string {
	flat := strings.Join(strings.Fields(text), " ")
	if maxLen <= 0 || len(flat) <= maxLen {
		return flat
	}
	if maxLen <= 3 {
		return flat[:maxLen]
	}
	return flat[:maxLen-3] + "..."
}

func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", prompt)
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
