package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testClippings = "\uFEFF" + `Test Book (Test Author)
- Your Highlight on page 42 | location 100-150 | Added on Monday, 15 January 2024 10:30:00

This is a sample highlight long enough to matter.
==========
Another Book (Another Author)
- Your Highlight at location 200-250 | Added on Tuesday, 16 January 2024 14:00:00

Another sample highlight with some interesting content.
==========
Test Book (Test Author)
- Your Bookmark on page 50 | location 300 | Added on Wednesday, 17 January 2024 09:00:00

==========
`

type cliTestEnv struct {
	configPath    string
	clippingsPath string
	baseDir       string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\n\n[logging]\nlevel = \"error\"\n",
		filepath.Join(base, "data"),
		filepath.Join(base, "logs"),
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	clippingsPath := filepath.Join(base, "My Clippings.txt")
	if err := os.WriteFile(clippingsPath, []byte(testClippings), 0o644); err != nil {
		t.Fatalf("write clippings: %v", err)
	}

	return &cliTestEnv{configPath: configPath, clippingsPath: clippingsPath, baseDir: base}
}

func runCLI(t *testing.T, env *cliTestEnv, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stdout)
	if stdin != "" {
		cmd.SetIn(strings.NewReader(stdin))
	}
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, output)
	}
}

func TestImportAndBooksAndStatus(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "", "import", env.clippingsPath)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	requireContains(t, out, "Parsed 3 clippings (2 highlights)")
	requireContains(t, out, "Imported 2 new highlights, 0 already present")

	// Re-importing the same file only finds duplicates.
	out, err = runCLI(t, env, "", "import", env.clippingsPath)
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	requireContains(t, out, "Imported 0 new highlights, 2 already present")

	out, err = runCLI(t, env, "", "books")
	if err != nil {
		t.Fatalf("books: %v", err)
	}
	requireContains(t, out, "Test Book")
	requireContains(t, out, "Another Author")
	requireContains(t, out, "2 highlights across 2 books")

	out, err = runCLI(t, env, "", "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Total records")
	requireContains(t, out, "Awaiting generation")
}

func TestImportRejectsMissingFile(t *testing.T) {
	env := setupCLITestEnv(t)

	_, err := runCLI(t, env, "", "import", filepath.Join(env.baseDir, "absent.txt"))
	if err == nil {
		t.Fatal("expected error for missing clippings file")
	}
}

func TestResetGenerationsConfirmation(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := runCLI(t, env, "", "import", env.clippingsPath); err != nil {
		t.Fatalf("import: %v", err)
	}

	out, err := runCLI(t, env, "n\n", "reset", "generations")
	if err != nil {
		t.Fatalf("reset declined: %v", err)
	}
	requireContains(t, out, "Aborted")

	out, err = runCLI(t, env, "", "reset", "generations", "--yes")
	if err != nil {
		t.Fatalf("reset --yes: %v", err)
	}
	requireContains(t, out, "Reset generation state on 0 records")
}

func TestDumpWritesCSV(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := runCLI(t, env, "", "import", env.clippingsPath); err != nil {
		t.Fatalf("import: %v", err)
	}

	target := filepath.Join(env.baseDir, "dump.csv")
	out, err := runCLI(t, env, "", "dump", "--output", target)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	requireContains(t, out, "Wrote 2 records")

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,book_title,author,clipping_type") {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	requireContains(t, string(data), "Test Book")
}

func TestGenerateWithEmptyStoreFailsPreflight(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("OPENAI_API_KEY", "")

	// No API key configured, so the OpenAI preflight check must fail before
	// any network access happens.
	_, err := runCLI(t, env, "", "generate")
	if err == nil {
		t.Fatal("expected preflight failure without an API key")
	}
	if !strings.Contains(err.Error(), "preflight failed") {
		t.Fatalf("expected preflight error, got: %v", err)
	}
}

func TestShowRequiresCalibreLibrary(t *testing.T) {
	env := setupCLITestEnv(t)

	_, err := runCLI(t, env, "", "show", "Test Book")
	if err == nil {
		t.Fatal("expected error without calibre.library_dir")
	}
	if !strings.Contains(err.Error(), "calibre.library_dir") {
		t.Fatalf("unexpected error: %v", err)
	}
}
