package preflight

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()

	result := CheckDirectoryAccess("Data directory", dir)
	if !result.Passed {
		t.Fatalf("expected pass for writable directory: %+v", result)
	}

	result = CheckDirectoryAccess("Data directory", filepath.Join(dir, "missing"))
	if result.Passed {
		t.Fatalf("expected failure for missing directory: %+v", result)
	}

	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	result = CheckDirectoryAccess("Data directory", file)
	if result.Passed {
		t.Fatalf("expected failure for non-directory: %+v", result)
	}
}

func TestCheckFreeSpace(t *testing.T) {
	result := CheckFreeSpace("Data directory space", t.TempDir())
	if !result.Passed {
		t.Skipf("temp filesystem below free-space floor: %+v", result)
	}
}

func TestErrorFlattensFailures(t *testing.T) {
	results := []Result{
		{Name: "A", Passed: true, Detail: "ok"},
		{Name: "B", Detail: "broken"},
		{Name: "C", Detail: "also broken"},
	}
	err := Error(results)
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "preflight failed: B: broken; C: also broken" {
		t.Fatalf("unexpected message: %v", err)
	}

	if Error(results[:1]) != nil {
		t.Fatal("expected nil for all-passed results")
	}
}
