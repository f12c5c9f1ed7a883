package storage

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveLog(t *testing.T) {
	ls := NewLogStorage(t.TempDir())

	path, err := ls.SaveLog("p-1", "Type Check", "npm run type-check", "ok\n", "warning")
	if err != nil {
		t.Fatalf("save log: %v", err)
	}
	if filepath.Base(path) != "Type-Check_npm-run-type-check.log" {
		t.Fatalf("unexpected file name %s", path)
	}
	if filepath.Base(filepath.Dir(path)) != "p-1" {
		t.Fatalf("log not grouped by run: %s", path)
	}

	content, err := ls.ReadLog(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(content, "=== stdout ===\nok\n") || !strings.Contains(content, "=== stderr ===\nwarning\n") {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"build":       "build",
		"go test ./…": "go-test---",
		"$$$":         "step",
		"":            "step",
	}
	for in, want := range tests {
		if got := sanitize(in); got != want {
			t.Errorf("sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}
