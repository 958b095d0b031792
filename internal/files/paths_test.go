package files

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWithSuffix(t *testing.T) {
	tests := []struct {
		path, suffix, want string
	}{
		{"post.md", "1", "post_1.md"},
		{filepath.Join("a", "b.c.json"), "0", filepath.Join("a", "b.c_0.json")},
		{"README", "x", "README_x"},
	}
	for _, tt := range tests {
		if got := WithSuffix(tt.path, tt.suffix); got != tt.want {
			t.Errorf("WithSuffix(%q, %q) = %q, want %q", tt.path, tt.suffix, got, tt.want)
		}
	}
}

func TestFreePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.md")
	touch := func(p string) {
		t.Helper()
		if err := os.WriteFile(p, []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}

	if got, err := FreePath(path, 0); err != nil || got != path {
		t.Fatalf("FreePath() on free path = %q, %v", got, err)
	}

	touch(path)
	if got, _ := FreePath(path, 0); filepath.Base(got) != "out_0.md" {
		t.Fatalf("FreePath(_, 0) = %q", got)
	}
	if got, _ := FreePath(path, 1); filepath.Base(got) != "out_1.md" {
		t.Fatalf("FreePath(_, 1) = %q", got)
	}

	for i := 1; i <= 9; i++ {
		touch(WithSuffix(path, string(rune('0'+i))))
	}
	got, err := FreePath(path, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(filepath.Base(got), "out_") || filepath.Ext(got) != ".md" || len(filepath.Base(got)) < len("out_12345678.md") {
		t.Fatalf("expected UUID suffix, got %q", got)
	}

	if _, err := FreePath("", 0); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestSafePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "output.md")

	got, changed, err := SafePath(path)
	if err != nil || changed || got != path {
		t.Fatalf("SafePath() on free path = %q, %v, %v", got, changed, err)
	}

	if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	got, changed, err = SafePath(path)
	if err != nil {
		t.Fatalf("SafePath failed: %v", err)
	}
	if !changed || filepath.Base(got) != "output_1.md" {
		t.Fatalf("SafePath() = %q, changed=%v", got, changed)
	}
}
