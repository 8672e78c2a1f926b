package corpus

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReadLines_DedupesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "spam\r\nscam\n\n")
	writeFile(t, filepath.Join(dir, "sub", "b.txt"), "scam\nbuy now\n")
	writeFile(t, filepath.Join(dir, ".gitkeep"), "ignored\n")

	got, err := ReadLines(dir)
	if err != nil {
		t.Fatalf("ReadLines: %v", err)
	}
	want := []string{"spam", "scam", "buy now"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestReadLines_MissingDir(t *testing.T) {
	if _, err := ReadLines(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestLoadFileCatalog(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "p2.txt"), "second pattern\n")
	writeFile(t, filepath.Join(dir, "p1.txt"), "first pattern\n")
	writeFile(t, filepath.Join(dir, "empty.txt"), "\n")

	c, err := LoadFileCatalog(dir)
	if err != nil {
		t.Fatalf("LoadFileCatalog: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	if c.At(0).Key != filepath.Join(dir, "p1.txt") || c.At(0).Text != "first pattern" {
		t.Errorf("unexpected first pattern: %+v", c.At(0))
	}
}

func TestCatalog_MapKeepsKeys(t *testing.T) {
	c := NewCatalog([]Pattern{{Key: "k1", Text: "abc"}})
	m := c.Map(func(s string) string { return s + "!" })
	if m.At(0).Key != "k1" || m.At(0).Text != "abc!" {
		t.Errorf("unexpected mapped pattern %+v", m.At(0))
	}
	if c.At(0).Text != "abc" {
		t.Errorf("original catalog mutated")
	}
	if m.Score(0, "abc!") != 1.0 {
		t.Errorf("mapped matcher not rebuilt")
	}
}

func TestBlocklist(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "list.txt"), "chan-X\nchan-Z \nchan-X\n")
	b, err := LoadBlocklist(dir)
	if err != nil {
		t.Fatalf("LoadBlocklist: %v", err)
	}
	if b.Len() != 2 {
		t.Errorf("Len = %d, want 2", b.Len())
	}
	if !b.Contains("chan-X") || !b.Contains("chan-Z") {
		t.Errorf("expected both channels, got %v", b.IDs())
	}
	if b.Contains("") || b.Contains("chan-Y") {
		t.Errorf("unexpected membership")
	}
}
