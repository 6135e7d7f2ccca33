package scan_test

import (
	"os"
	"path/filepath"
	"testing"

	"archiver/internal/scan"
	"archiver/internal/testsupport"
)

func TestDir(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "b.txt"), 1)
	testsupport.WriteFile(t, filepath.Join(dir, "a.jpg"), 1)
	if err := os.Mkdir(filepath.Join(dir, "c.zip"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(dir, "a.jpg"), filepath.Join(dir, "d.jpg")); err != nil {
		t.Fatal(err)
	}

	entries, err := scan.Dir(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []struct {
		name    string
		regular bool
	}{
		{"a.jpg", true},
		{"b.txt", true},
		{"c.zip", false},
		{"d.jpg", false},
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, w := range want {
		if entries[i].Name != w.name || entries[i].Regular != w.regular {
			t.Fatalf("entry %d = %+v, want %s regular=%v", i, entries[i], w.name, w.regular)
		}
		if entries[i].Path != filepath.Join(dir, w.name) {
			t.Fatalf("entry %d path = %s", i, entries[i].Path)
		}
	}
}

func TestDirMissing(t *testing.T) {
	if _, err := scan.Dir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestPaths(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "x.pdf")
	testsupport.WriteFile(t, file, 3)

	entries, err := scan.Paths([]string{file, filepath.Join(dir, "missing.pdf")})
	if err != nil {
		t.Fatal(err)
	}
	if !entries[0].Regular || entries[0].Name != "x.pdf" {
		t.Fatalf("entry 0 = %+v", entries[0])
	}
	if entries[1].Regular {
		t.Fatalf("missing path should not be regular: %+v", entries[1])
	}
}
