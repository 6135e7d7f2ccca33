package preflight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"archiver/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDestination(t *testing.T) {
	base := t.TempDir()
	file := filepath.Join(base, "blocker")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		path       string
		wantPass   bool
		wantDetail string
	}{
		{name: "existing", path: base, wantPass: true, wantDetail: "read/write ok"},
		{name: "creatable", path: filepath.Join(base, "a", "b", "c"), wantPass: true, wantDetail: "will be created"},
		{name: "under a file", path: filepath.Join(file, "sub"), wantPass: false, wantDetail: "is not a directory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckDestination("dest", tt.path)
			if got.Passed != tt.wantPass {
				t.Fatalf("passed = %v (%s), want %v", got.Passed, got.Detail, tt.wantPass)
			}
			if !strings.Contains(got.Detail, tt.wantDetail) {
				t.Fatalf("detail = %q, want it to mention %q", got.Detail, tt.wantDetail)
			}
		})
	}
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	results := RunAll(cfg)
	if len(results) != 3+len(cfg.Types) {
		t.Fatalf("got %d results", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}

	if err := os.RemoveAll(cfg.Paths.SourceDir); err != nil {
		t.Fatal(err)
	}
	failed := Failed(RunAll(cfg))
	if len(failed) != 1 || failed[0].Name != "Source directory" {
		t.Fatalf("failed = %+v", failed)
	}
}

func TestCheckWatcher(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "archiver.lock")
	if got := CheckWatcher(lockPath); got.Detail != "not running" {
		t.Fatalf("missing lock: %+v", got)
	}
	testsupport.AssertMissing(t, lockPath)

	holder := flock.New(lockPath)
	if err := holder.Lock(); err != nil {
		t.Fatal(err)
	}
	if got := CheckWatcher(lockPath); !strings.HasPrefix(got.Detail, "running") {
		t.Fatalf("held lock: %+v", got)
	}
	if err := holder.Unlock(); err != nil {
		t.Fatal(err)
	}
	if got := CheckWatcher(lockPath); got.Detail != "not running" {
		t.Fatalf("released lock: %+v", got)
	}
}
