// Package scan lists the source directory for a triage cycle.
package scan

import (
	"fmt"
	"os"
	"path/filepath"

	"archiver/internal/classify"
)

// Dir returns one entry per item directly inside dir, sorted by name.
// Symbolic links are reported as non-regular and are not followed.
func Dir(dir string) ([]classify.Entry, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list source directory: %w", err)
	}
	entries := make([]classify.Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, classify.Entry{
			Path:    filepath.Join(dir, item.Name()),
			Name:    item.Name(),
			Regular: item.Type().IsRegular(),
		})
	}
	return entries, nil
}

// Paths builds entries for explicit file paths, as passed on the command
// line. Missing paths are returned as non-regular entries.
func Paths(paths []string) ([]classify.Entry, error) {
	entries := make([]classify.Entry, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", p, err)
		}
		info, err := os.Lstat(abs)
		regular := err == nil && info.Mode().IsRegular()
		entries = append(entries, classify.Entry{Path: abs, Name: filepath.Base(abs), Regular: regular})
	}
	return entries, nil
}
