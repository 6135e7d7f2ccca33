// Package registry maps file extensions to semantic types and destination
// roots. Types keep the order they were configured in and the first type
// whose extension set contains a file's extension wins.
package registry

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"archiver/internal/config"
)

// Type is one registry entry.
type Type struct {
	Name        string
	Destination string
	extensions  map[string]struct{}
	ordered     []string
}

// Has reports whether ext (including the leading dot) belongs to the type.
// Matching is case-sensitive.
func (t Type) Has(ext string) bool {
	_, ok := t.extensions[ext]
	return ok
}

// Extensions returns the type's extensions in configured order.
func (t Type) Extensions() []string {
	return append([]string(nil), t.ordered...)
}

// Registry is an immutable ordered list of types.
type Registry struct {
	types   []Type
	archive string
}

// New builds a registry from the configured types. archiveType names the
// type whose files are extracted instead of moved; it may be empty.
func New(types []config.FileType, archiveType string) (*Registry, error) {
	if len(types) == 0 {
		return nil, errors.New("registry: no types configured")
	}
	r := &Registry{}
	for _, ft := range types {
		name := strings.TrimSpace(ft.Name)
		if name == "" {
			return nil, errors.New("registry: type without a name")
		}
		t := Type{
			Name:        name,
			Destination: ft.Destination,
			extensions:  make(map[string]struct{}, len(ft.Extensions)),
		}
		for _, ext := range ft.Extensions {
			if _, dup := t.extensions[ext]; dup {
				continue
			}
			t.extensions[ext] = struct{}{}
			t.ordered = append(t.ordered, ext)
		}
		r.types = append(r.types, t)
	}
	if archiveType != "" {
		for _, t := range r.types {
			if fold(t.Name) == fold(archiveType) {
				r.archive = t.Name
				break
			}
		}
		if r.archive == "" {
			return nil, fmt.Errorf("registry: archive type %q is not configured", archiveType)
		}
	}
	return r, nil
}

// FromConfig builds the registry described by cfg.
func FromConfig(cfg *config.Config) (*Registry, error) {
	archive := ""
	if at := cfg.ArchiveType(); at != nil {
		archive = at.Name
	}
	return New(cfg.Types, archive)
}

// Match returns the first type whose extension set contains ext.
func (r *Registry) Match(ext string) (Type, bool) {
	for _, t := range r.types {
		if t.Has(ext) {
			return t, true
		}
	}
	return Type{}, false
}

// Candidates returns every type containing ext, in registry order.
func (r *Registry) Candidates(ext string) []Type {
	var out []Type
	for _, t := range r.types {
		if t.Has(ext) {
			out = append(out, t)
		}
	}
	return out
}

// Types returns the registry entries in order.
func (r *Registry) Types() []Type {
	return append([]Type(nil), r.types...)
}

// IsArchive reports whether name is the archive type. Comparison uses
// Unicode case folding.
func (r *Registry) IsArchive(name string) bool {
	if r.archive == "" {
		return false
	}
	return fold(name) == fold(r.archive)
}

// ArchiveType returns the configured archive type name, or "".
func (r *Registry) ArchiveType() string {
	return r.archive
}

// Destination returns the destination root for the named type.
func (r *Registry) Destination(name string) (string, bool) {
	for _, t := range r.types {
		if t.Name == name {
			return t.Destination, true
		}
	}
	return "", false
}

// SplitName splits a file name into base name and extension using the last
// dot. Leading dots do not start an extension and a trailing dot yields no
// extension: "a.tar.gz" -> ("a.tar", ".gz"), ".bashrc" -> (".bashrc", ""),
// "file." -> ("file.", "").
func SplitName(name string) (base, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return name, ""
	}
	return name[:i], name[i:]
}

// fold builds a Caser per call; Casers carry state and are not safe to share
// between dispatcher workers.
func fold(s string) string {
	return cases.Fold().String(s)
}
