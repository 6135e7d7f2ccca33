// Package archive probes and unpacks the archive formats the archiver
// extracts: zip, 7z, and tar streams that are plain, gzip, or bzip2
// compressed.
//
// Each Format answers the three questions intake validation asks (is it
// intact, does it hold anything, is it locked behind a password) and can
// unpack itself into a destination directory without letting a member escape
// it.
package archive

import (
	"context"
	"errors"
)

var (
	// ErrUnsupportedFormat reports an extension with no matching Format.
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	// ErrUnsafePath reports a member whose path would land outside the
	// extraction directory.
	ErrUnsafePath = errors.New("archive member escapes destination")
	// ErrCorrupt wraps every structural or checksum failure found by Test.
	ErrCorrupt = errors.New("archive is corrupted")
	// ErrEncrypted reports an encrypted member the reader cannot decrypt.
	ErrEncrypted = errors.New("archive member is encrypted")
)

// Format is one archive container format.
type Format interface {
	// Name identifies the format in logs.
	Name() string
	// Test reads every member through its checksum. Members that cannot be
	// read because they are encrypted are ignored; errors wrap ErrCorrupt.
	Test(ctx context.Context, path string) error
	// Count returns the number of members.
	Count(ctx context.Context, path string) (int, error)
	// NeedsPassword reports whether the archive uses encryption.
	NeedsPassword(ctx context.Context, path string) (bool, error)
	// Extract unpacks the archive into dest, which must already exist.
	Extract(ctx context.Context, path, dest string) (Stats, error)
}

// Unlocker is implemented by formats that can decrypt with the configured
// password. Unlocks reports whether every member reads back intact.
type Unlocker interface {
	Unlocks(ctx context.Context, path string) bool
}

// Stats summarizes one extraction.
type Stats struct {
	Files int
	Dirs  int
	// Skipped lists members that were not written: symlinks, devices, and
	// other non-regular entries.
	Skipped []string
}

// ForExtension returns the Format handling ext. password is used by formats
// that support decryption. Extensions are case-sensitive, as in the type
// registry.
func ForExtension(ext, password string) (Format, bool) {
	switch ext {
	case ".zip":
		return zipFormat{}, true
	case ".7z":
		return sevenZipFormat{password: password}, true
	case ".tar":
		return tarFormat{compression: compressionNone}, true
	case ".gz", ".tgz":
		return tarFormat{compression: compressionGzip}, true
	case ".bz2", ".tbz2":
		return tarFormat{compression: compressionBzip2}, true
	}
	return nil, false
}

// Supported reports whether ext has a Format.
func Supported(ext string) bool {
	_, ok := ForExtension(ext, "")
	return ok
}
