// Package integrity decides whether a dropped file is fit to triage: present,
// non-empty and readable, and for archives intact, unlocked and non-empty.
package integrity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"archiver/internal/archive"
	"archiver/internal/logging"
	"archiver/internal/registry"
)

// probeSize is how much of a file IsCorrupted reads.
const probeSize = 1024

// IsCorrupted reports whether path is missing, empty, or unreadable. Only the
// first KiB is read and its content is not inspected.
func IsCorrupted(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return true
	}
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()
	buf := make([]byte, probeSize)
	if _, err := io.ReadFull(f, buf); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	return false
}

// Verdict is the outcome of the archive checks.
type Verdict string

const (
	VerdictOK        Verdict = "ok"
	VerdictCorrupted Verdict = "corrupted_archive"
	VerdictProtected Verdict = "password_protected"
	VerdictEmpty     Verdict = "empty_archive"
)

// FormatLookup resolves an extension to the Format that checks it.
type FormatLookup func(ext, password string) (archive.Format, bool)

// ValidatorOption customizes a Validator.
type ValidatorOption func(*Validator)

// WithFormats replaces the archive format lookup.
func WithFormats(lookup FormatLookup) ValidatorOption {
	return func(v *Validator) { v.formatFor = lookup }
}

// Validator runs archive checks using the configured extraction password.
type Validator struct {
	password  string
	logger    *slog.Logger
	formatFor FormatLookup
}

// NewValidator builds a Validator.
func NewValidator(password string, logger *slog.Logger, opts ...ValidatorOption) *Validator {
	v := &Validator{
		password:  password,
		logger:    logging.NewComponentLogger(logger, "integrity"),
		formatFor: archive.ForExtension,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// CheckArchive runs the corruption, password and emptiness checks in that
// order and returns the first failing verdict. Extensions without a known
// format pass unchecked.
func (v *Validator) CheckArchive(ctx context.Context, path string) Verdict {
	_, ext := registry.SplitName(filepath.Base(path))
	format, ok := v.formatFor(ext, v.password)
	if !ok {
		return VerdictOK
	}
	logger := logging.WithContext(ctx, v.logger).With(logging.Path(path), logging.String("format", format.Name()))

	if err := format.Test(ctx, path); err != nil {
		logger.Debug("archive test failed", logging.Error(err))
		return VerdictCorrupted
	}
	if v.protected(ctx, logger, format, path) {
		return VerdictProtected
	}
	n, err := format.Count(ctx, path)
	if err != nil {
		logger.Debug("archive member count failed", logging.Error(err))
		return VerdictEmpty
	}
	if n == 0 {
		return VerdictEmpty
	}
	return VerdictOK
}

// protected fails open: an archive whose encryption cannot be determined is
// treated as unlocked and left for extraction to report.
func (v *Validator) protected(ctx context.Context, logger *slog.Logger, format archive.Format, path string) bool {
	needs, err := format.NeedsPassword(ctx, path)
	if err != nil {
		logging.WarnWithContext(logger, "could not determine archive encryption; assuming unlocked", "password_check_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "archive proceeds to extraction"),
		)
		return false
	}
	if !needs {
		return false
	}
	if unlocker, ok := format.(archive.Unlocker); ok && unlocker.Unlocks(ctx, path) {
		logger.Debug("archive unlocked with configured password")
		return false
	}
	return true
}
