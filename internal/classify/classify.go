// Package classify turns directory entries into records ready for dispatch,
// skipping anything that is unfit to move or extract this cycle.
package classify

import (
	"context"
	"log/slog"
	"strings"

	"archiver/internal/integrity"
	"archiver/internal/logging"
	"archiver/internal/registry"
)

// Entry is one item found in the source directory.
type Entry struct {
	Path    string
	Name    string
	Regular bool
}

// Record is a file accepted for dispatch.
type Record struct {
	BaseName  string
	Extension string
	Path      string
	Type      string
}

// Name returns the record's file name.
func (r Record) Name() string {
	return r.BaseName + r.Extension
}

// SkipReason explains why an entry produced no record.
type SkipReason string

const (
	SkipCorrupted            SkipReason = "corrupted"
	SkipTemporary            SkipReason = "temporary"
	SkipCorruptedArchive     SkipReason = "corrupted_archive"
	SkipPasswordProtected    SkipReason = "password_protected"
	SkipEmptyArchive         SkipReason = "empty_archive"
	SkipUnsupportedExtension SkipReason = "unsupported_extension"
)

// officeLockMarker appears in the names of lock files office suites create
// next to open documents.
const officeLockMarker = "~$"

// ArchiveChecker runs the archive checks on a path.
type ArchiveChecker interface {
	CheckArchive(ctx context.Context, path string) integrity.Verdict
}

// Skip records one entry the classifier rejected.
type Skip struct {
	Path   string
	Reason SkipReason
}

// Classifier walks entries and emits records.
type Classifier struct {
	registry  *registry.Registry
	checker   ArchiveChecker
	corrupted func(string) bool
	logger    *slog.Logger
	onSkip    func(Skip)
}

// Option customizes a Classifier.
type Option func(*Classifier)

// WithSkipHook registers fn to observe every skipped entry.
func WithSkipHook(fn func(Skip)) Option {
	return func(c *Classifier) { c.onSkip = fn }
}

// WithSkips returns a copy of c that reports skips to fn.
func (c *Classifier) WithSkips(fn func(Skip)) *Classifier {
	cp := *c
	cp.onSkip = fn
	return &cp
}

// New builds a Classifier.
func New(reg *registry.Registry, checker ArchiveChecker, logger *slog.Logger, opts ...Option) *Classifier {
	c := &Classifier{
		registry:  reg,
		checker:   checker,
		corrupted: integrity.IsCorrupted,
		logger:    logging.NewComponentLogger(logger, "classify"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns a record for every qualifying entry, in input order. It
// returns nil when nothing qualified.
func (c *Classifier) Classify(ctx context.Context, entries []Entry) []Record {
	logger := logging.WithContext(ctx, c.logger)
	var records []Record
	for _, entry := range entries {
		if !entry.Regular {
			continue
		}
		if rec, ok := c.classifyOne(ctx, logger.With(logging.Path(entry.Path)), entry); ok {
			records = append(records, rec)
		}
	}
	return records
}

func (c *Classifier) classifyOne(ctx context.Context, logger *slog.Logger, entry Entry) (Record, bool) {
	if c.corrupted(entry.Path) {
		logger.Warn("skipping corrupted file", logging.Reason(string(SkipCorrupted)))
		c.skip(entry, SkipCorrupted)
		return Record{}, false
	}

	base, ext := registry.SplitName(entry.Name)
	if strings.Contains(base, officeLockMarker) {
		logger.Info("skipping temporary file", logging.Reason(string(SkipTemporary)))
		c.skip(entry, SkipTemporary)
		return Record{}, false
	}

	var lastReason SkipReason
	for _, typ := range c.registry.Candidates(ext) {
		if c.registry.IsArchive(typ.Name) && c.checker != nil {
			if reason, ok := c.archiveReason(ctx, entry.Path); !ok {
				logger.Warn(archiveMessage(reason), logging.Type(typ.Name), logging.Reason(string(reason)))
				lastReason = reason
				continue
			}
		}
		return Record{BaseName: base, Extension: ext, Path: entry.Path, Type: typ.Name}, true
	}

	if lastReason != "" {
		c.skip(entry, lastReason)
		return Record{}, false
	}
	logger.Debug("unsupported extension", logging.String("extension", ext), logging.Reason(string(SkipUnsupportedExtension)))
	c.skip(entry, SkipUnsupportedExtension)
	return Record{}, false
}

func (c *Classifier) archiveReason(ctx context.Context, path string) (SkipReason, bool) {
	switch c.checker.CheckArchive(ctx, path) {
	case integrity.VerdictCorrupted:
		return SkipCorruptedArchive, false
	case integrity.VerdictProtected:
		return SkipPasswordProtected, false
	case integrity.VerdictEmpty:
		return SkipEmptyArchive, false
	}
	return "", true
}

func archiveMessage(reason SkipReason) string {
	switch reason {
	case SkipCorruptedArchive:
		return "skipping corrupted archive"
	case SkipPasswordProtected:
		return "skipping password-protected archive"
	case SkipEmptyArchive:
		return "skipping empty archive"
	}
	return "skipping archive"
}

func (c *Classifier) skip(entry Entry, reason SkipReason) {
	if c.onSkip != nil {
		c.onSkip(Skip{Path: entry.Path, Reason: reason})
	}
}
