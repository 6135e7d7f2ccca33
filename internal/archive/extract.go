package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"archiver/internal/logging"
)

// Job describes one archive to extract.
type Job struct {
	Path      string
	BaseName  string
	Extension string
	// Root is the archive type's destination root; the archive is unpacked
	// into Root/BaseName.
	Root string
}

// Outcome classifies an extraction result.
type Outcome string

const (
	OutcomeExtracted   Outcome = "extracted"
	OutcomeUnsupported Outcome = "unsupported"
	OutcomeFailed      Outcome = "failed"
)

// Result reports what Extract did.
type Result struct {
	Outcome       Outcome
	Dest          string
	Stats         Stats
	SourceDeleted bool
	Err           error
}

// ExtractorOptions configures an Extractor.
type ExtractorOptions struct {
	Password           string
	DeleteAfterExtract bool
	Logger             *slog.Logger
}

// Extractor unpacks archives into their destination directories.
type Extractor struct {
	password    string
	deleteAfter bool
	logger      *slog.Logger
	remove      func(string) error
}

// NewExtractor builds an Extractor.
func NewExtractor(opts ExtractorOptions) *Extractor {
	return &Extractor{
		password:    opts.Password,
		deleteAfter: opts.DeleteAfterExtract,
		logger:      logging.NewComponentLogger(opts.Logger, "extractor"),
		remove:      os.Remove,
	}
}

// Extract unpacks job.Path into job.Root/job.BaseName. Errors and panics are
// reported through the Result.
func (e *Extractor) Extract(ctx context.Context, job Job) (res Result) {
	logger := logging.WithContext(ctx, e.logger).With(logging.Path(job.Path))
	res.Dest = filepath.Join(job.Root, job.BaseName)

	defer func() {
		if r := recover(); r != nil {
			res.Outcome = OutcomeFailed
			res.Err = fmt.Errorf("extract panic: %v", r)
			logging.ErrorWithContext(logger, "archive extraction panicked", "extract_panic",
				logging.String("panic", fmt.Sprint(r)),
				logging.String(logging.FieldErrorHint, "report the archive that triggered the panic"),
			)
		}
	}()

	format, ok := ForExtension(job.Extension, e.password)
	if !ok {
		logging.WarnWithContext(logger, "unsupported archive format", "extract_unsupported",
			logging.String("extension", job.Extension),
			logging.String(logging.FieldErrorHint, "remove the extension from the archive type or extract it manually"),
		)
		return Result{Outcome: OutcomeUnsupported, Dest: res.Dest, Err: fmt.Errorf("%s: %w", job.Extension, ErrUnsupportedFormat)}
	}

	if err := os.MkdirAll(res.Dest, 0o755); err != nil {
		return e.fail(logger, res, fmt.Errorf("create extraction directory: %w", err))
	}

	stats, err := format.Extract(ctx, job.Path, res.Dest)
	res.Stats = stats
	if err != nil {
		return e.fail(logger, res, err)
	}
	for _, name := range stats.Skipped {
		logger.Debug("skipped non-regular archive member", logging.String("member", name))
	}
	res.Outcome = OutcomeExtracted
	logger.Info("archive extracted",
		logging.String("format", format.Name()),
		logging.String("dest", res.Dest),
		logging.Int("files", stats.Files),
		logging.String(logging.FieldEventType, "archive_extracted"),
	)

	if !e.deleteAfter {
		return res
	}
	if err := e.remove(job.Path); err != nil {
		logging.WarnWithContext(logger, "could not delete extracted archive", "extract_delete_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the source directory"),
			logging.String(logging.FieldImpact, "archive stays in the source directory and is extracted again next cycle"),
		)
		return res
	}
	res.SourceDeleted = true
	logger.Info("deleted source archive", logging.String(logging.FieldEventType, "archive_deleted"))
	return res
}

func (e *Extractor) fail(logger *slog.Logger, res Result, err error) Result {
	hint := "verify the archive opens with a desktop archive tool"
	switch {
	case errors.Is(err, ErrUnsafePath):
		hint = "archive contains paths outside its folder; inspect it before extracting manually"
	case errors.Is(err, ErrEncrypted):
		hint = "archive password differs from archive.password"
	}
	logging.ErrorWithContext(logger, "archive extraction failed", "extract_failed",
		logging.Error(err),
		logging.String("dest", res.Dest),
		logging.String(logging.FieldErrorHint, hint),
	)
	res.Outcome = OutcomeFailed
	res.Err = err
	return res
}
