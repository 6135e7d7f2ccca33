// Package mover relocates classified files into their destination folders,
// waiting out other processes that still hold the source open.
package mover

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"archiver/internal/classify"
	"archiver/internal/config"
	"archiver/internal/fileutil"
	"archiver/internal/logging"
)

// ErrDestinationExists reports that the destination folder already holds a
// file with the record's name.
var ErrDestinationExists = fileutil.ErrDestinationExists

// Outcome is the final state of one move.
type Outcome string

const (
	ResultMoved       Outcome = "moved"
	ResultVanished    Outcome = "vanished"
	ResultStillLocked Outcome = "still_locked"
	ResultFailed      Outcome = "failed"
)

// Result describes what happened to one record.
type Result struct {
	Outcome  Outcome
	Dest     string
	Attempts int
	Err      error
}

// Options configures a Mover.
type Options struct {
	MaxAttempts int
	RetryDelay  time.Duration
	Logger      *slog.Logger
	Prober      LockProber
	// Sleep replaces time.Sleep between attempts.
	Sleep func(time.Duration)
}

// Mover moves files with a bounded lock-retry budget.
type Mover struct {
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger
	prober      LockProber
	sleep       func(time.Duration)
	move        func(src, dst string) error
}

// New builds a Mover. Zero values fall back to one attempt, no delay, and
// the flock prober.
func New(opts Options) *Mover {
	m := &Mover{
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
		logger:      logging.NewComponentLogger(opts.Logger, "mover"),
		prober:      opts.Prober,
		sleep:       opts.Sleep,
		move:        fileutil.MoveFile,
	}
	if m.maxAttempts < 1 {
		m.maxAttempts = 1
	}
	if m.prober == nil {
		m.prober = FlockProber{}
	}
	if m.sleep == nil {
		m.sleep = time.Sleep
	}
	return m
}

// FromConfig builds a Mover from the [mover] section.
func FromConfig(cfg *config.Config, logger *slog.Logger) *Mover {
	return New(Options{
		MaxAttempts: cfg.Mover.MaxAttempts,
		RetryDelay:  time.Duration(cfg.Mover.RetryDelaySeconds) * time.Second,
		Logger:      logger,
	})
}

// MoveWithRetry moves rec into destDir, creating destDir first. Locked
// sources and permission errors are retried up to the attempt budget; every
// other failure is final. Sleeps between attempts ignore ctx.
func (m *Mover) MoveWithRetry(ctx context.Context, rec classify.Record, destDir string) Result {
	logger := logging.WithContext(ctx, m.logger).With(logging.Path(rec.Path), logging.Type(rec.Type))
	dest := filepath.Join(destDir, rec.Name())

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		logging.ErrorWithContext(logger, "create destination folder failed", "move_failed",
			logging.String("destination", destDir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the destination root"),
		)
		return Result{Outcome: ResultFailed, Dest: dest, Err: fmt.Errorf("create destination: %w", err)}
	}

	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		locked, err := m.prober.Locked(rec.Path)
		if err != nil {
			logger.Debug("lock probe failed", logging.Attempt(attempt), logging.Error(err))
			locked = true
		}
		if locked {
			logging.WarnWithContext(logger, "file is locked by another process", "file_locked",
				logging.Attempt(attempt),
				logging.Int("max_attempts", m.maxAttempts),
				logging.String(logging.FieldErrorHint, "close the application holding the file"),
			)
			m.pause(attempt)
			continue
		}

		err = m.move(rec.Path, dest)
		switch {
		case err == nil:
			logger.Info("file moved", logging.String("destination", dest), logging.Attempt(attempt))
			return Result{Outcome: ResultMoved, Dest: dest, Attempts: attempt}
		case errors.Is(err, ErrDestinationExists):
			logging.ErrorWithContext(logger, "destination already has a file with this name", "move_conflict",
				logging.String("destination", dest),
				logging.String(logging.FieldErrorHint, "rename or remove the existing file"),
			)
			return Result{Outcome: ResultFailed, Dest: dest, Attempts: attempt, Err: err}
		case errors.Is(err, fs.ErrNotExist):
			logger.Info("file vanished before it could be moved", logging.Attempt(attempt))
			return Result{Outcome: ResultVanished, Dest: dest, Attempts: attempt, Err: err}
		case errors.Is(err, fs.ErrPermission):
			logging.WarnWithContext(logger, "permission denied moving file", "move_permission",
				logging.Attempt(attempt),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on the source and destination"),
			)
			m.pause(attempt)
			continue
		default:
			logging.ErrorWithContext(logger, "move failed", "move_failed",
				logging.String("destination", dest),
				logging.Attempt(attempt),
				logging.Error(err),
			)
			return Result{Outcome: ResultFailed, Dest: dest, Attempts: attempt, Err: err}
		}
	}

	logging.ErrorWithContext(logger, "file still locked, leaving it for the next cycle", "file_still_locked",
		logging.Int("attempts", m.maxAttempts),
		logging.String(logging.FieldImpact, "file left in the source directory"),
	)
	return Result{Outcome: ResultStillLocked, Dest: dest, Attempts: m.maxAttempts}
}

// pause sleeps between attempts but not after the last one.
func (m *Mover) pause(attempt int) {
	if attempt < m.maxAttempts && m.retryDelay > 0 {
		m.sleep(m.retryDelay)
	}
}
