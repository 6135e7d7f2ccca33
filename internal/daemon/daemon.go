package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"archiver/internal/classify"
	"archiver/internal/config"
	"archiver/internal/logging"
	"archiver/internal/scan"
	"archiver/internal/triage"
)

// Runner triages one batch of entries.
type Runner interface {
	Run(ctx context.Context, entries []classify.Entry) triage.Report
}

// Pruner drops journal history older than a cutoff.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// Option customizes a Daemon.
type Option func(*Daemon)

// defaultPruneEvery is how often a running watcher re-applies retention.
const defaultPruneEvery = 24 * time.Hour

// WithPruner prunes history older than the configured retention at start and
// then once per prune interval.
func WithPruner(p Pruner) Option {
	return func(d *Daemon) { d.pruner = p }
}

// WithPruneInterval overrides how often retention is re-applied.
func WithPruneInterval(every time.Duration) Option {
	return func(d *Daemon) { d.pruneEvery = every }
}

// WithScanner replaces the source directory listing.
func WithScanner(fn func(dir string) ([]classify.Entry, error)) Option {
	return func(d *Daemon) { d.scan = fn }
}

// Daemon polls the source directory and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	runner   Runner
	logger   *slog.Logger
	pruner   Pruner
	scan     func(dir string) ([]classify.Entry, error)
	interval time.Duration

	pruneEvery time.Duration
	lastPrune  time.Time

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	last    triage.Report
	cycles  int
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	LockFilePath string
	SourceDir    string
	Cycles       int
	LastCycle    triage.Report
}

// New constructs a daemon.
func New(cfg *config.Config, runner Runner, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || runner == nil {
		return nil, errors.New("daemon requires config and triage runner")
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		runner:   runner,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		scan:     scan.Dir,
		interval: time.Duration(cfg.Watch.PollIntervalSeconds) * time.Second,
		lockPath: lockPath,
		lock:     flock.New(lockPath),

		pruneEvery: defaultPruneEvery,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.interval <= 0 {
		d.interval = 5 * time.Second
	}
	if d.pruneEvery <= 0 {
		d.pruneEvery = defaultPruneEvery
	}
	return d, nil
}

// Start acquires the lock and launches the poll loop. The first cycle runs
// immediately.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return errors.New("daemon already running")
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another archiver watcher is already running")
	}

	d.prune(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running = true
	d.wg.Add(1)
	go d.loop(runCtx)

	d.logger.Info("archiver watcher started",
		logging.String("lock", d.lockPath),
		logging.String("source", d.cfg.Paths.SourceDir),
		logging.Duration("interval", d.interval),
	)
	return nil
}

// Stop ends the poll loop, waits for an in-flight cycle, and releases the lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()

	cancel()
	d.wg.Wait()

	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release watcher lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "next watcher start may report a stale lock"),
		)
	}
	d.logger.Info("archiver watcher stopped")
}

// Status reports the current daemon state.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Status{
		Running:      d.running,
		LockFilePath: d.lockPath,
		SourceDir:    d.cfg.Paths.SourceDir,
		Cycles:       d.cycles,
		LastCycle:    d.last,
	}
}

// RunOnce scans the source directory and triages what it finds. Only a
// failure to list the directory is returned.
func (d *Daemon) RunOnce(ctx context.Context) (triage.Report, error) {
	entries, err := d.scan(d.cfg.Paths.SourceDir)
	if err != nil {
		return triage.Report{}, err
	}
	report := d.runner.Run(ctx, entries)

	d.mu.Lock()
	d.cycles++
	d.last = report
	d.mu.Unlock()
	return report, nil
}

func (d *Daemon) loop(ctx context.Context) {
	defer d.wg.Done()
	for {
		// Cycles ignore cancellation so a started batch runs to completion.
		if _, err := d.RunOnce(context.WithoutCancel(ctx)); err != nil {
			logging.ErrorWithContext(d.logger, "source directory scan failed", "scan_failed",
				logging.String("source", d.cfg.Paths.SourceDir),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that the source directory exists and is readable"),
			)
		}
		if time.Since(d.lastPrune) >= d.pruneEvery {
			d.prune(context.WithoutCancel(ctx))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(d.interval):
		}
	}
}

func (d *Daemon) prune(ctx context.Context) {
	if d.pruner == nil || d.cfg.Journal.RetentionDays <= 0 {
		return
	}
	d.lastPrune = time.Now()
	cutoff := time.Now().AddDate(0, 0, -d.cfg.Journal.RetentionDays)
	removed, err := d.pruner.Prune(ctx, cutoff)
	if err != nil {
		logging.WarnWithContext(d.logger, "journal prune failed", "journal_prune_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "old history is kept"),
		)
		return
	}
	if removed > 0 {
		d.logger.Info("pruned journal history", logging.Int64("removed", removed))
	}
}
