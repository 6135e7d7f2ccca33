// Package dispatch fans a classified batch out to the mover and the archive
// extractor on a bounded worker pool.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"archiver/internal/archive"
	"archiver/internal/classify"
	"archiver/internal/logging"
	"archiver/internal/metrics"
	"archiver/internal/mover"
	"archiver/internal/registry"
)

// DateFolderLayout names the per-day folder non-archive files are moved into.
const DateFolderLayout = "02-01-2006"

// Outcome is the final state of one dispatched record.
type Outcome string

const (
	OutcomeMoved       Outcome = "moved"
	OutcomeExtracted   Outcome = "extracted"
	OutcomeVanished    Outcome = "vanished"
	OutcomeStillLocked Outcome = "still_locked"
	OutcomeUnsupported Outcome = "unsupported"
	OutcomeFailed      Outcome = "failed"
)

// Item is the result for one record.
type Item struct {
	Record  classify.Record
	Outcome Outcome
	Dest    string
	Err     error
}

// Summary aggregates a batch.
type Summary struct {
	Items       []Item
	Moved       int
	Extracted   int
	Vanished    int
	StillLocked int
	Unsupported int
	Failed      int
}

// Total returns the number of dispatched records.
func (s Summary) Total() int {
	return len(s.Items)
}

func (s *Summary) add(item Item) {
	s.Items = append(s.Items, item)
	switch item.Outcome {
	case OutcomeMoved:
		s.Moved++
	case OutcomeExtracted:
		s.Extracted++
	case OutcomeVanished:
		s.Vanished++
	case OutcomeStillLocked:
		s.StillLocked++
	case OutcomeUnsupported:
		s.Unsupported++
	default:
		s.Failed++
	}
}

// Mover is the subset of *mover.Mover the dispatcher needs.
type Mover interface {
	MoveWithRetry(ctx context.Context, rec classify.Record, destDir string) mover.Result
}

// Extractor is the subset of *archive.Extractor the dispatcher needs.
type Extractor interface {
	Extract(ctx context.Context, job archive.Job) archive.Result
}

// Options configures a Dispatcher.
type Options struct {
	Registry      *registry.Registry
	Mover         Mover
	Extractor     Extractor
	Logger        *slog.Logger
	Recorder      metrics.Recorder
	WorkersPerCPU int
	// Now supplies the date used for date folders.
	Now func() time.Time
}

// Dispatcher routes records to their terminal handler.
type Dispatcher struct {
	registry      *registry.Registry
	mover         Mover
	extractor     Extractor
	logger        *slog.Logger
	recorder      metrics.Recorder
	workersPerCPU int
	now           func() time.Time
}

// New builds a Dispatcher.
func New(opts Options) (*Dispatcher, error) {
	if opts.Registry == nil || opts.Mover == nil || opts.Extractor == nil {
		return nil, fmt.Errorf("dispatcher requires registry, mover, and extractor")
	}
	d := &Dispatcher{
		registry:      opts.Registry,
		mover:         opts.Mover,
		extractor:     opts.Extractor,
		logger:        logging.NewComponentLogger(opts.Logger, "dispatch"),
		recorder:      opts.Recorder,
		workersPerCPU: opts.WorkersPerCPU,
		now:           opts.Now,
	}
	if d.recorder == nil {
		d.recorder = metrics.Nop{}
	}
	if d.workersPerCPU < 1 {
		d.workersPerCPU = 2
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d, nil
}

// Workers returns the pool size used for n records.
func (d *Dispatcher) Workers(n int) int {
	return min(n, d.workersPerCPU*runtime.NumCPU())
}

// Handle processes every record exactly once and returns after all of them
// finish. A failing or panicking record never affects the others.
func (d *Dispatcher) Handle(ctx context.Context, records []classify.Record) Summary {
	var summary Summary
	if len(records) == 0 {
		return summary
	}

	// Cancelling ctx does not stop a started batch: every move and
	// extraction runs to completion.
	ctx = context.WithoutCancel(ctx)
	workers := d.Workers(len(records))
	logger := logging.WithContext(ctx, d.logger)
	logger.Debug("dispatching batch", logging.Int("records", len(records)), logging.Int("workers", workers))

	var g errgroup.Group
	g.SetLimit(workers)

	var mu sync.Mutex
	day := d.now().Format(DateFolderLayout)
	for _, rec := range records {
		g.Go(func() error {
			item := d.handleOne(ctx, logger, rec, day)
			d.recorder.FileHandled(rec.Type, string(item.Outcome))
			mu.Lock()
			summary.add(item)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	logger.Info("batch dispatched",
		logging.Int("moved", summary.Moved),
		logging.Int("extracted", summary.Extracted),
		logging.Int("vanished", summary.Vanished),
		logging.Int("still_locked", summary.StillLocked),
		logging.Int("unsupported", summary.Unsupported),
		logging.Int("failed", summary.Failed),
	)
	return summary
}

func (d *Dispatcher) handleOne(ctx context.Context, logger *slog.Logger, rec classify.Record, day string) (item Item) {
	item.Record = rec
	defer func() {
		if r := recover(); r != nil {
			item.Outcome = OutcomeFailed
			item.Err = fmt.Errorf("dispatch panic: %v", r)
			logging.ErrorWithContext(logger, "record handling panicked", "dispatch_panic",
				logging.Path(rec.Path),
				logging.Type(rec.Type),
				logging.String("panic", fmt.Sprint(r)),
			)
		}
	}()

	root, ok := d.registry.Destination(rec.Type)
	if !ok {
		item.Outcome = OutcomeFailed
		item.Err = fmt.Errorf("no destination for type %q", rec.Type)
		logging.ErrorWithContext(logger, "type has no destination", "dispatch_failed",
			logging.Path(rec.Path),
			logging.Type(rec.Type),
		)
		return item
	}

	if d.registry.IsArchive(rec.Type) {
		timer := metrics.Start(d.recorder, metrics.OpExtract)
		res := d.extractor.Extract(ctx, archive.Job{
			Path:      rec.Path,
			BaseName:  rec.BaseName,
			Extension: rec.Extension,
			Root:      root,
		})
		timer.Stop(res.Err)
		item.Dest = res.Dest
		item.Err = res.Err
		switch res.Outcome {
		case archive.OutcomeExtracted:
			item.Outcome = OutcomeExtracted
		case archive.OutcomeUnsupported:
			item.Outcome = OutcomeUnsupported
		default:
			item.Outcome = OutcomeFailed
		}
		return item
	}

	timer := metrics.Start(d.recorder, metrics.OpMove)
	res := d.mover.MoveWithRetry(ctx, rec, filepath.Join(root, day))
	timer.Stop(res.Err)
	item.Dest = res.Dest
	item.Err = res.Err
	switch res.Outcome {
	case mover.ResultMoved:
		item.Outcome = OutcomeMoved
	case mover.ResultVanished:
		item.Outcome = OutcomeVanished
	case mover.ResultStillLocked:
		item.Outcome = OutcomeStillLocked
	default:
		item.Outcome = OutcomeFailed
	}
	return item
}
