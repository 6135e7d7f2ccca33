// Package triage runs one intake cycle: classify the entries found in the
// source directory, dispatch the accepted records, and record what happened.
package triage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"archiver/internal/archive"
	"archiver/internal/classify"
	"archiver/internal/config"
	"archiver/internal/dispatch"
	"archiver/internal/integrity"
	"archiver/internal/journal"
	"archiver/internal/logging"
	"archiver/internal/metrics"
	"archiver/internal/mover"
	"archiver/internal/registry"
)

// OutcomeSkipped is the journal and metrics outcome for classifier skips.
const OutcomeSkipped = "skipped"

// JournalWriter persists cycle outcomes.
type JournalWriter interface {
	Record(ctx context.Context, entries ...journal.Entry) error
}

// textfileWriter is implemented by recorders that can dump themselves.
type textfileWriter interface {
	WriteTextfile(path string) error
}

// Options wires optional collaborators into a Cycle.
type Options struct {
	Logger       *slog.Logger
	Journal      JournalWriter
	Recorder     metrics.Recorder
	TextfilePath string
}

// Report summarizes one cycle.
type Report struct {
	CycleID  string
	Started  time.Time
	Duration time.Duration
	Entries  int
	Skipped  []classify.Skip
	Summary  dispatch.Summary
}

// Cycle holds the long-lived pipeline pieces. Run may be called repeatedly.
// The only state kept between runs is the set of skips already journaled,
// and it never changes how a file is triaged.
type Cycle struct {
	registry     *registry.Registry
	classifier   *classify.Classifier
	dispatcher   *dispatch.Dispatcher
	logger       *slog.Logger
	journal      JournalWriter
	recorder     metrics.Recorder
	textfilePath string

	mu        sync.Mutex
	journaled map[string]classify.SkipReason
}

// New assembles the pipeline from cfg.
func New(cfg *config.Config, opts Options) (*Cycle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("triage requires config")
	}
	reg, err := registry.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	rec := opts.Recorder
	if rec == nil {
		rec = metrics.Nop{}
	}

	validator := integrity.NewValidator(cfg.Archive.Password, opts.Logger)
	extractor := archive.NewExtractor(archive.ExtractorOptions{
		Password:           cfg.Archive.Password,
		DeleteAfterExtract: cfg.Archive.DeleteAfterExtract,
		Logger:             opts.Logger,
	})
	dispatcher, err := dispatch.New(dispatch.Options{
		Registry:      reg,
		Mover:         mover.FromConfig(cfg, opts.Logger),
		Extractor:     extractor,
		Logger:        opts.Logger,
		Recorder:      rec,
		WorkersPerCPU: cfg.Dispatch.WorkersPerCPU,
	})
	if err != nil {
		return nil, err
	}

	c := &Cycle{
		registry:     reg,
		dispatcher:   dispatcher,
		logger:       logging.NewComponentLogger(opts.Logger, "triage"),
		journal:      opts.Journal,
		recorder:     rec,
		textfilePath: opts.TextfilePath,
	}
	c.classifier = classify.New(reg, validator, opts.Logger)
	return c, nil
}

// Run triages entries once. Per-file failures are reported in the Report and
// never returned as errors.
func (c *Cycle) Run(ctx context.Context, entries []classify.Entry) Report {
	report := Report{
		CycleID: uuid.NewString(),
		Started: time.Now(),
		Entries: len(entries),
	}
	ctx = logging.WithCycle(ctx, report.CycleID)
	logger := logging.WithContext(ctx, c.logger)
	cycleTimer := metrics.Start(c.recorder, metrics.OpCycle)

	classifier := c.classifier.WithSkips(func(s classify.Skip) {
		report.Skipped = append(report.Skipped, s)
	})

	classifyTimer := metrics.Start(c.recorder, metrics.OpClassify)
	records := classifier.Classify(ctx, entries)
	classifyTimer.Stop(nil)

	for _, s := range report.Skipped {
		c.recorder.FileHandled(c.typeFor(s.Path), OutcomeSkipped)
	}

	if len(records) == 0 {
		logger.Debug("nothing to triage", logging.Int("entries", len(entries)), logging.Int("skipped", len(report.Skipped)))
	} else {
		report.Summary = c.dispatcher.Handle(ctx, records)
	}

	report.Duration = cycleTimer.Stop(nil)
	c.recorder.CycleFinished(time.Now())
	c.persist(ctx, logger, report)

	if len(records) > 0 {
		logger.Info("triage cycle complete",
			logging.Int("entries", report.Entries),
			logging.Int("dispatched", report.Summary.Total()),
			logging.Int("skipped", len(report.Skipped)),
			logging.Int("failed", report.Summary.Failed),
			logging.Duration("duration", report.Duration),
		)
	}
	return report
}

// typeFor returns the first type registered for the path's extension, or
// "unknown".
func (c *Cycle) typeFor(path string) string {
	_, ext := registry.SplitName(filepath.Base(path))
	if t, ok := c.registry.Match(ext); ok {
		return t.Name
	}
	return "unknown"
}

func (c *Cycle) persist(ctx context.Context, logger *slog.Logger, report Report) {
	if c.journal != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		entries := make([]journal.Entry, 0, len(report.Skipped)+report.Summary.Total())
		skips := make(map[string]classify.SkipReason, len(report.Skipped))
		for _, s := range report.Skipped {
			skips[s.Path] = s.Reason
			// A file left in place is skipped again every poll.
			if prev, ok := c.journaled[s.Path]; ok && prev == s.Reason {
				continue
			}
			entries = append(entries, journal.Entry{
				CycleID: report.CycleID,
				Path:    s.Path,
				Type:    c.typeFor(s.Path),
				Outcome: OutcomeSkipped,
				Reason:  string(s.Reason),
			})
		}
		for _, item := range report.Summary.Items {
			e := journal.Entry{
				CycleID: report.CycleID,
				Path:    item.Record.Path,
				Type:    item.Record.Type,
				Outcome: string(item.Outcome),
				Dest:    item.Dest,
			}
			if item.Err != nil {
				e.Error = item.Err.Error()
			}
			entries = append(entries, e)
		}
		if err := c.journal.Record(ctx, entries...); err != nil {
			logging.WarnWithContext(logger, "journal write failed", "journal_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "cycle outcomes missing from history"),
			)
		} else {
			c.journaled = skips
		}
	}

	if c.textfilePath == "" {
		return
	}
	if w, ok := c.recorder.(textfileWriter); ok {
		if err := w.WriteTextfile(c.textfilePath); err != nil {
			logging.WarnWithContext(logger, "metrics textfile write failed", "metrics_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "metrics textfile is stale"),
			)
		}
	}
}
