// Package metrics records triage counters and timings. The Prometheus
// recorder keeps its own registry and can dump it to a node_exporter
// textfile after each cycle.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operations timed by the triage pipeline.
const (
	OpCycle    = "cycle"
	OpClassify = "classify"
	OpMove     = "move"
	OpExtract  = "extract"
)

// Recorder receives triage instrumentation.
type Recorder interface {
	// FileHandled counts one file outcome for a type.
	FileHandled(typeName, outcome string)
	// Observe records how long op took and whether it failed.
	Observe(op string, d time.Duration, err error)
	// CycleFinished stamps the completion time of a cycle.
	CycleFinished(at time.Time)
}

// Timer measures one operation. Obtain it with Start and close it with Stop.
type Timer struct {
	rec   Recorder
	op    string
	start time.Time
}

// Start begins timing op on rec. A nil rec records nothing.
func Start(rec Recorder, op string) Timer {
	return Timer{rec: rec, op: op, start: time.Now()}
}

// Stop reports the elapsed time and returns it.
func (t Timer) Stop(err error) time.Duration {
	d := time.Since(t.start)
	if t.rec != nil {
		t.rec.Observe(t.op, d, err)
	}
	return d
}

// Nop discards everything.
type Nop struct{}

func (Nop) FileHandled(string, string) {}
func (Nop) Observe(string, time.Duration, error) {}
func (Nop) CycleFinished(time.Time) {}

// Prometheus is a Recorder backed by a private registry.
type Prometheus struct {
	registry   *prometheus.Registry
	files      *prometheus.CounterVec
	operations *prometheus.HistogramVec
	errors     *prometheus.CounterVec
	lastCycle  prometheus.Gauge
}

// NewPrometheus registers the archiver collectors on a fresh registry.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Prometheus{
		registry: reg,
		files: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archiver_files_total",
				Help: "Files handled by triage, by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		operations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "archiver_operation_seconds",
				Help:    "Duration of triage operations",
				Buckets: []float64{0.005, 0.05, 0.25, 1, 2.5, 10, 30, 120, 600},
			},
			[]string{"op"},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archiver_operation_errors_total",
				Help: "Triage operations that returned an error",
			},
			[]string{"op"},
		),
		lastCycle: factory.NewGauge(prometheus.GaugeOpts{
			Name: "archiver_last_cycle_timestamp",
			Help: "Unix time the last triage cycle finished",
		}),
	}
}

// FileHandled implements Recorder.
func (p *Prometheus) FileHandled(typeName, outcome string) {
	p.files.WithLabelValues(typeName, outcome).Inc()
}

// Observe implements Recorder.
func (p *Prometheus) Observe(op string, d time.Duration, err error) {
	p.operations.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		p.errors.WithLabelValues(op).Inc()
	}
}

// CycleFinished implements Recorder.
func (p *Prometheus) CycleFinished(at time.Time) {
	p.lastCycle.Set(float64(at.Unix()))
}

// Gatherer exposes the registry, mainly for tests.
func (p *Prometheus) Gatherer() prometheus.Gatherer {
	return p.registry
}

// WriteTextfile writes the registry in text exposition format to path.
func (p *Prometheus) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
