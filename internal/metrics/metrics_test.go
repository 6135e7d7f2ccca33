package metrics_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"archiver/internal/metrics"
)

func TestPrometheusCountsFiles(t *testing.T) {
	p := metrics.NewPrometheus()
	p.FileHandled("Image", "moved")
	p.FileHandled("Image", "moved")
	p.FileHandled("Archive", "extracted")

	expected := `
# HELP archiver_files_total Files handled by triage, by type and outcome
# TYPE archiver_files_total counter
archiver_files_total{outcome="extracted",type="Archive"} 1
archiver_files_total{outcome="moved",type="Image"} 2
`
	if err := testutil.GatherAndCompare(p.Gatherer(), strings.NewReader(expected), "archiver_files_total"); err != nil {
		t.Fatal(err)
	}
}

func TestTimerObservesAndCountsErrors(t *testing.T) {
	p := metrics.NewPrometheus()

	metrics.Start(p, metrics.OpMove).Stop(nil)
	metrics.Start(p, metrics.OpMove).Stop(errors.New("denied"))
	metrics.Start(p, metrics.OpExtract).Stop(nil)

	count, err := testutil.GatherAndCount(p.Gatherer(), "archiver_operation_seconds")
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("histogram series = %d, want 2", count)
	}

	expected := `
# HELP archiver_operation_errors_total Triage operations that returned an error
# TYPE archiver_operation_errors_total counter
archiver_operation_errors_total{op="move"} 1
`
	if err := testutil.GatherAndCompare(p.Gatherer(), strings.NewReader(expected), "archiver_operation_errors_total"); err != nil {
		t.Fatal(err)
	}
}

func TestTimerWithoutRecorder(t *testing.T) {
	timer := metrics.Start(nil, metrics.OpCycle)
	if d := timer.Stop(nil); d < 0 {
		t.Fatalf("negative duration %s", d)
	}
}

func TestWriteTextfile(t *testing.T) {
	p := metrics.NewPrometheus()
	p.FileHandled("PDF", "moved")
	p.CycleFinished(time.Unix(1_700_000_000, 0))

	path := filepath.Join(t.TempDir(), "textfile", "archiver.prom")
	if err := p.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{
		`archiver_files_total{outcome="moved",type="PDF"} 1`,
		"archiver_last_cycle_timestamp 1.7e+09",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("textfile missing %q:\n%s", want, text)
		}
	}
}
