package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"

	"archiver/internal/config"
	"archiver/internal/preflight"
	"archiver/internal/registry"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine(statusLine{label: "Watcher", kind: statusError, message: "not running"}, false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Watcher:", "[ERROR] not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	line := statusLine{label: "Watcher", kind: statusOK, message: "running"}
	got := renderStatusLine(line, true)
	want := text.Colors{text.FgGreen}.Sprint(renderStatusLine(line, false))
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestWatcherLine(t *testing.T) {
	if got := watcherLine(preflight.Result{Name: "Watcher", Detail: "running (lock /s/archiver.lock)"}); got.kind != statusOK {
		t.Fatalf("running watcher kind = %v", got.kind)
	}
	if got := watcherLine(preflight.Result{Name: "Watcher", Detail: "not running"}); got.kind != statusWarn {
		t.Fatalf("stopped watcher kind = %v", got.kind)
	}
}

func TestRoutingLines(t *testing.T) {
	reg, err := registry.New([]config.FileType{
		{Name: "Image", Extensions: []string{".jpg", ".png"}, Destination: "/pictures"},
		{Name: "Archive", Extensions: []string{".zip"}, Destination: "/extracted"},
	}, "archive")
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2024, time.March, 9, 12, 0, 0, 0, time.Local)

	lines := routingLines(reg, true, now)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	sep := string(filepath.Separator)
	if lines[0].label != "Image" || lines[0].message != ".jpg .png -> "+filepath.Join("/pictures", "09-03-2024")+sep {
		t.Fatalf("unexpected image line %+v", lines[0])
	}
	if lines[1].label != "Archive" || !strings.Contains(lines[1].message, "(extract, delete source)") {
		t.Fatalf("unexpected archive line %+v", lines[1])
	}
	if kept := routingLines(reg, false, now); strings.Contains(kept[1].message, "delete") {
		t.Fatalf("archive line should not mention deletion: %+v", kept[1])
	}
}

func TestPreflightLines(t *testing.T) {
	lines := preflightLines([]preflight.Result{
		{Name: "Source directory", Passed: true, Detail: "/drop (read/write ok)"},
		{Name: "PDF destination", Detail: "/pdfs (error: does not exist)"},
	})
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if first := renderStatusLine(lines[0], false); !strings.Contains(first, "[OK] /drop") {
		t.Fatalf("unexpected first line %q", first)
	}
	if second := renderStatusLine(lines[1], false); !strings.Contains(second, "[ERROR] /pdfs") {
		t.Fatalf("unexpected second line %q", second)
	}
}

func TestJournalLines(t *testing.T) {
	if lines := journalLines(nil); len(lines) != 1 || lines[0].message != "no history yet" {
		t.Fatalf("unexpected empty journal lines %+v", lines)
	}
	lines := journalLines(map[string]int{"moved": 4, "still_locked": 1, "failed": 2})
	if len(lines) != 3 || lines[0].label != "failed" || lines[1].label != "moved" {
		t.Fatalf("expected sorted outcomes, got %+v", lines)
	}
	if lines[0].kind != statusWarn || lines[1].kind != statusInfo || lines[2].kind != statusWarn {
		t.Fatalf("unexpected kinds %+v", lines)
	}
}

func TestRenderStatusSections(t *testing.T) {
	out := renderStatus([]statusSection{
		{title: "Archiver", lines: []statusLine{{label: "Config", kind: statusInfo, message: "/c.toml"}}},
		{title: "Journal", lines: journalLines(nil)},
	}, false)
	want := "== Archiver ==\n" +
		renderStatusLine(statusLine{label: "Config", kind: statusInfo, message: "/c.toml"}, false) + "\n" +
		"\n== Journal ==\n" +
		renderStatusLine(statusLine{label: "Journal", kind: statusInfo, message: "no history yet"}, false) + "\n"
	if out != want {
		t.Fatalf("renderStatus mismatch\n got: %q\nwant: %q", out, want)
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"File", "Outcome"}, [][]string{{"a.jpg"}}, nil)
	if !strings.Contains(out, "a.jpg") || !strings.Contains(out, "OUTCOME") {
		t.Fatalf("unexpected table:\n%s", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty output without headers")
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
