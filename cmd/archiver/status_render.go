package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"archiver/internal/dispatch"
	"archiver/internal/preflight"
	"archiver/internal/registry"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

func (k statusKind) label() string {
	switch k {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	}
	return "INFO"
}

func (k statusKind) colors() text.Colors {
	switch k {
	case statusOK:
		return text.Colors{text.FgGreen}
	case statusWarn:
		return text.Colors{text.FgYellow}
	case statusError:
		return text.Colors{text.FgRed}
	}
	return text.Colors{text.FgBlue}
}

const (
	statusLabelWidth = 24
	statusIndent     = "  "
)

type statusLine struct {
	label   string
	kind    statusKind
	message string
}

// statusSection is one titled block of `archiver status`.
type statusSection struct {
	title string
	lines []statusLine
}

func renderStatus(sections []statusSection, colorize bool) string {
	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(renderSectionHeader(s.title, colorize))
		b.WriteByte('\n')
		for _, line := range s.lines {
			b.WriteString(renderStatusLine(line, colorize))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func renderStatusLine(line statusLine, colorize bool) string {
	msg := "[" + line.kind.label() + "]"
	if line.message != "" {
		msg += " " + line.message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, line.label+":", msg)
	if colorize {
		return line.kind.colors().Sprint(base)
	}
	return base
}

func renderSectionHeader(title string, colorize bool) string {
	header := "== " + strings.TrimSpace(title) + " =="
	if colorize {
		return text.Colors{text.FgBlue, text.Bold}.Sprint(header)
	}
	return header
}

func watcherLine(r preflight.Result) statusLine {
	kind := statusWarn
	if strings.HasPrefix(r.Detail, "running") {
		kind = statusOK
	}
	return statusLine{label: r.Name, kind: kind, message: r.Detail}
}

// routingLines shows where each type's files land today, in registry order.
func routingLines(reg *registry.Registry, deleteAfter bool, now time.Time) []statusLine {
	types := reg.Types()
	lines := make([]statusLine, 0, len(types))
	day := now.Format(dispatch.DateFolderLayout)
	for _, t := range types {
		exts := strings.Join(t.Extensions(), " ")
		var target string
		if reg.IsArchive(t.Name) {
			target = filepath.Join(t.Destination, "<name>") + string(filepath.Separator) + " (extract"
			if deleteAfter {
				target += ", delete source"
			}
			target += ")"
		} else {
			target = filepath.Join(t.Destination, day) + string(filepath.Separator)
		}
		lines = append(lines, statusLine{label: t.Name, kind: statusInfo, message: exts + " -> " + target})
	}
	return lines
}

func preflightLines(results []preflight.Result) []statusLine {
	lines := make([]statusLine, 0, len(results))
	for _, r := range results {
		kind := statusOK
		if !r.Passed {
			kind = statusError
		}
		lines = append(lines, statusLine{label: r.Name, kind: kind, message: r.Detail})
	}
	return lines
}

// journalLines renders outcome totals. Outcomes that leave a file behind for
// another attempt are warnings.
func journalLines(stats map[string]int) []statusLine {
	if len(stats) == 0 {
		return []statusLine{{label: "Journal", kind: statusInfo, message: "no history yet"}}
	}
	outcomes := make([]string, 0, len(stats))
	for outcome := range stats {
		outcomes = append(outcomes, outcome)
	}
	sort.Strings(outcomes)
	lines := make([]statusLine, 0, len(outcomes))
	for _, outcome := range outcomes {
		kind := statusInfo
		switch dispatch.Outcome(outcome) {
		case dispatch.OutcomeFailed, dispatch.OutcomeStillLocked:
			kind = statusWarn
		}
		lines = append(lines, statusLine{label: outcome, kind: kind, message: fmt.Sprintf("%d files", stats[outcome])})
	}
	return lines
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
