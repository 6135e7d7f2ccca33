// Package logging assembles structured slog loggers and formatting helpers
// used across the archiver.
//
// It owns the console and JSON handlers, tees every record into the append
// only log file, and exposes context helpers so a triage cycle can tag each
// line with its cycle ID. A no-op logger is provided for tests and wiring code
// that cannot fail.
package logging
