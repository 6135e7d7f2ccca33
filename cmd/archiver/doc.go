// Package main hosts the archiver CLI entrypoint and command graph.
//
// The Cobra-based command tree runs single triage cycles, the long-running
// watcher, status and history reports, and configuration scaffolding. It
// centralizes configuration resolution and logger setup so subcommands can
// focus on output instead of wiring.
//
// Keep this package lean: triage behaviour lives in the internal packages and
// is only surfaced here.
package main
