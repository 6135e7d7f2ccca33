// Package logs reads back the archiver's JSON log file for the CLI.
//
// Tail returns the last lines of the file along with the offset to resume
// from, and Follow polls for lines appended after that offset. Filter selects
// records by cycle ID and minimum level so one triage cycle can be inspected
// on its own.
package logs
