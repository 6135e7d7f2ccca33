// Package preflight provides readiness checks for the filesystem paths the
// archiver reads from and writes to.
//
// These checks run in two contexts:
//   - The watcher logs RunAll results at startup so a misconfigured
//     destination shows up before the first file is skipped.
//   - The CLI "archiver status" command renders them as a status table.
package preflight
