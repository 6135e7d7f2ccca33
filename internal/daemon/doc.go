// Package daemon runs the archiver watch loop.
//
// It takes a flock on the state directory so only one watcher triages a
// source directory at a time, then scans and triages on a fixed poll
// interval until stopped. A cycle that has started always finishes; Stop
// waits for it before releasing the lock.
package daemon
