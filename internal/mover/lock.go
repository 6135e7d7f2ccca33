package mover

import (
	"errors"
	"io/fs"
	"os"

	"github.com/gofrs/flock"
)

// LockProber reports whether another process holds path open exclusively.
type LockProber interface {
	Locked(path string) (bool, error)
}

// FlockProber probes with a non-blocking exclusive flock taken on a
// read-only handle. The file is never created. A missing file is not locked.
type FlockProber struct{}

// Locked implements LockProber.
func (FlockProber) Locked(path string) (bool, error) {
	lock := flock.New(path, flock.SetFlag(os.O_RDONLY))
	ok, err := lock.TryLock()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if !ok {
		return true, nil
	}
	_ = lock.Unlock()
	return false, nil
}

// ProberFunc adapts a function to LockProber.
type ProberFunc func(path string) (bool, error)

// Locked implements LockProber.
func (f ProberFunc) Locked(path string) (bool, error) { return f(path) }
