// Package lock implements the single-instance advisory lock from spec §4.I:
// an exclusive, non-blocking lock taken once at process start and held for
// the process lifetime, distinguishing "we are the daemon" from "a daemon is
// already running and we are really a CLI call".
package lock

import "github.com/gofrs/flock"

// Lock wraps a non-blocking, process-lifetime exclusive advisory lock.
type Lock struct {
	fl *flock.Flock
}

// Acquire attempts to take the exclusive lock at path. held reports whether
// the lock was obtained (false means another process already holds it); err
// is only non-nil on an unexpected OS-level failure.
func Acquire(path string) (l *Lock, held bool, err error) {
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return &Lock{fl: fl}, true, nil
}

// Release drops the lock. Safe to call on a nil Lock.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
