package storage

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrLogLocked is returned when another process already writes the same log.
var ErrLogLocked = errors.New("log is locked by another instance")

// LogLock is an advisory lock beside the log that keeps it single-writer across processes.
type LogLock struct {
	path string
	lock *flock.Flock
}

// NewLogLock prepares a lock file at logPath + ".lock".
func NewLogLock(logPath string) *LogLock {
	path := logPath + ".lock"
	return &LogLock{path: path, lock: flock.New(path)}
}

// Path returns the lock file location.
func (l *LogLock) Path() string {
	return l.path
}

// Acquire takes the lock without blocking.
func (l *LogLock) Acquire() error {
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", l.path, err)
	}
	if !ok {
		return fmt.Errorf("acquire lock %s: %w", l.path, ErrLogLocked)
	}
	return nil
}

// Release drops the lock; calling it without holding the lock is a no-op.
func (l *LogLock) Release() error {
	if !l.lock.Locked() {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	return nil
}
