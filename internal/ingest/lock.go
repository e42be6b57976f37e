package ingest

import (
	"errors"
	"sync/atomic"
)

// ErrBusy is returned when an index mutation is attempted while another one
// holds the writer lock.
var ErrBusy = errors.New("another ingest is in progress")

// IndexLock serializes mutations of the vector index and catalog. The vault
// has exactly one writer at a time; readers never take the lock.
type IndexLock struct {
	held atomic.Bool
}

// TryAcquire attempts to take the lock without blocking.
func (l *IndexLock) TryAcquire() bool {
	return l.held.CompareAndSwap(false, true)
}

// Release frees the lock. Calling Release on an unheld lock is a no-op.
func (l *IndexLock) Release() {
	l.held.Store(false)
}

// Held reports whether the lock is currently taken.
func (l *IndexLock) Held() bool {
	return l.held.Load()
}
