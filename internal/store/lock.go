package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"

	"syslua/internal/syserr"
)

// DefaultLockTimeout matches spec.md §4.3's "30s default timeout" before a
// concurrent apply is rejected with LockBusy.
const DefaultLockTimeout = 30 * time.Second

// lockPollInterval is how often TryLockContext retries while waiting.
const lockPollInterval = 100 * time.Millisecond

// LockMode selects shared (readers) or exclusive (single writer) locking
// over the store-wide lock file (spec.md §4.3).
type LockMode int

const (
	SharedLock LockMode = iota
	ExclusiveLock
)

// Lock wraps a single store-wide advisory lock file.
type Lock struct {
	fl *flock.Flock
}

// NewLock returns a Lock bound to <root>/lock. The file is created on
// first acquisition if absent.
func (s *Store) NewLock() *Lock {
	return &Lock{fl: flock.New(s.LockPath())}
}

// Acquire blocks (up to timeout) for mode, returning *syserr.LockBusy if
// the timeout elapses with the lock still held elsewhere. Apply and GC
// acquire in ExclusiveLock mode (the snapshotstore methods themselves take
// no lock); SharedLock lets readers run alongside each other but never
// alongside a writer.
func (l *Lock) Acquire(ctx context.Context, mode LockMode, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var ok bool
	var err error
	switch mode {
	case ExclusiveLock:
		ok, err = l.fl.TryLockContext(ctx, lockPollInterval)
	default:
		ok, err = l.fl.TryRLockContext(ctx, lockPollInterval)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &syserr.LockBusy{}
		}
		return fmt.Errorf("store: acquire lock: %w", err)
	}
	if !ok {
		return &syserr.LockBusy{}
	}
	return nil
}

// Release unlocks the lock file. A no-op if not currently held.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}
