// Package lock provides an abstraction layer for per-key locking.
//
// It is used by pkg/store to serialize the "contended key" retry path that
// stands in for BerkeleyDB-style deadlock detection: WithRetry acquires a
// per-key lock from a configured Locker before running its transaction, so
// two writers racing the same logical key run one after the other;
// WithRetry retries with backoff only when acquiring the lock fails.
package lock

import (
	"context"
	"time"
)

// Locker provides exclusive, key-scoped locking semantics.
//
// The ttl parameter is part of the interface so a future distributed
// implementation (e.g. backed by a lease) can slot in without changing
// call sites; the in-process implementation in pkg/lock/local ignores it.
type Locker interface {
	// Lock acquires an exclusive lock for the given key, blocking until it is
	// available or ctx is done.
	Lock(ctx context.Context, key string, ttl time.Duration) error

	// Unlock releases an exclusive lock for the given key. It is an error to
	// unlock a key that isn't currently locked by this Locker.
	Unlock(ctx context.Context, key string) error

	// TryLock attempts to acquire an exclusive lock without blocking.
	//
	// Returns:
	//   - (true, nil) if the lock was acquired
	//   - (false, nil) if the lock is held by someone else
	//   - (false, error) if an error occurred
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RWLocker provides read-write locking semantics.
//
// Multiple readers can hold the lock simultaneously, but writers have
// exclusive access.
type RWLocker interface {
	Locker

	// RLock acquires a shared read lock for the given key.
	RLock(ctx context.Context, key string, ttl time.Duration) error

	// RUnlock releases a shared read lock for the given key.
	RUnlock(ctx context.Context, key string) error
}
