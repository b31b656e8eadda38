package local

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kalbasit/mule/pkg/lock"
)

// RWLocker implements lock.RWLocker using per-key RWMutexes: concurrent
// readers of a key proceed without blocking on each other, while a writer
// excludes all of them.
type RWLocker struct {
	mu      sync.Mutex
	lockers map[string]*keyRWLock
}

type keyRWLock struct {
	sync.RWMutex
	refCount  int
	startTime time.Time
}

// NewRWLocker creates a new local read-write locker.
func NewRWLocker() lock.RWLocker {
	return &RWLocker{
		lockers: make(map[string]*keyRWLock),
	}
}

// getLock returns the lock for the given key, creating it if it doesn't exist.
// It also increments the reference count.
func (rw *RWLocker) getLock(key string) *keyRWLock {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	kl, ok := rw.lockers[key]
	if !ok {
		kl = &keyRWLock{}
		rw.lockers[key] = kl
	}

	kl.refCount++

	return kl
}

// releaseLock decrements the reference count and removes the lock from the map if it reaches zero.
func (rw *RWLocker) releaseLock(key string) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if kl, ok := rw.lockers[key]; ok {
		kl.refCount--
		if kl.refCount == 0 {
			delete(rw.lockers, key)
		}
	}
}

// Lock acquires an exclusive lock on key. The ttl parameter is ignored, and
// the wait is not interrupted when ctx is done.
func (rw *RWLocker) Lock(ctx context.Context, key string, _ time.Duration) error {
	kl := rw.getLock(key)

	start := time.Now()

	kl.Lock()

	kl.startTime = time.Now()

	logLockEvent(ctx, key, "lock", time.Since(start))

	return nil
}

// Unlock releases an exclusive lock for the given key.
func (rw *RWLocker) Unlock(ctx context.Context, key string) error {
	rw.mu.Lock()

	kl, ok := rw.lockers[key]
	if !ok {
		rw.mu.Unlock()

		return fmt.Errorf("%w: %s", ErrUnlockUnknownKey, key)
	}

	// Drop the reference while still holding rw.mu, so a concurrent Unlock of
	// the same key sees it gone instead of unlocking the mutex a second time.
	kl.refCount--
	if kl.refCount == 0 {
		delete(rw.lockers, key)
	}

	rw.mu.Unlock()

	if !kl.startTime.IsZero() {
		logLockHeld(ctx, key, time.Since(kl.startTime))

		kl.startTime = time.Time{}
	}

	kl.Unlock()

	return nil
}

// TryLock attempts to acquire an exclusive lock without blocking.
func (rw *RWLocker) TryLock(ctx context.Context, key string, _ time.Duration) (bool, error) {
	kl := rw.getLock(key)

	acquired := kl.TryLock()
	if !acquired {
		logLockContended(ctx, key)
		rw.releaseLock(key)

		return false, nil
	}

	kl.startTime = time.Now()

	logLockEvent(ctx, key, "trylock", 0)

	return true, nil
}

// RLock acquires a shared read lock on key. The ttl parameter is ignored, and
// the wait is not interrupted when ctx is done.
func (rw *RWLocker) RLock(ctx context.Context, key string, _ time.Duration) error {
	kl := rw.getLock(key)

	start := time.Now()

	kl.RLock()

	logLockEvent(ctx, key, "rlock", time.Since(start))

	return nil
}

// RUnlock releases a shared read lock for the given key.
func (rw *RWLocker) RUnlock(ctx context.Context, key string) error {
	rw.mu.Lock()

	kl, ok := rw.lockers[key]
	if !ok {
		rw.mu.Unlock()

		return fmt.Errorf("%w: %s", ErrRUnlockUnknownKey, key)
	}

	kl.refCount--
	if kl.refCount == 0 {
		delete(rw.lockers, key)
	}

	rw.mu.Unlock()

	kl.RUnlock()

	zerolog.Ctx(ctx).Debug().Str("key", key).Str("op", "runlock").Msg("local lock released")

	return nil
}
