package local

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kalbasit/mule/pkg/lock"
)

var (
	// ErrUnlockUnknownKey is returned when attempting to unlock a key that is not locked.
	ErrUnlockUnknownKey = fmt.Errorf("local.Locker: unlock of unknown key")

	// ErrRUnlockUnknownKey is returned when attempting to runlock a key that is not locked.
	ErrRUnlockUnknownKey = fmt.Errorf("local.Locker: runlock of unknown key")
)

// Locker implements lock.Locker using per-key mutexes, one per LFN
// contended by store.WithRetry. Uses a map of mutexes to provide true
// per-key locking semantics without the risk of shard collisions.
// Ref-counting is used to clean up mutexes when they are no longer in use.
type Locker struct {
	mu      sync.Mutex
	lockers map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	refCount  int
	startTime time.Time
}

// NewLocker creates a new local locker.
func NewLocker() lock.Locker {
	return &Locker{
		lockers: make(map[string]*keyLock),
	}
}

// getLock returns the lock for the given key, creating it if it doesn't exist.
// It also increments the reference count.
func (l *Locker) getLock(key string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.lockers[key]
	if !ok {
		kl = &keyLock{}
		l.lockers[key] = kl
	}

	kl.refCount++

	return kl
}

// releaseLock decrements the reference count and removes the lock from the map if it reaches zero.
func (l *Locker) releaseLock(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl := l.lockers[key]

	kl.refCount--
	if kl.refCount == 0 {
		delete(l.lockers, key)
	}
}

// Lock acquires an exclusive lock on key. The ttl parameter is ignored: a
// local lock is held for as long as the caller holds it, not a lease. The
// wait is not interrupted when ctx is done; Lock always returns nil.
func (l *Locker) Lock(ctx context.Context, key string, _ time.Duration) error {
	kl := l.getLock(key)

	start := time.Now()

	kl.Lock()

	kl.startTime = time.Now()

	logLockEvent(ctx, key, "lock", time.Since(start))

	return nil
}

// Unlock releases an exclusive lock for the given key.
func (l *Locker) Unlock(ctx context.Context, key string) error {
	l.mu.Lock()

	kl, ok := l.lockers[key]
	if !ok {
		l.mu.Unlock()

		return fmt.Errorf("%w: %s", ErrUnlockUnknownKey, key)
	}

	// Drop the reference while still holding l.mu, so a concurrent Unlock of
	// the same key sees it gone instead of unlocking the mutex a second time.
	kl.refCount--
	if kl.refCount == 0 {
		delete(l.lockers, key)
	}

	l.mu.Unlock()

	if !kl.startTime.IsZero() {
		logLockHeld(ctx, key, time.Since(kl.startTime))

		kl.startTime = time.Time{}
	}

	kl.Unlock()

	return nil
}

// TryLock attempts to acquire an exclusive lock without blocking.
func (l *Locker) TryLock(ctx context.Context, key string, _ time.Duration) (bool, error) {
	kl := l.getLock(key)

	acquired := kl.TryLock()
	if !acquired {
		logLockContended(ctx, key)
		l.releaseLock(key)

		return false, nil
	}

	kl.startTime = time.Now()

	logLockEvent(ctx, key, "trylock", 0)

	return true, nil
}

func logLockEvent(ctx context.Context, key, op string, wait time.Duration) {
	ev := zerolog.Ctx(ctx).Debug().Str("key", key).Str("op", op)
	if wait > 0 {
		ev = ev.Dur("wait", wait)
	}

	ev.Msg("local lock acquired")
}

func logLockHeld(ctx context.Context, key string, held time.Duration) {
	zerolog.Ctx(ctx).Debug().Str("key", key).Dur("held", held).Msg("local lock released")
}

func logLockContended(ctx context.Context, key string) {
	zerolog.Ctx(ctx).Debug().Str("key", key).Msg("local lock contended")
}
