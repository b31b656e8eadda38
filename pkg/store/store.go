// Package store provides a crash-safe, transactional key-value backing for
// both the cache and the RLS service. It wraps go.etcd.io/bbolt, an embedded
// ordered B-tree store, with a retry wrapper for contended writes and a
// periodic checkpoint task (which logs the store size, see startCheckpoint).
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"

	"github.com/kalbasit/mule/pkg/lock"
)

// ErrContended is returned by WithRetry when a write could not be committed
// after exhausting its retry budget. bbolt serializes writers with a single
// mutex rather than detecting deadlocks, so this stands in for BerkeleyDB's
// deadlock error. It arises when the installed per-key locker fails to
// acquire the key; the in-process local.Locker blocks until the key is free
// and never fails, so with it same-key writers run one after the other
// rather than retrying.
var ErrContended = errors.New("store: write contended after retries")

// checkpointInterval matches the 300s periodic checkpoint cadence of the
// original BerkeleyDB-backed store.
const checkpointInterval = 300 * time.Second

// Store is a single bbolt database plus the retry and checkpoint machinery
// layered on top of it.
type Store struct {
	db     *bolt.DB
	path   string
	locker lock.Locker
	cron   *cron.Cron
	logger zerolog.Logger
}

// Open opens (creating if absent) the bbolt database at path, along with any
// parent directories, and starts the background checkpoint task.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: error creating directory for %q: %w", path, err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: error opening %q: %w", path, err)
	}

	s := &Store{
		db:     db,
		path:   path,
		locker: nil,
		logger: zerolog.Ctx(ctx).With().Str("component", "store").Str("path", path).Logger(),
	}

	s.startCheckpoint(ctx)

	return s, nil
}

// CreateBucketIfNotExists ensures the named bucket exists.
func (s *Store) CreateBucketIfNotExists(name []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(name)

		return err
	})
}

// View runs fn inside a read-only transaction.
func (s *Store) View(fn func(tx *bolt.Tx) error) error {
	return s.db.View(fn)
}

// Update runs fn inside a read-write transaction. It commits on return nil,
// rolls back on any error.
func (s *Store) Update(fn func(tx *bolt.Tx) error) error {
	return s.db.Update(fn)
}

// WithRetry runs fn inside a read-write transaction, making at most
// lock.DefaultRetryConfig().MaxAttempts (3) attempts, with backoff between
// them, while an attempt fails with ErrContended or bolt.ErrTimeout; any
// other error is returned at once. When a locker is installed (see
// SetLocker), fn runs while holding key's exclusive lock and ErrContended
// comes from acquiring that lock failing; without one, fn relies on bbolt's
// single-writer lock alone.
func (s *Store) WithRetry(ctx context.Context, key string, fn func(tx *bolt.Tx) error) error {
	cfg := lock.DefaultRetryConfig()

	var lastErr error

	for attempt := range cfg.MaxAttempts {
		if attempt > 0 {
			time.Sleep(lock.CalculateBackoff(cfg, attempt))
		}

		lastErr = s.tryWithLock(ctx, key, fn)
		if lastErr == nil {
			return nil
		}

		if !errors.Is(lastErr, bolt.ErrTimeout) && !errors.Is(lastErr, ErrContended) {
			return lastErr
		}

		s.logger.Warn().
			Err(lastErr).
			Str("key", key).
			Int("attempt", attempt+1).
			Msg("retrying contended transaction")
	}

	return fmt.Errorf("%w: key %q: %w", ErrContended, key, lastErr)
}

func (s *Store) tryWithLock(ctx context.Context, key string, fn func(tx *bolt.Tx) error) error {
	if s.locker != nil {
		if err := s.locker.Lock(ctx, key, 30*time.Second); err != nil {
			return fmt.Errorf("%w: %w", ErrContended, err)
		}

		defer func() {
			_ = s.locker.Unlock(ctx, key)
		}()
	}

	return s.db.Update(fn)
}

// SetLocker installs the per-key locker used to serialize WithRetry
// transactions that touch the same logical key. Stores created without one
// (the zero value) simply rely on bbolt's single-writer lock.
func (s *Store) SetLocker(l lock.Locker) {
	s.locker = l
}

// startCheckpoint launches the periodic checkpoint task. bbolt persists
// every committed transaction directly (there is no separate WAL to
// checkpoint), so the task's job here is narrower than BerkeleyDB's
// txn_checkpoint: it runs a read-only transaction to force a consistency
// check and logs store size, which is the cheap, safe stand-in for
// "archive old transaction logs" in an engine with no separate log files.
func (s *Store) startCheckpoint(ctx context.Context) {
	c := cron.New()

	_, err := c.AddFunc(fmt.Sprintf("@every %s", checkpointInterval), func() {
		if err := s.checkpoint(); err != nil {
			s.logger.Error().Err(err).Msg("checkpoint failed")
		}
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to schedule checkpoint task")

		return
	}

	s.cron = c
	c.Start()

	go func() {
		<-ctx.Done()
		s.cron.Stop()
	}()
}

func (s *Store) checkpoint() error {
	return s.db.View(func(tx *bolt.Tx) error {
		s.logger.Debug().Int64("size_bytes", tx.Size()).Msg("checkpoint")

		return nil
	})
}

// Close stops the checkpoint task and closes the underlying database file.
func (s *Store) Close() error {
	if s.cron != nil {
		s.cron.Stop()
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: error closing %q: %w", s.path, err)
	}

	return nil
}
