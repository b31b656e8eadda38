package cache

import (
	"context"
	"fmt"
	"os"

	bolt "go.etcd.io/bbolt"
)

// Put publishes a local file as lfn: moves (or copies, per rename) it into
// the store, marks the record ready, and registers the self-PFN with RLS.
func (c *Cache) Put(ctx context.Context, path, lfn string, rename bool) error {
	return c.MultiPut(ctx, []Pair{{LFN: lfn, Path: path}}, rename)
}

// MultiPut is the bulk form of Put; a single RLS registration call covers
// every successfully published pair.
func (c *Cache) MultiPut(ctx context.Context, pairs []Pair, rename bool) error {
	batch := make(map[string][]string)

	for _, p := range pairs {
		c.stats.incPut()

		if _, err := os.Stat(p.Path); err != nil {
			return fmt.Errorf("%w: %s", ErrSourceMissing, p.Path)
		}

		skip, err := c.putOne(ctx, p, rename)
		if err != nil {
			return err
		}

		if skip {
			c.stats.incDuplicate()

			continue
		}

		batch[p.LFN] = []string{c.selfPFN(p.LFN)}
	}

	if len(batch) == 0 {
		return nil
	}

	if err := c.rls.MultiAdd(ctx, batch); err != nil {
		return fmt.Errorf("cache: error registering put with rls: %w", err)
	}

	return nil
}

// putOne publishes a single pair, returning skip=true if an existing
// record already claims this LFN (a warn-and-skip duplicate, not an
// error).
func (c *Cache) putOne(ctx context.Context, p Pair, rename bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var exists bool

	err := c.store.Update(func(tx *bolt.Tx) error {
		_, ok, gerr := c.getRecord(tx, p.LFN)
		if gerr != nil {
			return gerr
		}

		if ok {
			exists = true

			return nil
		}

		return c.putRecord(tx, Record{LFN: p.LFN, Status: StatusUnready})
	})
	if err != nil {
		return false, err
	}

	if exists {
		c.logger.Warn().Str("lfn", p.LFN).Msg("put: lfn already cached, skipping")

		return true, nil
	}

	if err := c.content.PutFile(ctx, uuidFor(p.LFN), p.Path, rename); err != nil {
		_ = c.setStatus(ctx, p.LFN, StatusFailed)

		return false, err
	}

	if err := c.setStatus(ctx, p.LFN, StatusReady); err != nil {
		return false, err
	}

	return false, nil
}
