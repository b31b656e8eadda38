package cache

import (
	"context"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// Remove deletes the record, its content file, and the self-PFN RLS entry
// for lfn. It refuses a non-ready record unless force is set.
func (c *Cache) Remove(ctx context.Context, lfn string, force bool) error {
	c.mu.Lock()

	var (
		rec Record
		ok  bool
	)

	err := c.store.Update(func(tx *bolt.Tx) error {
		var gerr error

		rec, ok, gerr = c.getRecord(tx, lfn)
		if gerr != nil || !ok {
			return gerr
		}

		if rec.Status != StatusReady && !force {
			return fmt.Errorf("%w: %s", ErrRecordNotReady, lfn)
		}

		return tx.Bucket(bucketName).Delete([]byte(lfn))
	})

	c.mu.Unlock()

	if err != nil {
		return err
	}

	if !ok {
		return nil
	}

	if err := c.content.Remove(uuidFor(lfn)); err != nil {
		return err
	}

	if err := c.rls.Delete(ctx, lfn, c.selfPFN(lfn)); err != nil {
		return fmt.Errorf("cache: error removing self pfn from rls: %w", err)
	}

	return nil
}

// List returns every record currently held, regardless of status.
func (c *Cache) List(_ context.Context) ([]Record, error) {
	var records []Record

	err := c.store.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)

		return b.ForEach(func(_, v []byte) error {
			r, err := decodeRecord(v)
			if err != nil {
				return err
			}

			records = append(records, r)

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}
