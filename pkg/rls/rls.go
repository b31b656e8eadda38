// Package rls implements the Replica Location Service: a transactional,
// duplicate-permitting LFN -> {PFN} multi-map, backed by pkg/store. A single
// (lfn, pfn) pair is unique; many PFNs may share an LFN. Duplicate
// suppression happens inside the same transaction that performs the
// insert, the "get-both then conditional put" pattern from the original
// BerkeleyDB design.
package rls

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	bolt "go.etcd.io/bbolt"

	"github.com/kalbasit/mule/pkg/store"
)

// bucketName is the bbolt bucket holding one entry per LFN, each a JSON
// array of its PFNs.
var bucketName = []byte("rls")

// RLS is the replica location service.
type RLS struct {
	store *store.Store
}

// New returns an RLS backed by st. The backing bucket is created if absent.
func New(st *store.Store) (*RLS, error) {
	if err := st.CreateBucketIfNotExists(bucketName); err != nil {
		return nil, fmt.Errorf("rls: error creating bucket: %w", err)
	}

	return &RLS{store: st}, nil
}

// Add inserts (lfn, pfn). A no-op if the exact pair already exists.
func (r *RLS) Add(ctx context.Context, lfn, pfn string) error {
	return r.store.WithRetry(ctx, lfn, func(tx *bolt.Tx) error {
		return addLocked(tx, lfn, pfn)
	})
}

// MultiAdd inserts many (lfn, pfn) pairs. Each is idempotent individually.
func (r *RLS) MultiAdd(ctx context.Context, pairs map[string][]string) error {
	for lfn, pfns := range pairs {
		for _, pfn := range pfns {
			if err := r.Add(ctx, lfn, pfn); err != nil {
				return err
			}
		}
	}

	return nil
}

// Delete removes the exact (lfn, pfn) pair, or every pair for lfn if pfn is
// empty.
func (r *RLS) Delete(ctx context.Context, lfn, pfn string) error {
	return r.store.WithRetry(ctx, lfn, func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)

		if pfn == "" {
			return b.Delete([]byte(lfn))
		}

		pfns, err := getPFNs(b, lfn)
		if err != nil {
			return err
		}

		filtered := slices.DeleteFunc(pfns, func(p string) bool { return p == pfn })
		if len(filtered) == 0 {
			return b.Delete([]byte(lfn))
		}

		return putPFNs(b, lfn, filtered)
	})
}

// MultiDelete removes every listed (lfn, pfn) pair.
func (r *RLS) MultiDelete(ctx context.Context, pairs map[string][]string) error {
	for lfn, pfns := range pairs {
		for _, pfn := range pfns {
			if err := r.Delete(ctx, lfn, pfn); err != nil {
				return err
			}
		}
	}

	return nil
}

// Lookup returns every PFN registered for lfn, or an empty slice if none
// (not an error).
func (r *RLS) Lookup(ctx context.Context, lfn string) ([]string, error) {
	_ = ctx

	var pfns []string

	err := r.store.View(func(tx *bolt.Tx) error {
		var err error

		pfns, err = getPFNs(tx.Bucket(bucketName), lfn)

		return err
	})
	if err != nil {
		return nil, err
	}

	return pfns, nil
}

// MultiLookup resolves many LFNs in one pass.
func (r *RLS) MultiLookup(ctx context.Context, lfns []string) (map[string][]string, error) {
	_ = ctx

	result := make(map[string][]string, len(lfns))

	err := r.store.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)

		for _, lfn := range lfns {
			pfns, err := getPFNs(b, lfn)
			if err != nil {
				return err
			}

			result[lfn] = pfns
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Ready is a liveness probe.
func (r *RLS) Ready(_ context.Context) (bool, error) {
	return true, nil
}

// Clear drops every entry.
func (r *RLS) Clear(ctx context.Context) error {
	return r.store.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketName); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}

		_, err := tx.CreateBucketIfNotExists(bucketName)

		return err
	})
}

func addLocked(tx *bolt.Tx, lfn, pfn string) error {
	b := tx.Bucket(bucketName)

	pfns, err := getPFNs(b, lfn)
	if err != nil {
		return err
	}

	if slices.Contains(pfns, pfn) {
		return nil
	}

	return putPFNs(b, lfn, append(pfns, pfn))
}

func getPFNs(b *bolt.Bucket, lfn string) ([]string, error) {
	raw := b.Get([]byte(lfn))
	if raw == nil {
		return nil, nil
	}

	var pfns []string
	if err := json.Unmarshal(raw, &pfns); err != nil {
		return nil, fmt.Errorf("rls: error decoding entry for %q: %w", lfn, err)
	}

	return pfns, nil
}

func putPFNs(b *bolt.Bucket, lfn string, pfns []string) error {
	raw, err := json.Marshal(pfns)
	if err != nil {
		return fmt.Errorf("rls: error encoding entry for %q: %w", lfn, err)
	}

	return b.Put([]byte(lfn), raw)
}
