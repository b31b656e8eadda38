package cache

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/kalbasit/mule/pkg/fetch"
)

// Get ensures lfn is locally cached and materializes it at path. It is the
// single-pair special case of MultiGet.
func (c *Cache) Get(ctx context.Context, lfn, path string, symlink bool) (Status, error) {
	err := c.MultiGet(ctx, []Pair{{LFN: lfn, Path: path}}, symlink)
	if err != nil {
		return StatusFailed, err
	}

	return StatusReady, nil
}

// MultiGet is the coalesced bulk get: it completes only when every listed
// LFN is ready, or raises on the first failure.
func (c *Cache) MultiGet(ctx context.Context, pairs []Pair, symlink bool) error {
	lfnPaths := make(map[string][]string, len(pairs))

	for _, p := range pairs {
		c.stats.incGet()

		lfnPaths[p.LFN] = append(lfnPaths[p.LFN], p.Path)
	}

	ready, unready, created, err := c.partition(ctx, lfnPaths)
	if err != nil {
		return err
	}

	// Serve ready pairs immediately.
	for _, lfn := range ready {
		c.stats.incHit()

		if err := c.materializeAll(lfn, lfnPaths[lfn], symlink); err != nil {
			return err
		}
	}

	for range unready {
		c.stats.incNearMiss()
	}

	for range created {
		c.stats.incMiss()
	}

	createdReqs, err := c.enqueueDownloads(ctx, created)
	if err != nil {
		return err
	}

	multiAddBatch := make(map[string][]string)

	var firstErr error

	for lfn, req := range createdReqs {
		<-req.done

		if req.err != nil {
			c.stats.incFailure()

			if firstErr == nil {
				firstErr = req.err
			}

			continue
		}

		multiAddBatch[lfn] = []string{c.selfPFN(lfn)}

		if err := c.materializeAll(lfn, lfnPaths[lfn], symlink); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if len(multiAddBatch) > 0 {
		if err := c.rls.MultiAdd(ctx, multiAddBatch); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("cache: error registering downloads with rls: %w", err)
		}
	}

	if firstErr != nil {
		return firstErr
	}

	// Poll the originally-unready (near-miss) entries until each settles.
	return c.pollUntilSettled(ctx, unready, lfnPaths, symlink)
}

// partition classifies each LFN into ready/unready/created, inserting an
// unready record for every newly-seen LFN inside the same guarded window.
// The mutex serializes the decision of who performs each download.
func (c *Cache) partition(ctx context.Context, lfnPaths map[string][]string) (ready, unready, created []string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	err = c.store.Update(func(tx *bolt.Tx) error {
		for lfn := range lfnPaths {
			rec, ok, gerr := c.getRecord(tx, lfn)
			if gerr != nil {
				return gerr
			}

			switch {
			case !ok:
				if perr := c.putRecord(tx, Record{LFN: lfn, Status: StatusUnready}); perr != nil {
					return perr
				}

				created = append(created, lfn)
			case rec.Status == StatusReady:
				ready = append(ready, lfn)
			case rec.Status == StatusFailed:
				return fmt.Errorf("%w: %s", ErrRecordFailed, lfn)
			default:
				unready = append(unready, lfn)
			}
		}

		return nil
	})

	if err != nil {
		return nil, nil, nil, err
	}

	return ready, unready, created, nil
}

// enqueueDownloads resolves PFNs for every created LFN via a single RLS
// multilookup, then hands each one to the download worker pool.
func (c *Cache) enqueueDownloads(ctx context.Context, created []string) (map[string]*downloadRequest, error) {
	reqs := make(map[string]*downloadRequest, len(created))

	if len(created) == 0 {
		return reqs, nil
	}

	resolved, err := c.rls.MultiLookup(ctx, created)
	if err != nil {
		return nil, fmt.Errorf("cache: error resolving sources from rls: %w", err)
	}

	for _, lfn := range created {
		pfns := resolved[lfn]
		if fetch.LooksLikeURL(lfn) {
			pfns = append(pfns, lfn)
		}

		req := &downloadRequest{lfn: lfn, pfns: pfns, done: make(chan struct{})}
		reqs[lfn] = req

		select {
		case c.queue <- req:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return reqs, nil
}

// materializeAll places the cached object for lfn at every requested
// destination path. It surfaces ErrCorrupt rather than letting a missing
// backing file turn into a dangling symlink or a confusing open error.
func (c *Cache) materializeAll(lfn string, paths []string, symlink bool) error {
	uuid := uuidFor(lfn)

	if !c.content.Has(uuid) {
		return fmt.Errorf("%w: %s", ErrCorrupt, lfn)
	}

	for _, path := range paths {
		if err := c.content.Materialize(uuid, path, symlink); err != nil {
			return err
		}
	}

	return nil
}

// pollUntilSettled waits on LFNs another caller is already downloading,
// re-checking status every pollInterval and materializing or failing as
// each settles.
func (c *Cache) pollUntilSettled(ctx context.Context, lfns []string, lfnPaths map[string][]string, symlink bool) error {
	pending := make(map[string]struct{}, len(lfns))
	for _, lfn := range lfns {
		pending[lfn] = struct{}{}
	}

	for len(pending) > 0 {
		for lfn := range pending {
			var (
				rec Record
				ok  bool
			)

			err := c.store.View(func(tx *bolt.Tx) error {
				var gerr error

				rec, ok, gerr = c.getRecord(tx, lfn)

				return gerr
			})
			if err != nil {
				return err
			}

			if !ok {
				delete(pending, lfn)

				continue
			}

			switch rec.Status {
			case StatusReady:
				if err := c.materializeAll(lfn, lfnPaths[lfn], symlink); err != nil {
					return err
				}

				delete(pending, lfn)
			case StatusFailed:
				return fmt.Errorf("%w: %s", ErrRecordFailed, lfn)
			}
		}

		if len(pending) == 0 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}

	return nil
}
