package cache

import (
	"context"
	"fmt"
	"io"

	"github.com/kalbasit/mule/pkg/fetch"
)

// downloadWorker is one of the fixed-size pool of goroutines (default: one
// per CPU) that dequeue DownloadRequests and execute them.
func (c *Cache) downloadWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.shutdownCh:
			return
		case req, ok := <-c.queue:
			if !ok {
				return
			}

			c.runDownload(ctx, req)
		}
	}
}

func (c *Cache) runDownload(ctx context.Context, req *downloadRequest) {
	defer close(req.done)

	if err := c.fetchOneOf(ctx, req.lfn, req.pfns); err != nil {
		req.err = err

		if serr := c.setStatus(ctx, req.lfn, StatusFailed); serr != nil {
			c.logger.Error().Err(serr).Str("lfn", req.lfn).Msg("error marking record failed")
		}

		return
	}

	if err := c.setStatus(ctx, req.lfn, StatusReady); err != nil {
		req.err = err

		return
	}
}

// fetchOneOf tries each PFN in order, stopping at the first that succeeds.
// It warns (but does not fail) if the destination UUID file is already
// present, matching the original's tolerance of a concurrently-completed
// put racing the same LFN.
func (c *Cache) fetchOneOf(ctx context.Context, lfn string, pfns []string) error {
	if len(pfns) == 0 {
		return fmt.Errorf("%w: %s", ErrNoSources, lfn)
	}

	uuid := uuidFor(lfn)

	if c.content.Has(uuid) {
		c.logger.Warn().Str("lfn", lfn).Str("uuid", uuid).Msg("content already present before download")
	}

	var lastErr error

	for _, pfn := range pfns {
		if err := c.fetchOne(ctx, uuid, pfn); err != nil {
			lastErr = err

			c.logger.Warn().Err(err).Str("lfn", lfn).Str("pfn", pfn).Msg("source failed, trying next")

			continue
		}

		return nil
	}

	return fmt.Errorf("cache: all sources exhausted for %s: %w", lfn, lastErr)
}

func (c *Cache) fetchOne(ctx context.Context, uuid, pfn string) error {
	pr, pw := io.Pipe()

	errCh := make(chan error, 1)

	go func() {
		err := fetch.Fetch(ctx, pfn, pw, c.blockSize)
		errCh <- err
		pw.CloseWithError(err)
	}()

	_, storeErr := c.content.PutReader(ctx, uuid, pr)

	if fetchErr := <-errCh; fetchErr != nil {
		return fetchErr
	}

	return storeErr
}
