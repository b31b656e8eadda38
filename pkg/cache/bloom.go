package cache

import (
	"context"
	"fmt"

	"github.com/kalbasit/mule/pkg/bits"
)

// GetBloomFilter serializes a Bloom filter over every LFN currently in the
// local cache (any status), returned as an ordered sequence of base64
// chunks a peer can reassemble to test membership without a round trip.
func (c *Cache) GetBloomFilter(ctx context.Context, m, k int) ([]string, error) {
	records, err := c.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("cache: error listing records for bloom filter: %w", err)
	}

	f := bits.NewBloomFilter(m, k)
	for _, r := range records {
		f.Add(r.LFN)
	}

	return f.ToChunks(), nil
}

// RLSClear drops every entry from the RLS this cache is configured against.
func (c *Cache) RLSClear(ctx context.Context) error {
	clearer, ok := c.rls.(interface{ Clear(context.Context) error })
	if !ok {
		return fmt.Errorf("cache: rls client does not support clear")
	}

	return clearer.Clear(ctx)
}

// RLSMultiLookup is a thin pass-through to the RLS client.
func (c *Cache) RLSMultiLookup(ctx context.Context, lfns []string) (map[string][]string, error) {
	return c.rls.MultiLookup(ctx, lfns)
}
