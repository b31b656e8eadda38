package cache

import (
	"context"

	"github.com/kalbasit/mule/pkg/rpc"
)

// Client calls a remote Cache service over the RPC transport, used by the
// mule CLI client.
type Client struct {
	rpc *rpc.Client
}

// NewClient returns a Client targeting baseURL, e.g. "http://host:3881". The
// cache daemon mounts its method table under /rpc (see pkg/server).
func NewClient(baseURL string) *Client {
	return &Client{rpc: rpc.NewClient(baseURL + "/rpc")}
}

// Get requests lfn be materialized at path.
func (c *Client) Get(ctx context.Context, lfn, path string, symlink bool) (Status, error) {
	var out struct {
		Status string `json:"status"`
	}

	err := c.rpc.Call(ctx, "get", map[string]any{"lfn": lfn, "path": path, "symlink": symlink}, &out)

	return Status(out.Status), err
}

// MultiGet requests every pair be materialized.
func (c *Client) MultiGet(ctx context.Context, pairs []Pair, symlink bool) error {
	return c.rpc.Call(ctx, "multiget", map[string]any{"pairs": pairs, "symlink": symlink}, nil)
}

// Put publishes a local file as lfn.
func (c *Client) Put(ctx context.Context, path, lfn string, rename bool) error {
	return c.rpc.Call(ctx, "put", map[string]any{"path": path, "lfn": lfn, "rename": rename}, nil)
}

// MultiPut publishes many local files.
func (c *Client) MultiPut(ctx context.Context, pairs []Pair, rename bool) error {
	return c.rpc.Call(ctx, "multiput", map[string]any{"pairs": pairs, "rename": rename}, nil)
}

// Remove deletes lfn's record, file, and self-PFN RLS entry.
func (c *Client) Remove(ctx context.Context, lfn string, force bool) error {
	return c.rpc.Call(ctx, "remove", map[string]any{"lfn": lfn, "force": force}, nil)
}

// List returns every record held by the remote cache.
func (c *Client) List(ctx context.Context) ([]Record, error) {
	var out []Record

	err := c.rpc.Call(ctx, "list", nil, &out)

	return out, err
}

// RLSAdd passes through to the remote cache's RLS client.
func (c *Client) RLSAdd(ctx context.Context, lfn, pfn string) error {
	return c.rpc.Call(ctx, "rls_add", map[string]string{"lfn": lfn, "pfn": pfn}, nil)
}

// RLSDelete passes through to the remote cache's RLS client.
func (c *Client) RLSDelete(ctx context.Context, lfn, pfn string) error {
	return c.rpc.Call(ctx, "rls_delete", map[string]string{"lfn": lfn, "pfn": pfn}, nil)
}

// RLSLookup passes through to the remote cache's RLS client.
func (c *Client) RLSLookup(ctx context.Context, lfn string) ([]string, error) {
	var out []string

	err := c.rpc.Call(ctx, "rls_lookup", map[string]string{"lfn": lfn}, &out)

	return out, err
}

// GetBloomFilter returns the remote cache's Bloom filter over its LFNs, as
// an ordered sequence of base64 chunks.
func (c *Client) GetBloomFilter(ctx context.Context, m, k int) ([]string, error) {
	var out []string

	err := c.rpc.Call(ctx, "get_bloom_filter", map[string]int{"m": m, "k": k}, &out)

	return out, err
}

// Stats returns the remote cache's counters.
func (c *Client) Stats(ctx context.Context) (Snapshot, error) {
	var out Snapshot

	err := c.rpc.Call(ctx, "stats", nil, &out)

	return out, err
}

// Clear drops every record on the remote cache.
func (c *Client) Clear(ctx context.Context) error {
	return c.rpc.Call(ctx, "clear", nil, nil)
}

// RLSClear drops every entry in the RLS the remote cache is configured
// against.
func (c *Client) RLSClear(ctx context.Context) error {
	return c.rpc.Call(ctx, "rls_clear", nil, nil)
}
