package rls

import (
	"context"

	"github.com/kalbasit/mule/pkg/rpc"
)

// Client calls a remote RLS service over the RPC transport. It satisfies
// the same call shape as RLS itself so the cache can be pointed at either
// an embedded RLS or a remote one without branching.
type Client struct {
	rpc *rpc.Client
}

// NewClient returns a Client targeting baseURL, e.g. "http://rls-host:3880".
// The RLS daemon mounts its method table under /rpc (see pkg/server).
func NewClient(baseURL string) *Client {
	return &Client{rpc: rpc.NewClient(baseURL + "/rpc")}
}

// Add inserts (lfn, pfn) on the remote RLS.
func (c *Client) Add(ctx context.Context, lfn, pfn string) error {
	return c.rpc.Call(ctx, "add", map[string]string{"lfn": lfn, "pfn": pfn}, nil)
}

// MultiAdd inserts many (lfn, pfn) pairs on the remote RLS.
func (c *Client) MultiAdd(ctx context.Context, pairs map[string][]string) error {
	return c.rpc.Call(ctx, "multiadd", map[string]map[string][]string{"pairs": pairs}, nil)
}

// Delete removes (lfn, pfn), or every pair for lfn if pfn is empty.
func (c *Client) Delete(ctx context.Context, lfn, pfn string) error {
	return c.rpc.Call(ctx, "delete", map[string]string{"lfn": lfn, "pfn": pfn}, nil)
}

// MultiDelete removes many (lfn, pfn) pairs.
func (c *Client) MultiDelete(ctx context.Context, pairs map[string][]string) error {
	return c.rpc.Call(ctx, "multidelete", map[string]map[string][]string{"pairs": pairs}, nil)
}

// Lookup returns every PFN registered for lfn.
func (c *Client) Lookup(ctx context.Context, lfn string) ([]string, error) {
	var out []string

	err := c.rpc.Call(ctx, "lookup", map[string]string{"lfn": lfn}, &out)

	return out, err
}

// MultiLookup resolves many LFNs in one call.
func (c *Client) MultiLookup(ctx context.Context, lfns []string) (map[string][]string, error) {
	var out map[string][]string

	err := c.rpc.Call(ctx, "multilookup", map[string][]string{"lfns": lfns}, &out)

	return out, err
}

// Ready probes liveness.
func (c *Client) Ready(ctx context.Context) (bool, error) {
	var out bool

	err := c.rpc.Call(ctx, "ready", nil, &out)

	return out, err
}

// Clear drops every entry on the remote RLS.
func (c *Client) Clear(ctx context.Context) error {
	return c.rpc.Call(ctx, "clear", nil, nil)
}
