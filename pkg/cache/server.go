package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kalbasit/mule/pkg/rpc"
)

// RegisterRPC wires every cache operation into an rpc.Server's method table.
func (c *Cache) RegisterRPC(s *rpc.Server) {
	s.Handle("get", c.rpcGet)
	s.Handle("multiget", c.rpcMultiGet)
	s.Handle("put", c.rpcPut)
	s.Handle("multiput", c.rpcMultiPut)
	s.Handle("remove", c.rpcRemove)
	s.Handle("list", c.rpcList)
	s.Handle("rls_add", c.rpcRLSAdd)
	s.Handle("rls_delete", c.rpcRLSDelete)
	s.Handle("rls_lookup", c.rpcRLSLookup)
	s.Handle("get_bloom_filter", c.rpcGetBloomFilter)
	s.Handle("stats", c.rpcStats)
	s.Handle("clear", c.rpcClear)
	s.Handle("rls_clear", c.rpcRLSClear)
}

func (c *Cache) rpcGet(ctx context.Context, params json.RawMessage) (any, error) {
	var in struct {
		LFN     string `json:"lfn"`
		Path    string `json:"path"`
		Symlink bool   `json:"symlink"`
	}

	if err := json.Unmarshal(params, &in); err != nil {
		return nil, fmt.Errorf("cache: error decoding get params: %w", err)
	}

	status, err := c.Get(ctx, in.LFN, in.Path, in.Symlink)

	return map[string]string{"status": string(status)}, err
}

func (c *Cache) rpcMultiGet(ctx context.Context, params json.RawMessage) (any, error) {
	var in struct {
		Pairs   []Pair `json:"pairs"`
		Symlink bool   `json:"symlink"`
	}

	if err := json.Unmarshal(params, &in); err != nil {
		return nil, fmt.Errorf("cache: error decoding multiget params: %w", err)
	}

	return nil, c.MultiGet(ctx, in.Pairs, in.Symlink)
}

func (c *Cache) rpcPut(ctx context.Context, params json.RawMessage) (any, error) {
	var in struct {
		Path   string `json:"path"`
		LFN    string `json:"lfn"`
		Rename bool   `json:"rename"`
	}

	if err := json.Unmarshal(params, &in); err != nil {
		return nil, fmt.Errorf("cache: error decoding put params: %w", err)
	}

	return nil, c.Put(ctx, in.Path, in.LFN, in.Rename)
}

func (c *Cache) rpcMultiPut(ctx context.Context, params json.RawMessage) (any, error) {
	var in struct {
		Pairs  []Pair `json:"pairs"`
		Rename bool   `json:"rename"`
	}

	if err := json.Unmarshal(params, &in); err != nil {
		return nil, fmt.Errorf("cache: error decoding multiput params: %w", err)
	}

	return nil, c.MultiPut(ctx, in.Pairs, in.Rename)
}

func (c *Cache) rpcRemove(ctx context.Context, params json.RawMessage) (any, error) {
	var in struct {
		LFN   string `json:"lfn"`
		Force bool   `json:"force"`
	}

	if err := json.Unmarshal(params, &in); err != nil {
		return nil, fmt.Errorf("cache: error decoding remove params: %w", err)
	}

	return nil, c.Remove(ctx, in.LFN, in.Force)
}

func (c *Cache) rpcList(ctx context.Context, _ json.RawMessage) (any, error) {
	return c.List(ctx)
}

func (c *Cache) rpcRLSAdd(ctx context.Context, params json.RawMessage) (any, error) {
	var in struct {
		LFN string `json:"lfn"`
		PFN string `json:"pfn"`
	}

	if err := json.Unmarshal(params, &in); err != nil {
		return nil, fmt.Errorf("cache: error decoding rls_add params: %w", err)
	}

	return nil, c.RLSAdd(ctx, in.LFN, in.PFN)
}

func (c *Cache) rpcRLSDelete(ctx context.Context, params json.RawMessage) (any, error) {
	var in struct {
		LFN string `json:"lfn"`
		PFN string `json:"pfn"`
	}

	if err := json.Unmarshal(params, &in); err != nil {
		return nil, fmt.Errorf("cache: error decoding rls_delete params: %w", err)
	}

	return nil, c.RLSDelete(ctx, in.LFN, in.PFN)
}

func (c *Cache) rpcRLSLookup(ctx context.Context, params json.RawMessage) (any, error) {
	var in struct {
		LFN string `json:"lfn"`
	}

	if err := json.Unmarshal(params, &in); err != nil {
		return nil, fmt.Errorf("cache: error decoding rls_lookup params: %w", err)
	}

	return c.RLSLookup(ctx, in.LFN)
}

func (c *Cache) rpcGetBloomFilter(ctx context.Context, params json.RawMessage) (any, error) {
	var in struct {
		M int `json:"m"`
		K int `json:"k"`
	}

	if err := json.Unmarshal(params, &in); err != nil {
		return nil, fmt.Errorf("cache: error decoding get_bloom_filter params: %w", err)
	}

	return c.GetBloomFilter(ctx, in.M, in.K)
}

func (c *Cache) rpcStats(_ context.Context, _ json.RawMessage) (any, error) {
	return c.Stats(), nil
}

func (c *Cache) rpcClear(ctx context.Context, _ json.RawMessage) (any, error) {
	return nil, c.Clear(ctx)
}

func (c *Cache) rpcRLSClear(ctx context.Context, _ json.RawMessage) (any, error) {
	return nil, c.RLSClear(ctx)
}
