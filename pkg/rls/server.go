package rls

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kalbasit/mule/pkg/rpc"
)

// RegisterRPC wires every RLS operation into an rpc.Server's method table.
func (r *RLS) RegisterRPC(s *rpc.Server) {
	s.Handle("add", r.rpcAdd)
	s.Handle("multiadd", r.rpcMultiAdd)
	s.Handle("delete", r.rpcDelete)
	s.Handle("multidelete", r.rpcMultiDelete)
	s.Handle("lookup", r.rpcLookup)
	s.Handle("multilookup", r.rpcMultiLookup)
	s.Handle("ready", r.rpcReady)
	s.Handle("clear", r.rpcClear)
}

func (r *RLS) rpcAdd(ctx context.Context, params json.RawMessage) (any, error) {
	var in struct {
		LFN string `json:"lfn"`
		PFN string `json:"pfn"`
	}

	if err := json.Unmarshal(params, &in); err != nil {
		return nil, fmt.Errorf("rls: error decoding add params: %w", err)
	}

	return nil, r.Add(ctx, in.LFN, in.PFN)
}

func (r *RLS) rpcMultiAdd(ctx context.Context, params json.RawMessage) (any, error) {
	var in struct {
		Pairs map[string][]string `json:"pairs"`
	}

	if err := json.Unmarshal(params, &in); err != nil {
		return nil, fmt.Errorf("rls: error decoding multiadd params: %w", err)
	}

	return nil, r.MultiAdd(ctx, in.Pairs)
}

func (r *RLS) rpcDelete(ctx context.Context, params json.RawMessage) (any, error) {
	var in struct {
		LFN string `json:"lfn"`
		PFN string `json:"pfn"`
	}

	if err := json.Unmarshal(params, &in); err != nil {
		return nil, fmt.Errorf("rls: error decoding delete params: %w", err)
	}

	return nil, r.Delete(ctx, in.LFN, in.PFN)
}

func (r *RLS) rpcMultiDelete(ctx context.Context, params json.RawMessage) (any, error) {
	var in struct {
		Pairs map[string][]string `json:"pairs"`
	}

	if err := json.Unmarshal(params, &in); err != nil {
		return nil, fmt.Errorf("rls: error decoding multidelete params: %w", err)
	}

	return nil, r.MultiDelete(ctx, in.Pairs)
}

func (r *RLS) rpcLookup(ctx context.Context, params json.RawMessage) (any, error) {
	var in struct {
		LFN string `json:"lfn"`
	}

	if err := json.Unmarshal(params, &in); err != nil {
		return nil, fmt.Errorf("rls: error decoding lookup params: %w", err)
	}

	return r.Lookup(ctx, in.LFN)
}

func (r *RLS) rpcMultiLookup(ctx context.Context, params json.RawMessage) (any, error) {
	var in struct {
		LFNs []string `json:"lfns"`
	}

	if err := json.Unmarshal(params, &in); err != nil {
		return nil, fmt.Errorf("rls: error decoding multilookup params: %w", err)
	}

	return r.MultiLookup(ctx, in.LFNs)
}

func (r *RLS) rpcReady(ctx context.Context, _ json.RawMessage) (any, error) {
	return r.Ready(ctx)
}

func (r *RLS) rpcClear(ctx context.Context, _ json.RawMessage) (any, error) {
	return nil, r.Clear(ctx)
}
