// Package cache implements the per-node Cache service: request routing,
// coalesced downloads, a local content store, and the bookkeeping that
// advertises completed downloads to the Replica Location Service.
package cache

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"

	"github.com/kalbasit/mule/pkg/contentstore"
	"github.com/kalbasit/mule/pkg/fetch"
	"github.com/kalbasit/mule/pkg/store"
)

// bucketName is the bbolt bucket holding one Record per LFN.
var bucketName = []byte("cache")

// pollInterval is how often a coalesced waiter re-checks a record it did
// not itself enqueue a download for.
const pollInterval = 5 * time.Second

// Errors surfaced to RPC callers.
var (
	// ErrDestinationExists is returned by get/multiget when a destination
	// path is already occupied.
	ErrDestinationExists = contentstore.ErrDestinationExists

	// ErrNoSources is returned when RLS has no PFNs for an LFN and the LFN
	// is not itself a fetchable URL.
	ErrNoSources = errors.New("cache: no source PFNs available")

	// ErrRecordFailed is returned when get/multiget observes a failed record.
	ErrRecordFailed = errors.New("cache: record is in the failed state")

	// ErrRecordNotReady is returned by remove() when the record exists but
	// is not ready and force was not requested.
	ErrRecordNotReady = errors.New("cache: record is not ready, use force to remove anyway")

	// ErrSourceMissing is returned by put when the source path is absent.
	ErrSourceMissing = errors.New("cache: source path does not exist")

	// ErrCorrupt is returned when a record is ready but its file is missing
	// on disk.
	ErrCorrupt = errors.New("cache: record is ready but file is missing")
)

// RLSClient is the subset of the RLS surface the cache consumes, satisfied
// by both an embedded *rls.RLS and an *rls.Client talking to a remote
// daemon.
type RLSClient interface {
	Add(ctx context.Context, lfn, pfn string) error
	MultiAdd(ctx context.Context, pairs map[string][]string) error
	Delete(ctx context.Context, lfn, pfn string) error
	Lookup(ctx context.Context, lfn string) ([]string, error)
	MultiLookup(ctx context.Context, lfns []string) (map[string][]string, error)
}

// Pair is one (LFN, destination path) request.
type Pair struct {
	LFN  string
	Path string
}

// downloadRequest is one unit of work for the download worker pool.
type downloadRequest struct {
	lfn  string
	pfns []string
	done chan struct{}
	err  error
}

// Cache is the per-node file-staging cache.
type Cache struct {
	store        *store.Store
	content      *contentstore.Store
	rls          RLSClient
	hostname     string
	blockSize    int
	defaultLink  bool // set by WithDefaultSymlink; not read by get/multiget
	defaultMove  bool // set by WithDefaultRename; not read by put/multiput
	workers      int
	queue        chan *downloadRequest
	mu           sync.Mutex // guards the "read record, insert if absent" window
	stats        Statistics
	logger       zerolog.Logger
	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// Option configures optional Cache behavior at construction time.
type Option func(*Cache)

// WithBlockSize overrides the default streaming block size.
func WithBlockSize(n int) Option {
	return func(c *Cache) { c.blockSize = n }
}

// WithWorkers overrides the default download worker pool size (default:
// runtime.NumCPU()).
func WithWorkers(n int) Option {
	return func(c *Cache) { c.workers = n }
}

// WithDefaultSymlink records a default symlink setting on the Cache. Get,
// MultiGet and their RPC handlers take the symlink choice from each call
// (an absent RPC field means false), so this value is not consulted.
func WithDefaultSymlink(v bool) Option {
	return func(c *Cache) { c.defaultLink = v }
}

// WithDefaultRename records a default rename setting on the Cache. Put,
// MultiPut and their RPC handlers take the rename choice from each call (an
// absent RPC field means false), so this value is not consulted.
func WithDefaultRename(v bool) Option {
	return func(c *Cache) { c.defaultMove = v }
}

// New constructs a Cache backed by st (metadata) and content (blob store),
// advertising itself to peers as hostname (host:port, no scheme), and using
// rlsClient to resolve and register replica locations.
func New(ctx context.Context, st *store.Store, content *contentstore.Store, rlsClient RLSClient, hostname string, opts ...Option) (*Cache, error) {
	if err := st.CreateBucketIfNotExists(bucketName); err != nil {
		return nil, fmt.Errorf("cache: error creating bucket: %w", err)
	}

	c := &Cache{
		store:      st,
		content:    content,
		rls:        rlsClient,
		hostname:   hostname,
		blockSize:  fetch.DefaultBlockSize,
		workers:    runtime.NumCPU(),
		queue:      make(chan *downloadRequest, 1024),
		logger:     zerolog.Ctx(ctx).With().Str("component", "cache").Logger(),
		shutdownCh: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	for range c.workers {
		go c.downloadWorker(ctx)
	}

	return c, nil
}

// Stats returns a snapshot of the cache's counters.
func (c *Cache) Stats() Snapshot { return c.stats.Snapshot() }

// Clear drops every record from the metadata store. It does not remove
// content files or RLS entries; callers that want a full reset should pair
// it with RLSClear and a manual wipe of the content directory.
func (c *Cache) Clear(_ context.Context) error {
	return c.store.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketName); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}

		_, err := tx.CreateBucketIfNotExists(bucketName)

		return err
	})
}

// RLSAdd is a thin pass-through to the RLS client.
func (c *Cache) RLSAdd(ctx context.Context, lfn, pfn string) error {
	return c.rls.Add(ctx, lfn, pfn)
}

// RLSDelete is a thin pass-through to the RLS client.
func (c *Cache) RLSDelete(ctx context.Context, lfn, pfn string) error {
	return c.rls.Delete(ctx, lfn, pfn)
}

// RLSLookup is a thin pass-through to the RLS client.
func (c *Cache) RLSLookup(ctx context.Context, lfn string) ([]string, error) {
	return c.rls.Lookup(ctx, lfn)
}

func (c *Cache) getRecord(tx *bolt.Tx, lfn string) (Record, bool, error) {
	raw := tx.Bucket(bucketName).Get([]byte(lfn))
	if raw == nil {
		return Record{}, false, nil
	}

	r, err := decodeRecord(raw)

	return r, true, err
}

func (c *Cache) putRecord(tx *bolt.Tx, r Record) error {
	raw, err := r.encode()
	if err != nil {
		return err
	}

	return tx.Bucket(bucketName).Put([]byte(r.LFN), raw)
}

func (c *Cache) setStatus(ctx context.Context, lfn string, status Status) error {
	return c.store.WithRetry(ctx, lfn, func(tx *bolt.Tx) error {
		return c.putRecord(tx, Record{LFN: lfn, Status: status})
	})
}
