package rls_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalbasit/mule/pkg/rls"
	"github.com/kalbasit/mule/pkg/store"
)

func newRLS(t *testing.T) *rls.RLS {
	t.Helper()

	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "rls.db"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = st.Close() })

	r, err := rls.New(st)
	require.NoError(t, err)

	return r
}

func TestRLS_AddIsIdempotent(t *testing.T) {
	t.Parallel()

	r := newRLS(t)
	ctx := context.Background()

	require.NoError(t, r.Add(ctx, "data/x", "http://a/1"))
	require.NoError(t, r.Add(ctx, "data/x", "http://a/1"))

	pfns, err := r.Lookup(ctx, "data/x")
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a/1"}, pfns)
}

func TestRLS_LookupEmptyIsNotError(t *testing.T) {
	t.Parallel()

	r := newRLS(t)

	pfns, err := r.Lookup(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, pfns)
}

func TestRLS_DeleteAbsentPairIsNoop(t *testing.T) {
	t.Parallel()

	r := newRLS(t)
	ctx := context.Background()

	require.NoError(t, r.Delete(ctx, "data/x", "http://a/1"))
}

func TestRLS_DeleteSpecificPair(t *testing.T) {
	t.Parallel()

	r := newRLS(t)
	ctx := context.Background()

	require.NoError(t, r.Add(ctx, "data/x", "http://a/1"))
	require.NoError(t, r.Add(ctx, "data/x", "http://b/1"))
	require.NoError(t, r.Delete(ctx, "data/x", "http://a/1"))

	pfns, err := r.Lookup(ctx, "data/x")
	require.NoError(t, err)
	assert.Equal(t, []string{"http://b/1"}, pfns)
}

func TestRLS_MultiLookup(t *testing.T) {
	t.Parallel()

	r := newRLS(t)
	ctx := context.Background()

	require.NoError(t, r.Add(ctx, "data/x", "http://a/1"))
	require.NoError(t, r.Add(ctx, "data/y", "http://a/2"))

	got, err := r.MultiLookup(ctx, []string{"data/x", "data/y", "data/z"})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a/1"}, got["data/x"])
	assert.Equal(t, []string{"http://a/2"}, got["data/y"])
	assert.Empty(t, got["data/z"])
}

func TestRLS_ConcurrentAddSameLFN(t *testing.T) {
	t.Parallel()

	r := newRLS(t)
	ctx := context.Background()

	var wg sync.WaitGroup

	for i := range 20 {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			_ = r.Add(ctx, "data/shared", stringPFN(i))
		}(i)
	}

	wg.Wait()

	pfns, err := r.Lookup(ctx, "data/shared")
	require.NoError(t, err)
	assert.Len(t, pfns, 20)
}

func stringPFN(i int) string {
	return "http://node-" + string(rune('a'+i)) + "/1"
}

func TestRLS_Clear(t *testing.T) {
	t.Parallel()

	r := newRLS(t)
	ctx := context.Background()

	require.NoError(t, r.Add(ctx, "data/x", "http://a/1"))
	require.NoError(t, r.Clear(ctx))

	pfns, err := r.Lookup(ctx, "data/x")
	require.NoError(t, err)
	assert.Empty(t, pfns)
}
