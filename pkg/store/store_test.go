package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/kalbasit/mule/pkg/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()

	dir := t.TempDir()

	st, err := store.Open(context.Background(), filepath.Join(dir, "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = st.Close() })

	return st
}

var bucket = []byte("test")

func TestStore_UpdateAndView(t *testing.T) {
	t.Parallel()

	st := newStore(t)
	require.NoError(t, st.CreateBucketIfNotExists(bucket))

	require.NoError(t, st.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte("k"), []byte("v"))
	}))

	var got []byte

	require.NoError(t, st.View(func(tx *bolt.Tx) error {
		got = append(got, tx.Bucket(bucket).Get([]byte("k"))...)

		return nil
	}))

	assert.Equal(t, "v", string(got))
}

func TestStore_WithRetry(t *testing.T) {
	t.Parallel()

	st := newStore(t)
	require.NoError(t, st.CreateBucketIfNotExists(bucket))

	err := st.WithRetry(context.Background(), "key-a", func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte("key-a"), []byte("1"))
	})
	require.NoError(t, err)

	var got []byte

	require.NoError(t, st.View(func(tx *bolt.Tx) error {
		got = append(got, tx.Bucket(bucket).Get([]byte("key-a"))...)

		return nil
	}))

	assert.Equal(t, "1", string(got))
}
