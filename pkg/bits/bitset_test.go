package bits_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalbasit/mule/pkg/bits"
)

func TestBitSet_SetGet(t *testing.T) {
	t.Parallel()

	b := bits.NewBitSet(100)

	assert.False(t, b.Get(0))
	assert.False(t, b.Get(63))

	b.Set(0)
	b.Set(63)
	b.Set(99)

	assert.True(t, b.Get(0))
	assert.True(t, b.Get(63))
	assert.True(t, b.Get(99))
	assert.False(t, b.Get(1))
}

func TestBitSet_OutOfRangePanics(t *testing.T) {
	t.Parallel()

	b := bits.NewBitSet(8)

	assert.Panics(t, func() { b.Set(8) })
	assert.Panics(t, func() { b.Get(-1) })
}

func TestBitSet_ChunkRoundTrip(t *testing.T) {
	t.Parallel()

	b := bits.NewBitSet(4096)
	for n := 0; n < 4096; n += 7 {
		b.Set(n)
	}

	chunks := b.ToChunks()
	require.NotEmpty(t, chunks)

	got, err := bits.BitSetFromChunks(4096, chunks)
	require.NoError(t, err)

	for n := 0; n < 4096; n++ {
		assert.Equal(t, b.Get(n), got.Get(n), "bit %d mismatch", n)
	}
}

func TestBitSetFromChunks_SizeMismatch(t *testing.T) {
	t.Parallel()

	b := bits.NewBitSet(16)
	b.Set(1)

	_, err := bits.BitSetFromChunks(32, b.ToChunks())
	require.ErrorIs(t, err, bits.ErrChunkSizeMismatch)
}
