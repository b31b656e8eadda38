package contentstore_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalbasit/mule/pkg/contentstore"
)

func TestStore_PutReaderAndOpen(t *testing.T) {
	t.Parallel()

	s, err := contentstore.New(t.TempDir())
	require.NoError(t, err)

	uuid := "abcd1234"

	n, err := s.PutReader(context.Background(), uuid, strings.NewReader("hello world"))
	require.NoError(t, err)
	assert.Equal(t, int64(11), n)

	assert.True(t, s.Has(uuid))

	f, err := s.Open(uuid)
	require.NoError(t, err)

	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestStore_PathFanOut(t *testing.T) {
	t.Parallel()

	s, err := contentstore.New(t.TempDir())
	require.NoError(t, err)

	path := s.Path("abcd1234")
	assert.True(t, strings.HasSuffix(path, filepath.Join("ab", "cd", "abcd1234")))
}

func TestStore_MaterializeSymlinkAndCopy(t *testing.T) {
	t.Parallel()

	s, err := contentstore.New(t.TempDir())
	require.NoError(t, err)

	uuid := "deadbeef"
	_, err = s.PutReader(context.Background(), uuid, strings.NewReader("payload"))
	require.NoError(t, err)

	dir := t.TempDir()

	symlinkDest := filepath.Join(dir, "out-symlink")
	require.NoError(t, s.Materialize(uuid, symlinkDest, true))

	data, err := os.ReadFile(symlinkDest)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	copyDest := filepath.Join(dir, "out-copy")
	require.NoError(t, s.Materialize(uuid, copyDest, false))

	data, err = os.ReadFile(copyDest)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	err = s.Materialize(uuid, copyDest, false)
	require.ErrorIs(t, err, contentstore.ErrDestinationExists)
}

func TestStore_PutFileRename(t *testing.T) {
	t.Parallel()

	s, err := contentstore.New(t.TempDir())
	require.NoError(t, err)

	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "source.dat")
	require.NoError(t, os.WriteFile(src, []byte("renamed"), 0o644))

	require.NoError(t, s.PutFile(context.Background(), "feedface", src, true))
	assert.True(t, s.Has("feedface"))
}
