package fetch_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalbasit/mule/pkg/fetch"
)

func TestFetch_HTTP(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("remote payload"))
	}))
	defer srv.Close()

	var buf bytes.Buffer

	err := fetch.Fetch(context.Background(), srv.URL, &buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "remote payload", buf.String())
}

func TestFetch_HTTPNotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	}))
	defer srv.Close()

	var buf bytes.Buffer

	err := fetch.Fetch(context.Background(), srv.URL, &buf, 0)
	require.ErrorIs(t, err, fetch.ErrNotFound)
}

func TestFetch_File(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "local.dat")
	require.NoError(t, os.WriteFile(path, []byte("local payload"), 0o644))

	var buf bytes.Buffer

	err := fetch.Fetch(context.Background(), "file://"+path, &buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "local payload", buf.String())
}

func TestFetch_UnsupportedScheme(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	err := fetch.Fetch(context.Background(), "gopher://example.com/x", &buf, 0)
	require.ErrorIs(t, err, fetch.ErrUnsupportedScheme)
}

func TestLooksLikeURL(t *testing.T) {
	t.Parallel()

	assert.True(t, fetch.LooksLikeURL("http://origin/foo"))
	assert.True(t, fetch.LooksLikeURL("ftp://host/path"))
	assert.False(t, fetch.LooksLikeURL("data/x"))
}
