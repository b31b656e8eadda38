// Package config centralizes the environment-driven defaults shared by the
// mule daemons and CLI: block size, cache directory, RLS endpoint, and the
// symlink/rename settings. Values are read directly from the MULE_*
// environment variables; cmd/serve.go combines them with its CLI flags.
package config

import (
	"os"
	"strconv"

	"github.com/kalbasit/mule/pkg/fetch"
)

// Defaults mirrors the MULE_* environment variables.
type Defaults struct {
	// BlockSize is the stream buffer used by fetch, MULE_BLOCK_SIZE.
	BlockSize int

	// CacheDir is the content store root, MULE_CACHE_DIR.
	CacheDir string

	// RLSAddr is the RLS service's base URL, MULE_RLS.
	RLSAddr string

	// Symlink is the symlink setting handed to cache.WithDefaultSymlink,
	// MULE_SYMLINK.
	Symlink bool

	// Rename is the rename setting handed to cache.WithDefaultRename,
	// MULE_RENAME.
	Rename bool
}

// FromEnvironment reads MULE_BLOCK_SIZE, MULE_CACHE_DIR, MULE_RLS,
// MULE_SYMLINK, and MULE_RENAME, applying the documented defaults for any
// that are unset or unparsable.
func FromEnvironment() Defaults {
	return Defaults{
		BlockSize: envInt("MULE_BLOCK_SIZE", fetch.DefaultBlockSize),
		CacheDir:  envString("MULE_CACHE_DIR", "/tmp/mule"),
		RLSAddr:   envString("MULE_RLS", ""),
		Symlink:   envBool("MULE_SYMLINK", true),
		Rename:    envBool("MULE_RENAME", false),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}

	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}

	return b
}
