package cache

import (
	"crypto/sha1" //nolint:gosec // content addressing, not a security boundary
	"encoding/hex"
	"fmt"
)

// uuidFor derives the in-cache content identifier for lfn: SHA1(lfn) in hex.
// It is stable across nodes so that two caches holding the same LFN agree on
// the filename suffix of their self-produced PFN.
func uuidFor(lfn string) string {
	sum := sha1.Sum([]byte(lfn)) //nolint:gosec

	return hex.EncodeToString(sum[:])
}

// selfPFN returns this cache's canonical PFN for lfn, the URL a peer would
// use to fetch this node's copy over the HTTP file endpoint.
func (c *Cache) selfPFN(lfn string) string {
	return fmt.Sprintf("http://%s/%s", c.hostname, uuidFor(lfn))
}
