package cache

import "net/http"

// OpenContent opens the stored object for uuid for HTTP serving, satisfying
// pkg/server's FileServer interface.
func (c *Cache) OpenContent(uuid string) (http.File, error) {
	return c.content.Open(uuid)
}
