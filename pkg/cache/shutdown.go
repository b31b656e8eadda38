package cache

// Close signals every download worker to stop and closes the backing
// store. It is safe to call more than once.
func (c *Cache) Close() error {
	c.shutdownOnce.Do(func() {
		close(c.shutdownCh)
	})

	return c.store.Close()
}
