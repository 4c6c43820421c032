package memory

// StoredLen counts entries still held in the map, expired or not.
func StoredLen(c *Cache) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}
