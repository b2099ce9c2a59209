package github

import "sync"

// Cache holds the validators learned from the remote, keyed by Resource.Key.
// The ETag drives conditional pulls; the SHA is the revision a push must name.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	etag string
	sha  string
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// ETag returns the cached validator for key.
func (c *Cache) ETag(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[key]
	return e.etag, e.etag != ""
}

// SHA returns the cached content revision for key.
func (c *Cache) SHA(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[key]
	return e.sha, e.sha != ""
}

// SetETag stores the validator for key.
func (c *Cache) SetETag(key, etag string) {
	c.update(key, func(e *cacheEntry) { e.etag = etag })
}

// SetSHA stores the content revision for key.
func (c *Cache) SetSHA(key, sha string) {
	c.update(key, func(e *cacheEntry) { e.sha = sha })
}

// ClearETag forces the next pull of key to fetch the body.
func (c *Cache) ClearETag(key string) {
	c.update(key, func(e *cacheEntry) { e.etag = "" })
}

// ClearSHA forces the next push of key to look the revision up again.
func (c *Cache) ClearSHA(key string) {
	c.update(key, func(e *cacheEntry) { e.sha = "" })
}

// Invalidate drops everything known about key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *Cache) update(key string, fn func(*cacheEntry)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[key]
	fn(&e)
	if e == (cacheEntry{}) {
		delete(c.entries, key)
		return
	}
	c.entries[key] = e
}
