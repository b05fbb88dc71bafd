package crawler

import (
	"context"
	"sync"
)

// DedupCache remembers which URLs a run has already enqueued per tag, so the
// store is not asked to insert the same child over and over. It is advisory:
// the store's (url, tag) uniqueness remains the source of truth.
type DedupCache interface {
	// Seen reports whether url was marked for tag.
	Seen(ctx context.Context, tag, url string) (bool, error)

	// Mark records url for tag.
	Mark(ctx context.Context, tag, url string) error
}

// MemoryCache is an in-process DedupCache. It grows without bound for the
// lifetime of the run that owns it.
type MemoryCache struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{seen: make(map[string]struct{})}
}

// Seen implements DedupCache.
func (c *MemoryCache) Seen(_ context.Context, tag, url string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.seen[cacheKey(tag, url)]
	return ok, nil
}

// Mark implements DedupCache.
func (c *MemoryCache) Mark(_ context.Context, tag, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen[cacheKey(tag, url)] = struct{}{}
	return nil
}

// Len returns the number of remembered entries.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// cacheKey joins tag and url. Tags cannot contain a newline coming from the
// CLI, so the separator is unambiguous.
func cacheKey(tag, url string) string {
	return tag + "\n" + url
}
