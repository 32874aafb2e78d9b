package preview

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheEntries is the number of previews kept by NewCache when given
// a non-positive size.
const DefaultCacheEntries = 1024

// CacheStats tracks basic cache counters.
type CacheStats struct {
	Hits   int64
	Misses int64
}

// Cache keeps rendered data URIs keyed by the digest of the texture bytes
// they were rendered from. Entries are content addressed and never go stale.
type Cache struct {
	entries *lru.Cache[digest.Digest, string]
	flight  singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache creates a cache holding up to maxEntries previews.
func NewCache(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}
	c := &Cache{}
	c.entries, _ = lru.New[digest.Digest, string](maxEntries)
	return c
}

// GetOrRender returns the cached preview for data, calling render on a miss.
// Concurrent misses for the same bytes share one render.
func (c *Cache) GetOrRender(data []byte, render func([]byte) (string, error)) (string, error) {
	key := digest.FromBytes(data)
	if uri, ok := c.entries.Get(key); ok {
		c.hits.Add(1)
		return uri, nil
	}
	c.misses.Add(1)

	v, err, _ := c.flight.Do(key.String(), func() (any, error) {
		if uri, ok := c.entries.Get(key); ok {
			return uri, nil
		}
		uri, err := render(data)
		if err != nil {
			return "", err
		}
		c.entries.Add(key, uri)
		return uri, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Len returns the number of cached previews.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Stats returns a snapshot of the hit and miss counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}
