package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is a typed in-memory TTL cache. go-cache does its own locking, so a
// Cache is safe for concurrent use.
type Cache[K comparable, V any] struct {
	cache       *gocache.Cache
	keyToString func(K) string
}

type CacheConfig struct {
	TTL time.Duration
}

func NewCache[K comparable, V any](config CacheConfig, keyToString func(K) string) *Cache[K, V] {
	if config.TTL == 0 {
		config.TTL = 1 * time.Hour
	}

	return &Cache[K, V]{
		cache:       gocache.New(config.TTL, config.TTL/2),
		keyToString: keyToString,
	}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	value, found := c.cache.Get(c.keyToString(key))
	if !found {
		var zero V
		return zero, false
	}

	if typedValue, ok := value.(V); ok {
		return typedValue, true
	}

	var zero V
	return zero, false
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.cache.Set(c.keyToString(key), value, gocache.DefaultExpiration)
}

func (c *Cache[K, V]) InvalidateKey(key K) {
	c.cache.Delete(c.keyToString(key))
}

func (c *Cache[K, V]) Len() int {
	return c.cache.ItemCount()
}

func (c *Cache[K, V]) Close() error {
	c.cache.Flush()
	return nil
}
