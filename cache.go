package filter

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/nlstn/go-filter/internal/observability"
)

// DefaultCacheSize is the entry capacity of a Cache built with a
// non-positive max.
const DefaultCacheSize = 256

// Cache is an optional, bounded cache of compiled expressions keyed by
// target type and source text. Deserialize itself never consults any
// cache; applications that compile the same filter text repeatedly opt
// in by constructing a Cache and going through DeserializeCached.
//
// Eviction strategy: when the cache reaches its capacity the entire map
// is replaced. This is simpler than a true LRU and sufficient for the
// target use-case (a small number of distinct filter templates repeated
// many times).
//
// Thread safety: all methods are safe for concurrent use.
type Cache struct {
	mu    sync.RWMutex
	items map[uint64]any
	max   int
}

// NewCache creates a cache holding at most max compiled expressions.
// A non-positive max falls back to DefaultCacheSize.
func NewCache(max int) *Cache {
	if max <= 0 {
		max = DefaultCacheSize
	}
	return &Cache{
		items: make(map[uint64]any, max),
		max:   max,
	}
}

// Len returns the current number of cached expressions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache) get(key uint64) (any, bool) {
	c.mu.RLock()
	v, ok := c.items[key]
	c.mu.RUnlock()
	return v, ok
}

func (c *Cache) put(key uint64, v any) {
	c.mu.Lock()
	if len(c.items) >= c.max {
		// Evict everything rather than tracking individual entry ages.
		c.items = make(map[uint64]any, c.max)
	}
	c.items[key] = v
	c.mu.Unlock()
}

// cacheKey hashes the fully qualified type name and the source text.
// A NUL separator keeps (type, source) pairs unambiguous.
func cacheKey(typeName, source string) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(typeName)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(source)
	return h.Sum64()
}

// DeserializeCached retrieves the compiled expression for input from c,
// falling back to Deserialize on a miss. Failed compilations are not
// cached. A nil cache degrades to a plain Deserialize call.
//
// The cache key covers the target type and the source text only, not
// opts: a hit returns the expression as compiled by the first caller,
// whatever options that call used. Callers that mix different limits
// for the same input should use separate caches.
func DeserializeCached[T any](c *Cache, input string, opts ...Option) (*Expression[T], error) {
	if c == nil {
		return Deserialize[T](input, opts...)
	}

	key := cacheKey(targetType[T]().String(), input)
	inst := observability.Default()

	if v, ok := c.get(key); ok {
		if e, ok := v.(*Expression[T]); ok {
			inst.RecordCacheHit(context.Background(), true)
			return e, nil
		}
	}
	inst.RecordCacheHit(context.Background(), false)

	e, err := Deserialize[T](input, opts...)
	if err != nil {
		return nil, err
	}
	c.put(key, e)
	return e, nil
}
