// Package memory provides an in-process LRU implementation of cache.Cache.
package memory

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/meigma/wad/cache"
)

const (
	// DefaultMaxEntries is the default entry count limit.
	DefaultMaxEntries = 4096

	// DefaultMaxBytes is the default byte budget (64MB).
	DefaultMaxBytes = 64 << 20
)

// Cache is a least-recently-used cache bounded by entry count and bytes.
type Cache struct {
	mu         sync.Mutex // serializes Put and Prune so accounting stays exact
	lru        *lru.Cache[cache.Key, []byte]
	maxEntries int
	maxBytes   int64
	bytes      atomic.Int64
}

var _ cache.Cache = (*Cache)(nil)

// Option configures a memory cache.
type Option func(*Cache)

// WithMaxEntries sets the maximum number of cached entries.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		c.maxEntries = n
	}
}

// WithMaxBytes sets the maximum total size of cached content.
// Use 0 to disable the byte limit.
func WithMaxBytes(n int64) Option {
	return func(c *Cache) {
		c.maxBytes = n
	}
}

// New creates a memory cache.
func New(opts ...Option) (*Cache, error) {
	c := &Cache{
		maxEntries: DefaultMaxEntries,
		maxBytes:   DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxEntries <= 0 {
		return nil, errors.New("max entries must be > 0")
	}
	if c.maxBytes < 0 {
		return nil, errors.New("max bytes must be >= 0")
	}

	l, err := lru.NewWithEvict(c.maxEntries, func(_ cache.Key, v []byte) {
		c.bytes.Add(-int64(len(v)))
	})
	if err != nil {
		return nil, err
	}
	c.lru = l
	return c, nil
}

// Get returns a copy of the cached content.
func (c *Cache) Get(key cache.Key) ([]byte, bool) {
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return slices.Clone(v), true
}

// Put stores a copy of content. Content larger than the byte budget is
// silently skipped.
func (c *Cache) Put(key cache.Key, content []byte) error {
	size := int64(len(content))
	if c.maxBytes > 0 && size > c.maxBytes {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lru.Contains(key) {
		return nil
	}
	c.lru.Add(key, slices.Clone(content))
	c.bytes.Add(size)
	if c.maxBytes > 0 {
		c.pruneLocked(c.maxBytes)
	}
	return nil
}

// Delete removes content for key.
func (c *Cache) Delete(key cache.Key) error {
	c.lru.Remove(key)
	return nil
}

// MaxBytes returns the configured byte budget (0 = unlimited).
func (c *Cache) MaxBytes() int64 {
	return c.maxBytes
}

// SizeBytes returns the current size of cached content.
func (c *Cache) SizeBytes() int64 {
	return c.bytes.Load()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Prune evicts least-recently-used entries until the cache is at or
// below targetBytes.
func (c *Cache) Prune(targetBytes int64) (int64, error) {
	if targetBytes < 0 {
		targetBytes = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pruneLocked(targetBytes), nil
}

func (c *Cache) pruneLocked(targetBytes int64) int64 {
	before := c.bytes.Load()
	for c.bytes.Load() > targetBytes {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
	}
	return before - c.bytes.Load()
}
