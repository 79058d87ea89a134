// Package disk provides a disk-backed implementation of cache.Cache.
package disk

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/meigma/wad/cache"
)

const (
	defaultShardPrefixLen = 2
	defaultDirPerm        = 0o700
	tempPrefix            = ".tmp-"
)

// Cache implements cache.Cache using the local filesystem.
// Files are stored in a directory hierarchy sharded by checksum prefix.
// The cache is safe for concurrent use and may be shared by processes.
type Cache struct {
	dir            string       // root directory for cached files
	shardPrefixLen int          // number of hex chars for subdirectory sharding
	dirPerm        os.FileMode  // permissions for created directories
	maxBytes       int64        // maximum cache size (0 = unlimited)
	bytes          atomic.Int64 // current total size of cached files
	pruneMu        sync.Mutex   // serializes prune operations
}

var _ cache.Cache = (*Cache)(nil)

// Option configures a disk cache.
type Option func(*Cache)

// WithShardPrefixLen sets the number of hex characters used for sharding.
// Use 0 to disable sharding. Defaults to 2.
func WithShardPrefixLen(n int) Option {
	return func(c *Cache) {
		c.shardPrefixLen = n
	}
}

// WithDirPerm sets the directory permissions used for cache directories.
func WithDirPerm(mode os.FileMode) Option {
	return func(c *Cache) {
		c.dirPerm = mode
	}
}

// WithMaxBytes sets the maximum cache size in bytes.
// Values < 0 are invalid. Use 0 to disable the limit.
func WithMaxBytes(n int64) Option {
	return func(c *Cache) {
		c.maxBytes = n
	}
}

// New creates a disk-backed cache rooted at dir.
func New(dir string, opts ...Option) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("cache dir is empty")
	}
	c := &Cache{
		dir:            dir,
		shardPrefixLen: defaultShardPrefixLen,
		dirPerm:        defaultDirPerm,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.shardPrefixLen < 0 || c.shardPrefixLen > 16 {
		return nil, errors.New("shard prefix length must be between 0 and 16")
	}
	if c.maxBytes < 0 {
		return nil, errors.New("max bytes must be >= 0")
	}
	if err := os.MkdirAll(dir, c.dirPerm); err != nil {
		return nil, err
	}
	size, err := dirSize(dir)
	if err != nil {
		return nil, err
	}
	c.bytes.Store(size)
	return c, nil
}

// Dir returns the cache root directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Get returns cached content for key.
// Files whose length does not match the key are treated as misses.
func (c *Cache) Get(key cache.Key) ([]byte, bool) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	if uint64(len(data)) != uint64(key.Size) {
		return nil, false
	}
	return data, true
}

// Put stores content under key.
// Content is written to a temp file and renamed into place, so readers
// never observe a partial entry.
func (c *Cache) Put(key cache.Key, content []byte) error {
	path := c.path(key)
	if _, statErr := os.Stat(path); statErr == nil {
		return nil
	}

	written := int64(len(content))
	if ok, err := c.ensureCapacity(written); err != nil {
		return err
	} else if !ok {
		return nil
	}

	dir := filepath.Dir(path)
	if mkdirErr := os.MkdirAll(dir, c.dirPerm); mkdirErr != nil {
		return mkdirErr
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		if _, statErr := os.Stat(path); statErr == nil {
			return nil
		}
		return err
	}
	c.bytes.Add(written)
	return nil
}

// Delete removes cached content for key.
func (c *Cache) Delete(key cache.Key) error {
	path := c.path(key)
	info, statErr := os.Stat(path)
	if statErr != nil {
		if errors.Is(statErr, os.ErrNotExist) {
			return nil
		}
		return statErr
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	c.bytes.Add(-info.Size())
	return nil
}

// MaxBytes returns the configured cache size limit (0 = unlimited).
func (c *Cache) MaxBytes() int64 {
	return c.maxBytes
}

// SizeBytes returns the current cache size in bytes.
func (c *Cache) SizeBytes() int64 {
	return c.bytes.Load()
}

// Prune removes the oldest cached entries until the cache is at or below
// targetBytes.
func (c *Cache) Prune(targetBytes int64) (int64, error) {
	if targetBytes < 0 {
		targetBytes = 0
	}
	c.pruneMu.Lock()
	defer c.pruneMu.Unlock()

	freed, remaining, err := pruneDir(c.dir, targetBytes)
	if err != nil {
		return 0, err
	}
	c.bytes.Store(remaining)
	return freed, nil
}

func (c *Cache) path(key cache.Key) string {
	name := key.String()
	if c.shardPrefixLen <= 0 {
		return filepath.Join(c.dir, name)
	}
	return filepath.Join(c.dir, name[:c.shardPrefixLen], name)
}

func (c *Cache) ensureCapacity(need int64) (bool, error) {
	if c.maxBytes <= 0 {
		return true, nil
	}
	if need > c.maxBytes {
		return false, nil
	}
	if c.SizeBytes()+need <= c.maxBytes {
		return true, nil
	}
	if _, err := c.Prune(c.maxBytes - need); err != nil {
		return false, err
	}
	return c.SizeBytes()+need <= c.maxBytes, nil
}

func isTemp(name string) bool {
	return strings.HasPrefix(name, tempPrefix)
}
