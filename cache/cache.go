// Package cache provides storage for decoded entry content.
//
// Entries are keyed by their content checksum and uncompressed size, so
// identical content is shared across paths and across archives. Keys are
// derived from a non-cryptographic checksum, which is why readers verify
// content again on every cache hit instead of trusting the key.
package cache

import (
	"fmt"

	"github.com/meigma/wad/internal/hashing"
)

// Key identifies decoded entry content.
type Key struct {
	Checksum uint64
	Size     uint32
}

// String renders the key as a stable, filesystem-safe name.
func (k Key) String() string {
	return fmt.Sprintf("%016x-%08x", k.Checksum, k.Size)
}

// Matches reports whether content is consistent with the key.
func (k Key) Matches(content []byte) bool {
	return uint64(len(content)) == uint64(k.Size) && hashing.ContentChecksum(content) == k.Checksum
}

// Cache stores decoded entry content.
//
// Implementations should handle their own size limits and eviction policies.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves content by key.
	// Returns nil, false if the content is not cached.
	// The returned slice is owned by the caller.
	Get(key Key) ([]byte, bool)

	// Put stores content under key. The cache does not retain content
	// after Put returns; implementations copy what they keep.
	Put(key Key, content []byte) error

	// Delete removes cached content for key.
	// Implementations should treat missing entries as a no-op.
	Delete(key Key) error

	// MaxBytes returns the configured cache size limit (0 = unlimited).
	MaxBytes() int64

	// SizeBytes returns the current cache size in bytes.
	SizeBytes() int64

	// Prune removes cached entries until the cache is at or below targetBytes.
	// Returns the number of bytes freed.
	Prune(targetBytes int64) (int64, error)
}
