// Package entry reads and verifies individual entry payloads.
package entry

import (
	"errors"
	"fmt"
	"io"

	"github.com/meigma/wad/internal/codec"
	"github.com/meigma/wad/internal/hashing"
	"github.com/meigma/wad/internal/sizing"
	"github.com/meigma/wad/internal/wadtype"
)

const (
	// DefaultMaxEntrySize is the default maximum entry size (256MB).
	DefaultMaxEntrySize = 256 << 20

	// DefaultMaxRedirectDepth bounds how many redirects a read follows.
	DefaultMaxRedirectDepth = 8
)

// Source provides random access to container bytes.
type Source interface {
	io.ReaderAt
	Size() int64
}

// Lookup resolves a path hash to its entry.
type Lookup interface {
	Lookup(hash uint64) (*wadtype.Entry, bool)
}

// Reader reads and verifies entry payloads from a Source.
// A Reader holds no cursor and is safe for concurrent use when the
// Source is.
type Reader struct {
	source           Source
	lookup           Lookup
	codec            *codec.Codec
	maxEntrySize     uint64
	maxRedirectDepth int
}

// Option configures a Reader.
type Option func(*Reader)

// WithMaxEntrySize sets the maximum entry size limit, applied to both the
// stored and the declared uncompressed size. Set to 0 to disable the limit.
func WithMaxEntrySize(limit uint64) Option {
	return func(r *Reader) {
		r.maxEntrySize = limit
	}
}

// WithMaxRedirectDepth sets how many redirects a read may follow.
// Values < 1 make every redirect fail with ErrRedirectCycle.
func WithMaxRedirectDepth(n int) Option {
	return func(r *Reader) {
		r.maxRedirectDepth = n
	}
}

// WithCodec sets the codec used for decompression.
func WithCodec(c *codec.Codec) Option {
	return func(r *Reader) {
		r.codec = c
	}
}

// NewReader creates a Reader over source, resolving redirects through lookup.
func NewReader(source Source, lookup Lookup, opts ...Option) *Reader {
	r := &Reader{
		source:           source,
		lookup:           lookup,
		maxEntrySize:     DefaultMaxEntrySize,
		maxRedirectDepth: DefaultMaxRedirectDepth,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.codec == nil {
		r.codec = codec.New()
	}
	return r
}

// Source returns the underlying Source.
func (r *Reader) Source() Source {
	return r.source
}

// Read follows e to its final target and returns the verified content.
func (r *Reader) Read(e *wadtype.Entry) (wadtype.Content, error) {
	target, err := r.Follow(e)
	if err != nil {
		return wadtype.Content{}, err
	}
	return r.Decode(target)
}

// Follow resolves a redirect chain starting at e and returns the first
// non-redirect entry. A plain entry is returned unchanged.
func (r *Reader) Follow(e *wadtype.Entry) (*wadtype.Entry, error) {
	cur := e
	var seen map[uint64]struct{}
	for hops := 0; cur.IsRedirect(); hops++ {
		if hops >= r.maxRedirectDepth {
			return nil, readError(e, cur, wadtype.ErrRedirectCycle, nil)
		}
		target, err := r.redirectTarget(cur)
		if err != nil {
			return nil, readError(e, cur, err, nil)
		}
		if seen == nil {
			seen = map[uint64]struct{}{cur.PathHash: {}}
		}
		if _, ok := seen[target]; ok {
			return nil, readError(e, cur, wadtype.ErrRedirectCycle, nil)
		}
		seen[target] = struct{}{}

		next, ok := r.lookup.Lookup(target)
		if !ok {
			return nil, readError(e, cur, wadtype.ErrRedirectTarget, fmt.Errorf("target %s", hashing.Format(target)))
		}
		cur = next
	}
	return cur, nil
}

// RedirectTarget returns the hash a redirect entry points at.
func (r *Reader) RedirectTarget(e *wadtype.Entry) (uint64, error) {
	if !e.IsRedirect() {
		return 0, fmt.Errorf("entry %s is not a redirect", hashing.Format(e.PathHash))
	}
	target, err := r.redirectTarget(e)
	if err != nil {
		return 0, readError(e, e, err, nil)
	}
	return target, nil
}

func (r *Reader) redirectTarget(e *wadtype.Entry) (uint64, error) {
	raw, err := r.readStored(e)
	if err != nil {
		return 0, err
	}
	target, ok := hashing.DecodeRedirect(raw)
	if !ok {
		return 0, fmt.Errorf("%w: redirect payload is %d bytes", wadtype.ErrSizeMismatch, len(raw))
	}
	if hashing.ContentChecksum(raw) != e.Checksum {
		return 0, wadtype.ErrChecksumMismatch
	}
	return target, nil
}

// Decode reads, decompresses, and verifies a single non-redirect entry.
//
// On a verification failure the returned Content holds the recovered
// bytes with Corrupt set, alongside a *wadtype.ReadError.
func (r *Reader) Decode(e *wadtype.Entry) (wadtype.Content, error) {
	if e.IsRedirect() {
		return wadtype.Content{}, readError(e, e, fmt.Errorf("%w: unresolved redirect", wadtype.ErrRedirectTarget), nil)
	}
	if !e.Compression.Valid() {
		return wadtype.Content{}, readError(e, e, wadtype.ErrUnknownCompression, fmt.Errorf("type %d", uint8(e.Compression)))
	}
	if r.maxEntrySize > 0 && uint64(e.UncompressedSize) > r.maxEntrySize {
		return wadtype.Content{}, readError(e, e, wadtype.ErrSizeOverflow, fmt.Errorf("declared size %d exceeds limit %d", e.UncompressedSize, r.maxEntrySize))
	}

	raw, err := r.readStored(e)
	if err != nil {
		return wadtype.Content{}, readError(e, e, err, nil)
	}

	expected, err := sizing.ToInt(uint64(e.UncompressedSize), wadtype.ErrSizeOverflow)
	if err != nil {
		return wadtype.Content{}, readError(e, e, err, nil)
	}
	data, err := r.codec.Decompress(e.Compression, raw, expected)
	if err != nil {
		if errors.Is(err, wadtype.ErrCorrupt) {
			return wadtype.Content{Data: data, Corrupt: true}, readError(e, e, wadtype.ErrChecksumMismatch, err)
		}
		return wadtype.Content{}, readError(e, e, err, nil)
	}

	if len(data) != expected {
		return wadtype.Content{Data: data, Corrupt: true}, readError(e, e, wadtype.ErrSizeMismatch,
			fmt.Errorf("got %d bytes, want %d", len(data), expected))
	}
	if hashing.ContentChecksum(data) != e.Checksum {
		return wadtype.Content{Data: data, Corrupt: true}, readError(e, e, wadtype.ErrChecksumMismatch, nil)
	}
	return wadtype.Content{Data: data}, nil
}

// Stored returns the payload bytes exactly as stored, without
// decompression or verification. Redirects are not followed.
func (r *Reader) Stored(e *wadtype.Entry) ([]byte, error) {
	raw, err := r.readStored(e)
	if err != nil {
		return nil, readError(e, e, err, nil)
	}
	return raw, nil
}

// readStored bounds-checks and reads an entry's stored payload.
func (r *Reader) readStored(e *wadtype.Entry) ([]byte, error) {
	if r.maxEntrySize > 0 && uint64(e.CompressedSize) > r.maxEntrySize {
		return nil, fmt.Errorf("%w: stored size %d exceeds limit %d", wadtype.ErrSizeOverflow, e.CompressedSize, r.maxEntrySize)
	}
	if !sizing.InBounds(e.DataOffset, uint64(e.CompressedSize), r.source.Size()) {
		return nil, fmt.Errorf("%w: payload [%d, +%d) exceeds source size %d",
			wadtype.ErrTruncated, e.DataOffset, e.CompressedSize, r.source.Size())
	}
	off, err := sizing.ToInt64(e.DataOffset, wadtype.ErrSizeOverflow)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, e.CompressedSize)
	n, err := r.source.ReadAt(buf, off)
	if n == len(buf) {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("%w: short read (%d of %d bytes)", wadtype.ErrTruncated, n, len(buf))
	}
	return nil, err
}

// readError builds a ReadError for a failure while reading requested,
// with at identifying the entry whose payload was being processed.
func readError(requested, at *wadtype.Entry, err, cause error) *wadtype.ReadError {
	return &wadtype.ReadError{
		PathHash: requested.PathHash,
		Offset:   at.DataOffset,
		Err:      err,
		Cause:    cause,
	}
}
