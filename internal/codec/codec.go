// Package codec adapts the container's compression types to their
// implementations.
//
// Declared sizes are treated as allocation hints only. Decompress never
// reads more than one byte past the expected length, so an overrun is
// observable without letting a hostile entry allocate without bound.
package codec

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/meigma/wad/internal/sizing"
	"github.com/meigma/wad/internal/wadtype"
)

const (
	// DefaultMaxDecoderMemory is the default zstd decoder memory limit (256MB).
	DefaultMaxDecoderMemory = 256 << 20

	// DefaultZstdLevel matches zstd's default speed/ratio tradeoff.
	DefaultZstdLevel = 3
)

// Codec compresses and decompresses entry payloads.
// A Codec is safe for concurrent use.
type Codec struct {
	decoders  *decoderPool
	zstdLevel int
	gzipLevel int

	encOnce sync.Once
	enc     *zstd.Encoder
	encErr  error

	gzipWriters sync.Pool

	maxDecoderMemory   uint64
	decoderConcurrency int
	decoderLowmem      bool
}

// Option configures a Codec.
type Option func(*Codec)

// WithMaxDecoderMemory sets the maximum zstd decoder memory.
// Set to 0 to disable the limit.
func WithMaxDecoderMemory(limit uint64) Option {
	return func(c *Codec) {
		c.maxDecoderMemory = limit
	}
}

// WithDecoderConcurrency sets the zstd decoder concurrency (default: 1).
// Values < 0 are treated as 0 (use GOMAXPROCS).
func WithDecoderConcurrency(n int) Option {
	return func(c *Codec) {
		c.decoderConcurrency = n
	}
}

// WithDecoderLowmem sets whether zstd decoders run in low-memory mode.
func WithDecoderLowmem(enabled bool) Option {
	return func(c *Codec) {
		c.decoderLowmem = enabled
	}
}

// WithZstdLevel sets the zstd compression level using the zstd CLI scale (1-22).
func WithZstdLevel(level int) Option {
	return func(c *Codec) {
		c.zstdLevel = level
	}
}

// WithGZipLevel sets the gzip compression level (-1 to 9, or gzip.HuffmanOnly).
func WithGZipLevel(level int) Option {
	return func(c *Codec) {
		c.gzipLevel = level
	}
}

// New creates a Codec.
func New(opts ...Option) *Codec {
	c := &Codec{
		zstdLevel:          DefaultZstdLevel,
		gzipLevel:          gzip.DefaultCompression,
		maxDecoderMemory:   DefaultMaxDecoderMemory,
		decoderConcurrency: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.decoders = newDecoderPool(c.maxDecoderMemory, c.decoderConcurrency, c.decoderLowmem)
	return c
}

// Decompress decodes input stored with the given compression type.
//
// CompressionNone returns input itself without copying. For compressed
// types the returned slice holds at most expectedLen+1 bytes; comparing
// its length against expectedLen is the caller's job. When the stream is
// malformed, the error wraps wadtype.ErrCorrupt and the bytes decoded
// before the failure are still returned.
func (c *Codec) Decompress(kind wadtype.Compression, input []byte, expectedLen int) ([]byte, error) {
	if expectedLen < 0 {
		return nil, wadtype.ErrSizeOverflow
	}
	limit := int64(expectedLen) + 1

	switch kind {
	case wadtype.CompressionNone:
		return input, nil
	case wadtype.CompressionZstd:
		dec, release, err := c.decoders.zstdDecoder(bytes.NewReader(input))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", wadtype.ErrCorrupt, err)
		}
		defer release()
		out, err := sizing.ReadUpTo(dec, limit, expectedLen)
		if err != nil {
			return out, fmt.Errorf("%w: zstd: %v", wadtype.ErrCorrupt, err)
		}
		return out, nil
	case wadtype.CompressionGZip:
		zr, release, err := c.decoders.gzipReader(bytes.NewReader(input))
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %v", wadtype.ErrCorrupt, err)
		}
		defer release()
		out, err := sizing.ReadUpTo(zr, limit, expectedLen)
		if err != nil {
			return out, fmt.Errorf("%w: gzip: %v", wadtype.ErrCorrupt, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s", wadtype.ErrUnknownCompression, kind)
	}
}

// Compress encodes input with the given compression type.
// CompressionNone returns input itself.
func (c *Codec) Compress(kind wadtype.Compression, input []byte) ([]byte, error) {
	switch kind {
	case wadtype.CompressionNone:
		return input, nil
	case wadtype.CompressionZstd:
		enc, err := c.encoder()
		if err != nil {
			return nil, err
		}
		return enc.EncodeAll(input, make([]byte, 0, len(input)/2+64)), nil
	case wadtype.CompressionGZip:
		return c.gzip(input)
	default:
		return nil, fmt.Errorf("%w: cannot compress as %s", wadtype.ErrUnknownCompression, kind)
	}
}

// encoder lazily creates the shared zstd encoder. EncodeAll is safe for
// concurrent use, so one encoder serves every writer goroutine.
func (c *Codec) encoder() (*zstd.Encoder, error) {
	c.encOnce.Do(func() {
		c.enc, c.encErr = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(c.zstdLevel)),
			zstd.WithEncoderCRC(true),
		)
		if c.encErr != nil {
			c.encErr = fmt.Errorf("create zstd encoder: %w", c.encErr)
		}
	})
	return c.enc, c.encErr
}

func (c *Codec) gzip(input []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(input)/2 + 64)

	zw, ok := c.gzipWriters.Get().(*gzip.Writer)
	if ok {
		zw.Reset(&buf)
	} else {
		var err error
		zw, err = gzip.NewWriterLevel(&buf, c.gzipLevel)
		if err != nil {
			return nil, fmt.Errorf("create gzip writer: %w", err)
		}
	}
	defer c.gzipWriters.Put(zw)

	if _, err := zw.Write(input); err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	return buf.Bytes(), nil
}
