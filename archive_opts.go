package wad

import (
	"log/slog"

	"github.com/meigma/wad/cache"
)

// Option configures an Archive.
type Option func(*Archive)

// WithLogger sets the logger for diagnostics.
// A nil logger discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = logger
	}
}

// WithMaxEntrySize limits the maximum per-entry size (stored and uncompressed).
// Set limit to 0 to disable the limit.
func WithMaxEntrySize(limit uint64) Option {
	return func(a *Archive) {
		a.maxEntrySize = limit
	}
}

// WithMaxRedirectDepth bounds how many redirects a read follows (default 8).
func WithMaxRedirectDepth(n int) Option {
	return func(a *Archive) {
		a.maxRedirectDepth = n
	}
}

// WithMaxDecoderMemory limits the maximum memory used by the zstd decoder.
// Set limit to 0 to disable the limit.
func WithMaxDecoderMemory(limit uint64) Option {
	return func(a *Archive) {
		a.maxDecoderMemory = limit
	}
}

// WithDecoderConcurrency sets the zstd decoder concurrency (default: 1).
// Values < 0 are treated as 0 (use GOMAXPROCS).
func WithDecoderConcurrency(n int) Option {
	return func(a *Archive) {
		if n < 0 {
			n = 0
		}
		a.decoderConcurrency = n
	}
}

// WithDecoderLowmem sets whether the zstd decoder should use low-memory mode (default: false).
func WithDecoderLowmem(enabled bool) Option {
	return func(a *Archive) {
		a.decoderLowmem = enabled
	}
}

// WithCache enables caching of decoded content.
//
// When enabled, content is cached after its first successful read and
// served from cache on subsequent reads of any entry with the same
// checksum and size. Concurrent reads of the same content are deduplicated.
func WithCache(c cache.Cache) Option {
	return func(a *Archive) {
		a.cache = c
	}
}

// VerifyOption configures Verify.
type VerifyOption func(*verifyConfig)

type verifyConfig struct {
	workers  int
	progress ProgressFunc
}

// VerifyWithWorkers sets the number of entries read in parallel.
// Values < 0 force serial processing. Zero uses automatic heuristics.
func VerifyWithWorkers(n int) VerifyOption {
	return func(c *verifyConfig) {
		c.workers = n
	}
}

// VerifyWithProgress sets a callback to receive progress updates.
func VerifyWithProgress(fn ProgressFunc) VerifyOption {
	return func(c *verifyConfig) {
		c.progress = fn
	}
}
