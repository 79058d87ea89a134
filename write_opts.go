package wad

import (
	"log/slog"
	"path"
	"strings"
)

// DefaultMinCompressSize is the payload size below which DefaultSkipCompression
// stores data uncompressed.
const DefaultMinCompressSize = 64

// SkipCompressionFunc returns true when an entry should be stored uncompressed.
// It is called once per entry and should be inexpensive. name is the entry
// path, or empty for entries written by hash only.
type SkipCompressionFunc func(name string, size int64) bool

// DefaultSkipCompression returns a SkipCompressionFunc that skips small
// payloads and known already-compressed extensions.
func DefaultSkipCompression(minSize int64) SkipCompressionFunc {
	return func(name string, size int64) bool {
		if minSize > 0 && size < minSize {
			return true
		}
		ext := strings.ToLower(path.Ext(strings.ReplaceAll(name, `\`, "/")))
		_, ok := defaultSkipCompressionExts[ext]
		return ok
	}
}

// shouldSkip checks if any predicate returns true for the given entry.
func shouldSkip(name string, size int64, predicates []SkipCompressionFunc) bool {
	for _, fn := range predicates {
		if fn == nil {
			continue
		}
		if fn(name, size) {
			return true
		}
	}
	return false
}

var defaultSkipCompressionExts = map[string]struct{}{
	".7z":    {},
	".aac":   {},
	".avif":  {},
	".bnk":   {},
	".br":    {},
	".bz2":   {},
	".flac":  {},
	".gif":   {},
	".gz":    {},
	".jpeg":  {},
	".jpg":   {},
	".mp3":   {},
	".mp4":   {},
	".ogg":   {},
	".opus":  {},
	".png":   {},
	".rar":   {},
	".webm":  {},
	".webp":  {},
	".woff2": {},
	".wpk":   {},
	".xz":    {},
	".zip":   {},
	".zst":   {},
}

// writeConfig holds configuration for container writes.
type writeConfig struct {
	compression     Compression
	level           int
	levelSet        bool
	deduplicate     bool
	workers         int
	skipCompression []SkipCompressionFunc
	skipSet         bool
	progress        ProgressFunc
	logger          *slog.Logger
}

func newWriteConfig(opts []WriteOption) writeConfig {
	cfg := writeConfig{compression: CompressionZstd}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.skipSet {
		cfg.skipCompression = []SkipCompressionFunc{DefaultSkipCompression(DefaultMinCompressSize)}
	}
	return cfg
}

// WriteOption configures Write, WriteFile and Repack.
type WriteOption func(*writeConfig)

// WithDefaultCompression sets the compression used for entries that do
// not request one (default CompressionZstd). Use CompressionNone to store
// data uncompressed.
func WithDefaultCompression(c Compression) WriteOption {
	return func(cfg *writeConfig) {
		cfg.compression = c
	}
}

// WithCompressionLevel sets the compression level on the zstd CLI scale
// (1-22). GZip entries use the same level capped at 9.
func WithCompressionLevel(level int) WriteOption {
	return func(cfg *writeConfig) {
		cfg.level = level
		cfg.levelSet = true
	}
}

// WithDeduplicate stores entries with identical content once. Every later
// copy, in hash order, becomes a redirect to the first.
func WithDeduplicate(enabled bool) WriteOption {
	return func(cfg *writeConfig) {
		cfg.deduplicate = enabled
	}
}

// WithWorkers sets the number of entries compressed in parallel.
// Values < 0 force serial processing. Zero uses automatic heuristics.
// Values > 0 force a specific worker count.
func WithWorkers(n int) WriteOption {
	return func(cfg *writeConfig) {
		cfg.workers = n
	}
}

// WithSkipCompression adds predicates that decide to store an entry
// uncompressed. If any predicate returns true, compression is skipped.
// Calling this option replaces DefaultSkipCompression; call it with no
// predicates to compress everything.
func WithSkipCompression(fns ...SkipCompressionFunc) WriteOption {
	return func(cfg *writeConfig) {
		cfg.skipCompression = append(cfg.skipCompression, fns...)
		cfg.skipSet = true
	}
}

// WithProgress sets a callback to receive progress updates.
// The callback is invoked from the writing goroutine only.
func WithProgress(fn ProgressFunc) WriteOption {
	return func(cfg *writeConfig) {
		cfg.progress = fn
	}
}

// WithWriteLogger sets the logger for write diagnostics.
func WithWriteLogger(logger *slog.Logger) WriteOption {
	return func(cfg *writeConfig) {
		cfg.logger = logger
	}
}
