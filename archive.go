package wad

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log/slog"
	"slices"

	"golang.org/x/sync/singleflight"

	"github.com/meigma/wad/cache"
	"github.com/meigma/wad/internal/batch"
	"github.com/meigma/wad/internal/codec"
	"github.com/meigma/wad/internal/entry"
	"github.com/meigma/wad/internal/table"
	"github.com/meigma/wad/source"
	"github.com/meigma/wad/tree"
)

// Archive provides random access to the entries of a container.
//
// Opening an archive reads only the header and entry table. Entry
// payloads are read on demand with positioned reads, so an Archive is
// safe for concurrent use whenever its ByteSource is. Use source.Locked
// to adapt a source that cannot serve concurrent reads.
type Archive struct {
	header Header
	idx    *table.Index
	reader *entry.Reader
	src    ByteSource
	closer io.Closer

	maxEntrySize       uint64
	maxRedirectDepth   int
	maxDecoderMemory   uint64
	decoderConcurrency int
	decoderLowmem      bool

	cache     cache.Cache        // nil = no caching
	readGroup singleflight.Group // zero value is valid
	logger    *slog.Logger
}

// log returns the logger, falling back to a discard logger if nil.
func (a *Archive) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.logger
}

// Open decodes the header and entry table of the container in src.
//
// Errors describing an unreadable container are *FormatError values
// wrapping ErrBadMagic, ErrUnsupportedVersion or ErrTruncated. Hashes that
// appear more than once in the table are resolved last-writer-wins and
// reported by Duplicates.
func Open(src ByteSource, opts ...Option) (*Archive, error) {
	a := &Archive{
		src:                src,
		maxEntrySize:       entry.DefaultMaxEntrySize,
		maxRedirectDepth:   entry.DefaultMaxRedirectDepth,
		maxDecoderMemory:   codec.DefaultMaxDecoderMemory,
		decoderConcurrency: 1,
	}
	for _, opt := range opts {
		opt(a)
	}

	h, idx, err := table.Decode(src)
	if err != nil {
		return nil, err
	}
	a.header = h
	a.idx = idx

	c := codec.New(
		codec.WithMaxDecoderMemory(a.maxDecoderMemory),
		codec.WithDecoderConcurrency(a.decoderConcurrency),
		codec.WithDecoderLowmem(a.decoderLowmem),
	)
	a.reader = entry.NewReader(src, idx,
		entry.WithCodec(c),
		entry.WithMaxEntrySize(a.maxEntrySize),
		entry.WithMaxRedirectDepth(a.maxRedirectDepth),
	)

	for _, d := range idx.Duplicates() {
		a.log().Warn("duplicate path hash in entry table",
			"hash", FormatHash(d.PathHash),
			"replaced_offset", d.Replaced.DataOffset,
			"kept_offset", d.Kept.DataOffset)
	}
	a.log().Debug("opened archive",
		"version", h.Version.String(),
		"entries", idx.Len(),
		"size", src.Size())
	return a, nil
}

// OpenFile opens the container at path. Close releases the file.
func OpenFile(path string, opts ...Option) (*Archive, error) {
	f, err := source.Open(path)
	if err != nil {
		return nil, err
	}
	a, err := Open(f, opts...)
	if err != nil {
		f.Close()
		return nil, &fs.PathError{Op: "open", Path: path, Err: err}
	}
	a.closer = f
	return a, nil
}

// Close releases the underlying file when the archive was opened with
// OpenFile. It is a no-op otherwise.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

// Header returns the container header.
func (a *Archive) Header() Header {
	return a.header
}

// Len returns the number of distinct entries.
func (a *Archive) Len() int {
	return a.idx.Len()
}

// Size returns the size of the container in bytes.
func (a *Archive) Size() int64 {
	return a.src.Size()
}

// Source returns the ByteSource the archive reads from.
func (a *Archive) Source() ByteSource {
	return a.src
}

// TableEnd returns the offset immediately past the entry table.
func (a *Archive) TableEnd() int64 {
	return a.idx.TableEnd()
}

// Entries returns an iterator over all entries in ascending hash order.
func (a *Archive) Entries() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for e := range a.idx.All() {
			if !yield(*e) {
				return
			}
		}
	}
}

// Duplicates returns the hashes that appeared more than once in the
// entry table, with the record that was dropped and the one kept.
func (a *Archive) Duplicates() []Duplicate {
	return slices.Clone(a.idx.Duplicates())
}

// Resolve finds the entry for a virtual path. The path is normalized
// and hashed; a missing entry is reported by ok, never by an error.
func (a *Archive) Resolve(path string) (Entry, bool) {
	return a.ResolveHash(PathHash(path))
}

// ResolveHash finds the entry with the given path hash.
func (a *Archive) ResolveHash(hash uint64) (Entry, bool) {
	e, ok := a.idx.Lookup(hash)
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Tree projects the archive into a folder tree, naming entries through
// lookup. lookup may be nil, in which case every entry is filed under
// tree.UnknownFolder. The returned tree refers to the archive's index.
func (a *Archive) Tree(lookup tree.PathLookup) *tree.Folder {
	return tree.Build(a.idx.All(), lookup)
}

// ReadEntry reads, decompresses and verifies an entry, following
// redirects to their final target.
//
// Failures are *ReadError values carrying the requested hash and the
// offset being read. When the payload could be read but failed
// verification (ErrSizeMismatch or ErrChecksumMismatch), the returned
// Content holds the recovered bytes and has Corrupt set. The archive
// remains usable after any per-entry failure.
//
// When caching is enabled, verified content is served from the cache and
// concurrent reads of the same content are deduplicated.
func (a *Archive) ReadEntry(e Entry) (Content, error) {
	if a.cache == nil {
		return a.reader.Read(&e)
	}

	target, err := a.reader.Follow(&e)
	if err != nil {
		return Content{}, err
	}

	key := cache.Key{Checksum: target.Checksum, Size: target.UncompressedSize}
	if data, ok := a.cache.Get(key); ok {
		if key.Matches(data) {
			a.log().Debug("entry cache hit", "hash", FormatHash(e.PathHash))
			return Content{Data: data}, nil
		}
		a.log().Warn("dropping corrupt cache entry", "key", key.String())
		_ = a.cache.Delete(key) //nolint:errcheck // best-effort cache cleanup on mismatch
	}

	a.log().Debug("entry cache miss", "hash", FormatHash(e.PathHash))
	flight := fmt.Sprintf("%s@%d", key, target.DataOffset)
	v, err, shared := a.readGroup.Do(flight, func() (any, error) {
		content, err := a.reader.Decode(target)
		if err == nil {
			if putErr := a.cache.Put(key, content.Data); putErr != nil {
				a.log().Debug("cache put failed", "key", key.String(), "error", putErr)
			}
		}
		return content, err
	})
	content, _ := v.(Content) //nolint:errcheck // the flight always returns a Content
	if shared {
		content.Data = slices.Clone(content.Data)
	}
	return content, requestedBy(err, e.PathHash)
}

// requestedBy rewrites a ReadError produced for a redirect target so that
// it names the entry the caller asked for.
func requestedBy(err error, hash uint64) error {
	var re *ReadError
	if err == nil || !errors.As(err, &re) || re.PathHash == hash {
		return err
	}
	cp := *re
	cp.PathHash = hash
	return &cp
}

// ReadFile resolves path and reads its content.
//
// A path with no entry returns a *fs.PathError wrapping fs.ErrNotExist.
// On a verification failure the recovered bytes are returned alongside
// the error.
func (a *Archive) ReadFile(path string) ([]byte, error) {
	e, ok := a.Resolve(path)
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: path, Err: fs.ErrNotExist}
	}
	content, err := a.ReadEntry(e)
	return content.Data, err
}

// RedirectTarget returns the hash a redirect entry points at.
func (a *Archive) RedirectTarget(e Entry) (uint64, error) {
	return a.reader.RedirectTarget(&e)
}

// Stored returns an entry's payload exactly as stored, for copying it
// into another container without recompression. Redirects are not
// followed and nothing is verified.
func (a *Archive) Stored(e Entry) (*StoredPayload, error) {
	raw, err := a.reader.Stored(&e)
	if err != nil {
		return nil, err
	}
	return &StoredPayload{
		Compression:      e.Compression,
		UncompressedSize: e.UncompressedSize,
		Checksum:         e.Checksum,
		Data:             raw,
	}, nil
}

// Verify reads every entry, bypassing any cache, and checks it against
// its declared size and checksum.
//
// fn is called once per entry in ascending hash order with nil or the
// entry's *ReadError. A non-nil error from fn stops the scan and is
// returned. Entries are read in parallel batches; fn is never called
// concurrently.
func (a *Archive) Verify(ctx context.Context, fn func(Entry, error) error, opts ...VerifyOption) error {
	var cfg verifyConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	entries := a.idx.Entries()
	sizes := make([]uint64, len(entries))
	for i := range entries {
		sizes[i] = uint64(entries[i].UncompressedSize)
	}
	workers := batch.Workers(cfg.workers, len(entries), batch.TotalBytes(sizes...))

	var bytesDone uint64
	done, failed := 0, 0
	for _, span := range batch.Chunks(len(entries), workers*4) {
		chunk := entries[span[0]:span[1]]
		errs := make([]error, len(chunk))
		err := batch.Run(ctx, len(chunk), workers, func(_ context.Context, i int) error {
			_, errs[i] = a.reader.Read(&chunk[i])
			return nil
		})
		if err != nil {
			return err
		}

		for i := range chunk {
			done++
			bytesDone += uint64(chunk[i].UncompressedSize)
			if errs[i] != nil {
				failed++
				a.log().Warn("entry failed verification", "hash", FormatHash(chunk[i].PathHash), "error", errs[i])
			}
			if cfg.progress != nil {
				cfg.progress(ProgressEvent{
					Stage:        StageVerifying,
					PathHash:     chunk[i].PathHash,
					BytesDone:    bytesDone,
					EntriesDone:  done,
					EntriesTotal: len(entries),
				})
			}
			if fn != nil {
				if err := fn(chunk[i], errs[i]); err != nil {
					return err
				}
			}
		}
	}

	a.log().Debug("verified archive", "entries", done, "failed", failed)
	return nil
}
