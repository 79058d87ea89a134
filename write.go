package wad

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/klauspost/compress/gzip"

	"github.com/meigma/wad/internal/batch"
	"github.com/meigma/wad/internal/codec"
	"github.com/meigma/wad/internal/entry"
	"github.com/meigma/wad/internal/hashing"
	"github.com/meigma/wad/internal/pathutil"
	"github.com/meigma/wad/internal/sizing"
	"github.com/meigma/wad/internal/table"
)

// ErrInvalidEntry is returned for a WriteEntry whose fields contradict each other.
var ErrInvalidEntry = errors.New("wad: invalid entry")

// WriteEntry describes one entry to write.
//
// An entry is exactly one of: content in Data, an alias set by Target or
// TargetHash, or a payload copied verbatim from Stored.
type WriteEntry struct {
	// Path is the virtual path. Its hash addresses the entry; the path
	// itself is not stored.
	Path string

	// PathHash addresses the entry when Path is empty.
	PathHash uint64

	// Data is the uncompressed content.
	Data []byte

	// Compression forces a compression type for Data. The zero value,
	// CompressionNone, defers to WithDefaultCompression and the skip
	// predicates.
	Compression Compression

	// Target makes the entry a redirect to the entry at this path.
	Target string

	// TargetHash makes the entry a redirect when Target is empty.
	TargetHash uint64

	// Stored copies an existing payload without recompression.
	Stored *StoredPayload
}

// StoredPayload is an entry payload exactly as it appears in a container.
type StoredPayload struct {
	Compression      Compression
	UncompressedSize uint32
	Checksum         uint64

	// Data holds the stored (possibly compressed) bytes.
	Data []byte
}

type itemKind uint8

const (
	kindData itemKind = iota
	kindRedirect
	kindStored
)

// item is an entry prepared for writing.
type item struct {
	path string
	hash uint64
	kind itemKind

	data        []byte
	compression Compression
	explicit    bool

	target uint64

	stored StoredPayload
	load   func() ([]byte, error) // lazily reads a stored payload
}

func (it *item) redirect() bool {
	return it.kind == kindRedirect || (it.kind == kindStored && it.stored.Compression == CompressionRedirect)
}

func (it *item) fail(err error) *WriteError {
	return &WriteError{Path: it.path, PathHash: it.hash, Err: err}
}

// newItem validates a WriteEntry and converts it into an item.
func newItem(e *WriteEntry) (*item, error) {
	it := &item{path: e.Path, hash: e.PathHash}
	if e.Path != "" {
		if pathutil.Normalize(e.Path) == "" {
			return nil, it.fail(fmt.Errorf("%w: empty path", ErrInvalidEntry))
		}
		it.hash = PathHash(e.Path)
	}

	isRedirect := e.Target != "" || e.TargetHash != 0
	switch {
	case isRedirect && e.Stored != nil:
		return nil, it.fail(fmt.Errorf("%w: both a redirect target and a stored payload", ErrInvalidEntry))
	case (isRedirect || e.Stored != nil) && len(e.Data) > 0:
		return nil, it.fail(fmt.Errorf("%w: data set on a redirect or stored entry", ErrInvalidEntry))
	}

	switch {
	case isRedirect:
		it.kind = kindRedirect
		it.target = e.TargetHash
		if e.Target != "" {
			it.target = PathHash(e.Target)
		}
	case e.Stored != nil:
		it.kind = kindStored
		it.stored = *e.Stored
		if !it.stored.Compression.Valid() {
			return nil, it.fail(ErrUnknownCompression)
		}
		if it.stored.Compression == CompressionRedirect {
			target, ok := hashing.DecodeRedirect(it.stored.Data)
			if !ok {
				return nil, it.fail(fmt.Errorf("%w: redirect payload is %d bytes", ErrInvalidEntry, len(it.stored.Data)))
			}
			it.target = target
		}
	default:
		it.kind = kindData
		it.data = e.Data
		if e.Compression == CompressionRedirect {
			return nil, it.fail(fmt.Errorf("%w: redirect compression without a target", ErrInvalidEntry))
		}
		if !e.Compression.Valid() {
			return nil, it.fail(ErrUnknownCompression)
		}
		it.compression = e.Compression
		it.explicit = e.Compression != CompressionNone
	}
	return it, nil
}

// Write builds a container from entries and writes it to sink.
//
// Entries are validated before any byte is written: two distinct paths
// with the same hash fail with ErrHashCollision, the same entry twice
// with ErrDuplicatePath, and a redirect whose chain leaves the set with
// ErrRedirectTarget (or ErrRedirectCycle for a loop). Errors naming an
// entry are *WriteError values.
//
// Payloads are written in hash order starting right after the entry
// table; the header and table are written last, at offset 0. Payloads
// are compressed in parallel batches and ctx is checked between entries.
func Write(ctx context.Context, entries []WriteEntry, sink io.WriterAt, opts ...WriteOption) error {
	items := make([]*item, 0, len(entries))
	for i := range entries {
		it, err := newItem(&entries[i])
		if err != nil {
			return err
		}
		items = append(items, it)
	}
	return newWriter(opts).write(ctx, items, sink)
}

// WriteFile writes a container to path atomically. The container is
// written to a temporary file in the same directory, synced, and renamed
// over path; on any error path is left untouched.
func WriteFile(ctx context.Context, path string, entries []WriteEntry, opts ...WriteOption) error {
	return writeFileAtomic(path, func(f *os.File) error {
		return Write(ctx, entries, f, opts...)
	})
}

// writer holds state for container writes.
type writer struct {
	cfg   writeConfig
	codec *codec.Codec
}

func newWriter(opts []WriteOption) *writer {
	cfg := newWriteConfig(opts)
	var codecOpts []codec.Option
	if cfg.levelSet {
		codecOpts = append(codecOpts,
			codec.WithZstdLevel(cfg.level),
			codec.WithGZipLevel(min(cfg.level, gzip.BestCompression)))
	}
	return &writer{cfg: cfg, codec: codec.New(codecOpts...)}
}

// log returns the logger, falling back to a discard logger if nil.
func (w *writer) log() *slog.Logger {
	if w.cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return w.cfg.logger
}

// reportProgress sends a progress event if a callback is configured.
func (w *writer) reportProgress(stage ProgressStage, it *item, bytesDone uint64, done, total int) {
	if w.cfg.progress == nil {
		return
	}
	ev := ProgressEvent{
		Stage:        stage,
		BytesDone:    bytesDone,
		EntriesDone:  done,
		EntriesTotal: total,
	}
	if it != nil {
		ev.Path = it.path
		ev.PathHash = it.hash
	}
	w.cfg.progress(ev)
}

func (w *writer) write(ctx context.Context, items []*item, sink io.WriterAt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.reportProgress(StagePreparing, nil, 0, 0, len(items))

	slices.SortStableFunc(items, func(a, b *item) int {
		switch {
		case a.hash < b.hash:
			return -1
		case a.hash > b.hash:
			return 1
		default:
			return 0
		}
	})
	if err := checkUnique(items); err != nil {
		return err
	}
	if w.cfg.deduplicate {
		w.deduplicate(items)
	}
	if err := checkRedirects(items); err != nil {
		return err
	}

	records := make([]Entry, len(items))
	sizes := make([]uint64, len(items))
	for i, it := range items {
		sizes[i] = uint64(len(it.data))
	}
	workers := batch.Workers(w.cfg.workers, len(items), batch.TotalBytes(sizes...))

	offset := uint64(table.Size(len(items)))
	var bytesDone uint64
	for _, span := range batch.Chunks(len(items), workers*4) {
		chunk := items[span[0]:span[1]]
		payloads := make([][]byte, len(chunk))
		err := batch.Run(ctx, len(chunk), workers, func(_ context.Context, i int) error {
			rec, payload, err := w.encode(chunk[i])
			if err != nil {
				return chunk[i].fail(err)
			}
			records[span[0]+i] = rec
			payloads[i] = payload
			return nil
		})
		if err != nil {
			return err
		}

		for i, payload := range payloads {
			it := chunk[i]
			records[span[0]+i].DataOffset = offset
			if err := writeAt(sink, payload, offset); err != nil {
				return it.fail(err)
			}
			next, ok := sizing.AddUint64(offset, uint64(len(payload)))
			if !ok {
				return it.fail(ErrSizeOverflow)
			}
			offset = next
			bytesDone += uint64(len(payload))
			w.reportProgress(StageCompressing, it, bytesDone, span[0]+i+1, len(items))
		}
	}

	w.reportProgress(StageWritingTable, nil, bytesDone, len(items), len(items))
	if err := writeAt(sink, table.Encode(CurrentVersion, records), 0); err != nil {
		return &WriteError{Err: fmt.Errorf("write entry table: %w", err)}
	}

	w.log().Debug("container written", "entries", len(items), "size", offset, "workers", workers)
	return nil
}

// checkUnique rejects repeated hashes. items must be sorted by hash.
func checkUnique(items []*item) error {
	for i := 1; i < len(items); i++ {
		prev, cur := items[i-1], items[i]
		if prev.hash != cur.hash {
			continue
		}
		if prev.path != "" && cur.path != "" && pathutil.Normalize(prev.path) != pathutil.Normalize(cur.path) {
			return cur.fail(fmt.Errorf("%w: %q and %q", ErrHashCollision, prev.path, cur.path))
		}
		return cur.fail(ErrDuplicatePath)
	}
	return nil
}

// deduplicate turns every data item whose content matches an earlier
// item (in hash order) into a redirect to that item.
func (w *writer) deduplicate(items []*item) {
	seen := make(map[uint64][]*item)
	converted := 0
	for _, it := range items {
		if it.kind != kindData {
			continue
		}
		sum := hashing.ContentChecksum(it.data)
		var first *item
		for _, cand := range seen[sum] {
			if bytes.Equal(cand.data, it.data) {
				first = cand
				break
			}
		}
		if first == nil {
			seen[sum] = append(seen[sum], it)
			continue
		}
		w.log().Debug("deduplicated entry", "hash", FormatHash(it.hash), "target", FormatHash(first.hash))
		it.kind = kindRedirect
		it.target = first.hash
		it.data = nil
		converted++
	}
	if converted > 0 {
		w.log().Debug("deduplicated entries", "count", converted)
	}
}

// checkRedirects verifies that every redirect chain ends at a non-redirect
// entry of the set within the depth readers will follow.
func checkRedirects(items []*item) error {
	byHash := make(map[uint64]*item, len(items))
	for _, it := range items {
		byHash[it.hash] = it
	}
	for _, it := range items {
		seen := map[uint64]struct{}{it.hash: {}}
		cur := it
		for hops := 0; cur.redirect(); hops++ {
			if hops >= entry.DefaultMaxRedirectDepth {
				return it.fail(fmt.Errorf("%w: chain longer than %d", ErrRedirectCycle, entry.DefaultMaxRedirectDepth))
			}
			if _, ok := seen[cur.target]; ok {
				return it.fail(ErrRedirectCycle)
			}
			next, ok := byHash[cur.target]
			if !ok {
				return it.fail(fmt.Errorf("%w: %s", ErrRedirectTarget, FormatHash(cur.target)))
			}
			seen[cur.target] = struct{}{}
			cur = next
		}
	}
	return nil
}

// encode produces the table record (without offset) and stored payload.
func (w *writer) encode(it *item) (Entry, []byte, error) {
	switch it.kind {
	case kindRedirect:
		payload := hashing.EncodeRedirect(it.target)
		return Entry{
			PathHash:         it.hash,
			CompressedSize:   uint32(len(payload)),
			UncompressedSize: uint32(len(payload)),
			Compression:      CompressionRedirect,
			Checksum:         hashing.ContentChecksum(payload),
		}, payload, nil

	case kindStored:
		payload := it.stored.Data
		if it.load != nil {
			var err error
			if payload, err = it.load(); err != nil {
				return Entry{}, nil, err
			}
		}
		size, err := sizing.ToUint32(len(payload), ErrSizeOverflow)
		if err != nil {
			return Entry{}, nil, err
		}
		return Entry{
			PathHash:         it.hash,
			CompressedSize:   size,
			UncompressedSize: it.stored.UncompressedSize,
			Compression:      it.stored.Compression,
			Checksum:         it.stored.Checksum,
		}, payload, nil

	default:
		usize, err := sizing.ToUint32(len(it.data), ErrSizeOverflow)
		if err != nil {
			return Entry{}, nil, err
		}
		kind := w.compressionFor(it)
		payload, err := w.codec.Compress(kind, it.data)
		if err != nil {
			return Entry{}, nil, err
		}
		if kind != CompressionNone && !it.explicit && len(payload) >= len(it.data) {
			kind, payload = CompressionNone, it.data
		}
		csize, err := sizing.ToUint32(len(payload), ErrSizeOverflow)
		if err != nil {
			return Entry{}, nil, err
		}
		return Entry{
			PathHash:         it.hash,
			CompressedSize:   csize,
			UncompressedSize: usize,
			Compression:      kind,
			Checksum:         hashing.ContentChecksum(it.data),
		}, payload, nil
	}
}

func (w *writer) compressionFor(it *item) Compression {
	if it.explicit {
		return it.compression
	}
	kind := w.cfg.compression
	if kind != CompressionNone && shouldSkip(it.path, int64(len(it.data)), w.cfg.skipCompression) {
		return CompressionNone
	}
	return kind
}

func writeAt(sink io.WriterAt, p []byte, off uint64) error {
	if len(p) == 0 {
		return nil
	}
	at, err := sizing.ToInt64(off, ErrSizeOverflow)
	if err != nil {
		return err
	}
	n, err := sink.WriteAt(p, at)
	if err != nil {
		return err
	}
	if n != len(p) {
		return io.ErrShortWrite
	}
	return nil
}

// writeFileAtomic runs write against a temp file, syncs it, then renames
// it to target, ensuring atomic replacement of the target file.
func writeFileAtomic(target string, write func(*os.File) error) error {
	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, ".wad-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("setting mode: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("renaming to destination: %w", err)
	}

	success = true
	return nil
}
