package wad

import (
	"context"
	"io"
	"io/fs"
	"os"
)

// Edits describes changes applied by Repack.
type Edits struct {
	// Put adds entries, replacing any existing entry with the same hash.
	Put []WriteEntry

	// Delete removes the entries at these paths.
	Delete []string

	// DeleteHashes removes entries by hash, for entries with no known path.
	DeleteHashes []uint64
}

// Repack writes a new container to sink holding this archive's entries
// with edits applied. The archive itself is never modified.
//
// Untouched entries, redirects included, are copied verbatim: the stored
// bytes and checksum are carried over without recompression or
// verification. Deleting an entry that is absent fails with a
// *WriteError wrapping fs.ErrNotExist, and deleting the target of a
// remaining redirect fails with ErrRedirectTarget. WithDeduplicate
// applies to entries added by Put only.
func (a *Archive) Repack(ctx context.Context, sink io.WriterAt, edits Edits, opts ...WriteOption) error {
	items, err := a.repackItems(edits)
	if err != nil {
		return err
	}
	w := newWriter(opts)
	w.log().Debug("repacking archive",
		"entries", a.idx.Len(),
		"put", len(edits.Put),
		"deleted", len(edits.Delete)+len(edits.DeleteHashes))
	return w.write(ctx, items, sink)
}

// RepackFile is Repack to a file, replaced atomically. path may name the
// file this archive was opened from.
func (a *Archive) RepackFile(ctx context.Context, path string, edits Edits, opts ...WriteOption) error {
	return writeFileAtomic(path, func(f *os.File) error {
		return a.Repack(ctx, f, edits, opts...)
	})
}

func (a *Archive) repackItems(edits Edits) ([]*item, error) {
	drop := make(map[uint64]struct{}, len(edits.Delete)+len(edits.DeleteHashes)+len(edits.Put))
	for _, p := range edits.Delete {
		h := PathHash(p)
		if _, ok := a.idx.Lookup(h); !ok {
			return nil, &WriteError{Path: p, PathHash: h, Err: fs.ErrNotExist}
		}
		drop[h] = struct{}{}
	}
	for _, h := range edits.DeleteHashes {
		if _, ok := a.idx.Lookup(h); !ok {
			return nil, &WriteError{PathHash: h, Err: fs.ErrNotExist}
		}
		drop[h] = struct{}{}
	}

	items := make([]*item, 0, a.idx.Len()+len(edits.Put))
	for i := range edits.Put {
		it, err := newItem(&edits.Put[i])
		if err != nil {
			return nil, err
		}
		drop[it.hash] = struct{}{}
		items = append(items, it)
	}

	for e := range a.idx.All() {
		if _, ok := drop[e.PathHash]; ok {
			continue
		}
		it := &item{
			hash: e.PathHash,
			kind: kindStored,
			stored: StoredPayload{
				Compression:      e.Compression,
				UncompressedSize: e.UncompressedSize,
				Checksum:         e.Checksum,
			},
		}
		if e.IsRedirect() {
			target, err := a.reader.RedirectTarget(e)
			if err != nil {
				return nil, it.fail(err)
			}
			it.target = target
		}
		ref := *e
		it.load = func() ([]byte, error) { return a.reader.Stored(&ref) }
		items = append(items, it)
	}
	return items, nil
}
