// Package wad reads and writes WAD containers: many independently
// compressed, checksummed payloads addressed by the hash of a virtual path.
//
// A container is a fixed header, an entry table of 40-byte records, and a
// payload region. Records carry a path hash, never the path itself, so
// every path-based API normalizes and hashes first. Readers recover display
// names through an external registry (see the hashlist package) and browse
// containers as folders through the tree package.
//
// # Reading
//
// Open decodes only the header and entry table; payloads are read on demand
// with positioned reads, so concurrent reads need no locking:
//
//	a, err := wad.OpenFile("assets.wad")
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//
//	data, err := a.ReadFile("data/icons/a.png")
//
// Reads follow redirect aliases, decompress, and verify the declared size
// and checksum. A failed read returns a *ReadError and leaves the archive
// usable; when the payload was readable but failed verification, the
// recovered bytes are returned with Content.Corrupt set.
//
// # Browsing
//
// Tree projects entries into folders using a path registry:
//
//	reg, err := hashlist.LoadFile("hashes.txt")
//	if err != nil {
//	    return err
//	}
//	root := a.Tree(reg)
//
// Entries whose hash the registry does not know appear under the
// "unknown" folder, named by their hex hash.
//
// # Writing
//
// Write and WriteFile build a container from a list of entries, and
// Archive.Repack produces an edited copy of an existing container,
// carrying untouched payloads over verbatim:
//
//	err := wad.WriteFile(ctx, "out.wad", []wad.WriteEntry{
//	    {Path: "icons/a.png", Data: png},
//	    {Path: "data.bin", Target: "icons/a.png"},
//	}, wad.WithDeduplicate(true))
//
// # Caching
//
// WithCache keeps decoded content in a cache.Cache keyed by checksum and
// size. Implementations live in cache/memory and cache/disk. Cached
// content is verified again on every hit.
package wad
