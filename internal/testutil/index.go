package testutil

import (
	"encoding/binary"
	"testing"

	"github.com/cespare/xxhash/v2"

	"github.com/meigma/wad/internal/wadtype"
)

// RawEntry describes one entry of a hand-built container.
//
// When Payload is set, DataOffset and CompressedSize are filled in from
// the payload's position unless KeepLayout is true. UncompressedSize and
// Checksum are taken as given, so tests can build inconsistent records.
type RawEntry struct {
	Entry      wadtype.Entry
	Payload    []byte
	KeepLayout bool
}

// BuildContainer assembles container bytes byte-by-byte, independent of
// the production encoder: header, records in the given order, then
// payloads in the same order.
func BuildContainer(tb testing.TB, v wadtype.Version, entries []RawEntry) []byte {
	tb.Helper()

	tableEnd := 8 + 40*len(entries)
	buf := make([]byte, tableEnd)
	buf[0], buf[1] = 'R', 'W'
	buf[2], buf[3] = v.Major, v.Minor
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(entries))) //nolint:gosec // test fixture

	for i := range entries {
		e := entries[i].Entry
		if entries[i].Payload != nil && !entries[i].KeepLayout {
			e.DataOffset = uint64(len(buf))
			e.CompressedSize = uint32(len(entries[i].Payload)) //nolint:gosec // test fixture
			buf = append(buf, entries[i].Payload...)
		}
		rec := buf[8+40*i : 8+40*(i+1)]
		binary.LittleEndian.PutUint64(rec[0:8], e.PathHash)
		binary.LittleEndian.PutUint64(rec[8:16], e.DataOffset)
		binary.LittleEndian.PutUint32(rec[16:20], e.CompressedSize)
		binary.LittleEndian.PutUint32(rec[20:24], e.UncompressedSize)
		rec[24] = byte(e.Compression)
		binary.LittleEndian.PutUint64(rec[32:40], e.Checksum)
	}
	return buf
}

// StoredEntry returns a RawEntry holding content uncompressed with a
// correct checksum.
func StoredEntry(hash uint64, content []byte) RawEntry {
	return RawEntry{
		Entry: wadtype.Entry{
			PathHash:         hash,
			UncompressedSize: uint32(len(content)), //nolint:gosec // test fixture
			Compression:      wadtype.CompressionNone,
			Checksum:         xxhash.Sum64(content),
		},
		Payload: content,
	}
}

// RedirectEntry returns a RawEntry aliasing hash to target.
func RedirectEntry(hash, target uint64) RawEntry {
	payload := binary.LittleEndian.AppendUint64(nil, target)
	return RawEntry{
		Entry: wadtype.Entry{
			PathHash:         hash,
			UncompressedSize: 8,
			Compression:      wadtype.CompressionRedirect,
			Checksum:         xxhash.Sum64(payload),
		},
		Payload: payload,
	}
}
