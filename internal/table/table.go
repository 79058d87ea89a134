// Package table decodes and encodes the container header and entry table.
//
// Layout (little-endian):
//
//	header  8 bytes   magic "RW", major u8, minor u8, entry count u32
//	record  40 bytes  path hash u64, data offset u64, compressed size u32,
//	                  uncompressed size u32, compression u8, 7 reserved
//	                  bytes, checksum u64
//
// Records follow the header directly. Payloads live anywhere after the
// table and are addressed by absolute offset.
package table

import (
	"encoding/binary"
	"io"

	"github.com/meigma/wad/internal/wadtype"
)

const (
	// HeaderSize is the size of the fixed container header.
	HeaderSize = 8

	// RecordSize is the size of one entry record.
	RecordSize = 40
)

// Magic is the container signature.
var Magic = [2]byte{'R', 'W'}

// CurrentVersion is the version written by this package.
var CurrentVersion = wadtype.Version{Major: 3, Minor: 1}

// supportedVersions lists every version Decode accepts. All share one layout.
var supportedVersions = map[wadtype.Version]struct{}{
	{Major: 3, Minor: 0}: {},
	{Major: 3, Minor: 1}: {},
}

// Supported reports whether Decode accepts v.
func Supported(v wadtype.Version) bool {
	_, ok := supportedVersions[v]
	return ok
}

// Source is the random-access input Decode reads from.
type Source interface {
	io.ReaderAt
	Size() int64
}

// Size returns the number of bytes occupied by a header and n records.
func Size(n int) int64 {
	return HeaderSize + int64(n)*RecordSize
}

func putHeader(b []byte, h wadtype.Header) {
	b[0], b[1] = Magic[0], Magic[1]
	b[2] = h.Version.Major
	b[3] = h.Version.Minor
	binary.LittleEndian.PutUint32(b[4:8], h.EntryCount)
}

func putRecord(b []byte, e *wadtype.Entry) {
	binary.LittleEndian.PutUint64(b[0:8], e.PathHash)
	binary.LittleEndian.PutUint64(b[8:16], e.DataOffset)
	binary.LittleEndian.PutUint32(b[16:20], e.CompressedSize)
	binary.LittleEndian.PutUint32(b[20:24], e.UncompressedSize)
	b[24] = byte(e.Compression)
	clear(b[25:32])
	binary.LittleEndian.PutUint64(b[32:40], e.Checksum)
}

func parseRecord(b []byte) wadtype.Entry {
	return wadtype.Entry{
		PathHash:         binary.LittleEndian.Uint64(b[0:8]),
		DataOffset:       binary.LittleEndian.Uint64(b[8:16]),
		CompressedSize:   binary.LittleEndian.Uint32(b[16:20]),
		UncompressedSize: binary.LittleEndian.Uint32(b[20:24]),
		Compression:      wadtype.Compression(b[24]),
		Checksum:         binary.LittleEndian.Uint64(b[32:40]),
	}
}

// Encode serializes a header and entry table. EntryCount in the returned
// bytes is always len(entries); h.EntryCount is ignored.
func Encode(v wadtype.Version, entries []wadtype.Entry) []byte {
	buf := make([]byte, Size(len(entries)))
	putHeader(buf, wadtype.Header{Version: v, EntryCount: uint32(len(entries))}) //nolint:gosec // writers cap entry count
	for i := range entries {
		off := HeaderSize + i*RecordSize
		putRecord(buf[off:off+RecordSize], &entries[i])
	}
	return buf
}
