package table

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/meigma/wad/internal/wadtype"
)

// Decode parses the header and entry table from src.
//
// Only the header and table are read; payload bytes are never touched,
// so the cost is proportional to the entry count. All reads are
// positioned, leaving no cursor state behind.
func Decode(src Source) (wadtype.Header, *Index, error) {
	var hdr [HeaderSize]byte
	if err := readFull(src, hdr[:], 0); err != nil {
		return wadtype.Header{}, nil, &wadtype.FormatError{Op: "read header", Offset: 0, Err: err}
	}
	if hdr[0] != Magic[0] || hdr[1] != Magic[1] {
		return wadtype.Header{}, nil, &wadtype.FormatError{Op: "read header", Offset: 0, Err: wadtype.ErrBadMagic}
	}

	h := wadtype.Header{
		Version:    wadtype.Version{Major: hdr[2], Minor: hdr[3]},
		EntryCount: binary.LittleEndian.Uint32(hdr[4:8]),
	}
	if !Supported(h.Version) {
		return h, nil, &wadtype.FormatError{Op: "read header", Offset: 2, Version: h.Version, Err: wadtype.ErrUnsupportedVersion}
	}

	// Check the declared table against the source before allocating, so a
	// corrupt count cannot force a huge allocation.
	tableEnd := HeaderSize + int64(h.EntryCount)*RecordSize
	if src.Size() < tableEnd {
		return h, nil, &wadtype.FormatError{Op: "read entry table", Offset: src.Size(), Err: wadtype.ErrTruncated}
	}

	raw := make([]byte, int(h.EntryCount)*RecordSize)
	if err := readFull(src, raw, HeaderSize); err != nil {
		return h, nil, &wadtype.FormatError{Op: "read entry table", Offset: HeaderSize, Err: err}
	}

	records := make([]wadtype.Entry, h.EntryCount)
	for i := range records {
		off := i * RecordSize
		records[i] = parseRecord(raw[off : off+RecordSize])
	}

	idx := NewIndex(records)
	idx.tableEnd = tableEnd
	return h, idx, nil
}

// readFull fills p from src at off, mapping a short read to ErrTruncated.
func readFull(src io.ReaderAt, p []byte, off int64) error {
	n, err := src.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return wadtype.ErrTruncated
	}
	return err
}
