package wadtype

import "fmt"

// Version identifies the container format revision.
type Version struct {
	Major uint8
	Minor uint8
}

// String returns the version as "major.minor".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Header is the fixed-size container header.
type Header struct {
	Version    Version
	EntryCount uint32
}

// Entry is one record of the entry table.
//
// Entries are addressed by PathHash only; the container never stores
// the cleartext path.
type Entry struct {
	// PathHash is the hash of the normalized virtual path.
	PathHash uint64

	// DataOffset is the absolute offset of the stored payload.
	DataOffset uint64

	// CompressedSize is the length of the stored payload.
	CompressedSize uint32

	// UncompressedSize is the declared length after decompression.
	// Equal to CompressedSize for uncompressed and redirect entries.
	UncompressedSize uint32

	// Compression is how the payload is stored.
	Compression Compression

	// Checksum is the content checksum of the uncompressed payload.
	Checksum uint64
}

// IsRedirect reports whether the entry is an alias to another entry.
func (e Entry) IsRedirect() bool {
	return e.Compression == CompressionRedirect
}

// End returns the offset just past the stored payload and whether the
// addition overflowed.
func (e Entry) End() (uint64, bool) {
	end := e.DataOffset + uint64(e.CompressedSize)
	return end, end >= e.DataOffset
}

// Content is the result of reading one entry.
//
// When Corrupt is true, Data holds whatever bytes could be recovered and
// the accompanying error explains what failed verification.
type Content struct {
	Data    []byte
	Corrupt bool
}
