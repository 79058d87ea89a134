package wadtype

import "fmt"

// Compression identifies how an entry's payload is stored.
// The values are written to the entry table and must not change.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionGZip
	CompressionZstd

	// CompressionRedirect marks an alias entry whose payload is the
	// little-endian path hash of another entry.
	CompressionRedirect
)

// String returns the human-readable name of the compression type.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGZip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionRedirect:
		return "redirect"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// Valid reports whether c is one of the known compression types.
func (c Compression) Valid() bool {
	return c <= CompressionRedirect
}

// ParseCompression parses a compression type from its String form.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none", "":
		return CompressionNone, nil
	case "gzip":
		return CompressionGZip, nil
	case "zstd":
		return CompressionZstd, nil
	case "redirect":
		return CompressionRedirect, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}
