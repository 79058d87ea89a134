package wad

import (
	"io"

	"github.com/meigma/wad/internal/hashing"
	"github.com/meigma/wad/internal/pathutil"
	"github.com/meigma/wad/internal/table"
	"github.com/meigma/wad/internal/wadtype"
)

// Re-export types from internal/wadtype for public API.
type (
	// Entry is one record of the entry table.
	Entry = wadtype.Entry

	// Header is the fixed-size container header.
	Header = wadtype.Header

	// Version identifies the container format revision.
	Version = wadtype.Version

	// Compression identifies how an entry's payload is stored.
	Compression = wadtype.Compression

	// Content is the result of reading one entry.
	Content = wadtype.Content

	// Duplicate records a path hash that appeared more than once in a table.
	Duplicate = table.Duplicate

	// FormatError reports a container that cannot be opened.
	FormatError = wadtype.FormatError

	// ReadError reports a failure reading a single entry.
	ReadError = wadtype.ReadError

	// WriteError reports a failure writing a container.
	WriteError = wadtype.WriteError

	// ProgressEvent represents a progress update during operations.
	ProgressEvent = wadtype.ProgressEvent

	// ProgressStage identifies the current phase of an operation.
	ProgressStage = wadtype.ProgressStage

	// ProgressFunc receives progress updates during operations.
	ProgressFunc = wadtype.ProgressFunc
)

// Re-export compression constants.
const (
	CompressionNone     = wadtype.CompressionNone
	CompressionGZip     = wadtype.CompressionGZip
	CompressionZstd     = wadtype.CompressionZstd
	CompressionRedirect = wadtype.CompressionRedirect
)

// Re-export progress stage constants.
const (
	StagePreparing    = wadtype.StagePreparing
	StageCompressing  = wadtype.StageCompressing
	StageWritingTable = wadtype.StageWritingTable
	StageVerifying    = wadtype.StageVerifying
)

// Sentinel errors re-exported from internal/wadtype.
var (
	ErrBadMagic           = wadtype.ErrBadMagic
	ErrUnsupportedVersion = wadtype.ErrUnsupportedVersion
	ErrTruncated          = wadtype.ErrTruncated
	ErrSizeMismatch       = wadtype.ErrSizeMismatch
	ErrChecksumMismatch   = wadtype.ErrChecksumMismatch
	ErrRedirectCycle      = wadtype.ErrRedirectCycle
	ErrRedirectTarget     = wadtype.ErrRedirectTarget
	ErrUnknownCompression = wadtype.ErrUnknownCompression
	ErrCorrupt            = wadtype.ErrCorrupt
	ErrSizeOverflow       = wadtype.ErrSizeOverflow
	ErrHashCollision      = wadtype.ErrHashCollision
	ErrDuplicatePath      = wadtype.ErrDuplicatePath
)

// CurrentVersion is the container version written by this package.
var CurrentVersion = table.CurrentVersion

// ByteSource provides random access to container bytes.
//
// Implementations exist for local files, memory buffers and HTTP range
// requests; see the source and http packages. ReadAt must be safe for
// concurrent use for concurrent reads to be safe.
type ByteSource interface {
	io.ReaderAt
	Size() int64
}

// PathHash returns the hash identifying a virtual path.
// Paths are normalized first, so "Data\\File.TXT" and "data/file.txt"
// share a hash.
func PathHash(path string) uint64 {
	return hashing.PathHash(path)
}

// ContentChecksum returns the checksum stored for uncompressed content.
func ContentChecksum(b []byte) uint64 {
	return hashing.ContentChecksum(b)
}

// NormalizePath returns the form of path that PathHash hashes.
func NormalizePath(path string) string {
	return pathutil.Normalize(path)
}

// FormatHash formats a path hash as 16 lower-case hex digits.
func FormatHash(h uint64) string {
	return hashing.Format(h)
}

// ParseHash parses a hex path hash, with or without a "0x" prefix.
func ParseHash(s string) (uint64, error) {
	return hashing.Parse(s)
}

// ParseCompression parses a compression type from its String form.
func ParseCompression(name string) (Compression, error) {
	return wadtype.ParseCompression(name)
}

// Decode reads the header and entry table from src without touching any
// payload. Entries are returned in ascending hash order with duplicates
// already resolved last-writer-wins.
func Decode(src ByteSource) (Header, []Entry, error) {
	h, idx, err := table.Decode(src)
	if err != nil {
		return h, nil, err
	}
	return h, idx.Entries(), nil
}
