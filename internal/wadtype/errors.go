package wadtype

import (
	"errors"
	"fmt"
)

// Sentinel errors for container parsing.
var (
	// ErrBadMagic is returned when the container does not start with the WAD signature.
	ErrBadMagic = errors.New("wad: bad magic")

	// ErrUnsupportedVersion is returned for a version outside the supported set.
	ErrUnsupportedVersion = errors.New("wad: unsupported version")

	// ErrTruncated is returned when the source ends before a table or payload does.
	ErrTruncated = errors.New("wad: truncated")
)

// Sentinel errors for entry reads.
var (
	// ErrSizeMismatch is returned when decompressed output does not match the declared size.
	ErrSizeMismatch = errors.New("wad: size mismatch")

	// ErrChecksumMismatch is returned when content does not match its checksum.
	ErrChecksumMismatch = errors.New("wad: checksum mismatch")

	// ErrRedirectCycle is returned when a redirect chain loops or exceeds the depth bound.
	ErrRedirectCycle = errors.New("wad: redirect cycle")

	// ErrRedirectTarget is returned when a redirect points at a hash not in the archive.
	ErrRedirectTarget = errors.New("wad: redirect target not found")

	// ErrUnknownCompression is returned for a compression type this package cannot decode.
	ErrUnknownCompression = errors.New("wad: unknown compression")

	// ErrCorrupt is returned by the codec when a compressed stream is malformed.
	ErrCorrupt = errors.New("wad: corrupt compressed stream")

	// ErrSizeOverflow is returned when sizes or offsets exceed supported limits.
	ErrSizeOverflow = errors.New("wad: size overflow")
)

// Sentinel errors for writes.
var (
	// ErrHashCollision is returned when two distinct paths hash to the same value.
	ErrHashCollision = errors.New("wad: path hash collision")

	// ErrDuplicatePath is returned when the same entry is supplied more than once.
	ErrDuplicatePath = errors.New("wad: duplicate path")
)

// FormatError reports a container that cannot be opened.
type FormatError struct {
	Op      string
	Offset  int64
	Version Version
	Err     error
}

func (e *FormatError) Error() string {
	if errors.Is(e.Err, ErrUnsupportedVersion) {
		return fmt.Sprintf("%s: %v %s", e.Op, e.Err, e.Version)
	}
	return fmt.Sprintf("%s at offset %d: %v", e.Op, e.Offset, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// ReadError reports a failure reading a single entry.
// The archive remains usable for other entries.
type ReadError struct {
	PathHash uint64
	Offset   uint64
	Err      error

	// Cause is the underlying failure that led to Err, if any
	// (for example the codec error behind a checksum mismatch).
	Cause error
}

func (e *ReadError) Error() string {
	msg := fmt.Sprintf("read %016x at offset %d: %v", e.PathHash, e.Offset, e.Err)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ReadError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// WriteError reports a failure writing a container.
type WriteError struct {
	Path     string
	PathHash uint64
	Err      error
}

func (e *WriteError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("write %s (%016x): %v", e.Path, e.PathHash, e.Err)
	}
	return fmt.Sprintf("write %016x: %v", e.PathHash, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
