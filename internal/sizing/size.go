// Package sizing provides overflow-safe size arithmetic for container offsets.
package sizing

import (
	"bytes"
	"io"
	"math"
)

// ToInt converts a uint64 to int, returning overflowErr if it doesn't fit.
func ToInt(size uint64, overflowErr error) (int, error) {
	if size > uint64(math.MaxInt) {
		return 0, overflowErr
	}
	return int(size), nil
}

// ToInt64 converts a uint64 to int64, returning overflowErr if it doesn't fit.
func ToInt64(size uint64, overflowErr error) (int64, error) {
	if size > uint64(math.MaxInt64) {
		return 0, overflowErr
	}
	return int64(size), nil
}

// ToUint32 converts an int to uint32, returning overflowErr if it doesn't fit.
func ToUint32(n int, overflowErr error) (uint32, error) {
	if n < 0 || uint64(n) > math.MaxUint32 {
		return 0, overflowErr
	}
	return uint32(n), nil
}

// AddUint64 adds two uint64 values, returning (result, false) on overflow.
func AddUint64(a, b uint64) (uint64, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

// InBounds reports whether [off, off+length) lies within a source of the given size.
func InBounds(off, length uint64, size int64) bool {
	if size < 0 {
		return false
	}
	end, ok := AddUint64(off, length)
	return ok && end <= uint64(size)
}

// ReadUpTo reads from r until EOF or until limit bytes have been read.
// Unlike io.ReadAll it returns the bytes read so far alongside any error,
// so callers can surface best-effort content.
func ReadUpTo(r io.Reader, limit int64, sizeHint int) ([]byte, error) {
	if sizeHint < 0 || int64(sizeHint) > limit {
		sizeHint = 0
	}
	buf := bytes.NewBuffer(make([]byte, 0, sizeHint))
	_, err := buf.ReadFrom(io.LimitReader(r, limit))
	return buf.Bytes(), err
}
