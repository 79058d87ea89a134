// Package hashing implements the path hash and content checksum used by
// the container format.
package hashing

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/meigma/wad/internal/pathutil"
)

// PathHash returns the lookup key for a virtual path.
// The path is normalized first, so "Data\Icons\A.png" and
// "data/icons/a.png" share a key.
func PathHash(path string) uint64 {
	return xxhash.Sum64String(pathutil.Normalize(path))
}

// ContentChecksum returns the checksum of uncompressed content.
// It detects corruption only and offers no protection against tampering.
func ContentChecksum(b []byte) uint64 {
	return xxhash.Sum64(b)
}

// Format renders a path hash as 16 lower-case hex digits.
func Format(h uint64) string {
	return fmt.Sprintf("%016x", h)
}

// Parse parses a hash in the form produced by Format. A leading "0x"
// is accepted.
func Parse(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if s == "" || len(s) > 16 {
		return 0, fmt.Errorf("invalid path hash %q", s)
	}
	h, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid path hash %q", s)
	}
	return h, nil
}

// EncodeRedirect returns the payload of a redirect entry pointing at target.
func EncodeRedirect(target uint64) []byte {
	return binary.LittleEndian.AppendUint64(make([]byte, 0, 8), target)
}

// DecodeRedirect extracts the target hash from a redirect payload.
func DecodeRedirect(payload []byte) (uint64, bool) {
	if len(payload) != 8 {
		return 0, false
	}
	return binary.LittleEndian.Uint64(payload), true
}
