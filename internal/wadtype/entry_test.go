package wadtype

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func makeEntry(offset uint64, size uint32, c Compression) Entry {
	return Entry{DataOffset: offset, CompressedSize: size, UncompressedSize: size, Compression: c}
}

func TestEntry_IsRedirect(t *testing.T) {
	t.Parallel()

	assert.True(t, makeEntry(8, 8, CompressionRedirect).IsRedirect())
	assert.False(t, makeEntry(8, 8, CompressionZstd).IsRedirect())

	entries := map[string]Entry{"alias": makeEntry(0, 8, CompressionRedirect)}
	assert.True(t, entries["alias"].IsRedirect())
}

func TestEntry_End(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		entry  Entry
		want   uint64
		wantOK bool
	}{
		{name: "empty", entry: makeEntry(48, 0, CompressionNone), want: 48, wantOK: true},
		{name: "sized", entry: makeEntry(48, 16, CompressionGZip), want: 64, wantOK: true},
		{name: "overflow", entry: makeEntry(math.MaxUint64-1, 4, CompressionNone), want: 2, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			end, ok := makeEntry(tt.entry.DataOffset, tt.entry.CompressedSize, tt.entry.Compression).End()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, end)
		})
	}
}
