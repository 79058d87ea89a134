package codec

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/wad/internal/wadtype"
)

func sampleContent() []byte {
	return bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 64)
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	c := New()
	content := sampleContent()

	for _, kind := range []wadtype.Compression{
		wadtype.CompressionNone,
		wadtype.CompressionGZip,
		wadtype.CompressionZstd,
	} {
		t.Run(kind.String(), func(t *testing.T) {
			t.Parallel()

			compressed, err := c.Compress(kind, content)
			require.NoError(t, err)
			if kind != wadtype.CompressionNone {
				assert.Less(t, len(compressed), len(content))
			}

			got, err := c.Decompress(kind, compressed, len(content))
			require.NoError(t, err)
			assert.Equal(t, content, got)
		})
	}
}

func TestDecompress_NoneIsZeroCopy(t *testing.T) {
	t.Parallel()

	input := []byte("raw")
	got, err := New().Decompress(wadtype.CompressionNone, input, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Same(t, &input[0], &got[0])
}

func TestDecompress_OverrunIsBounded(t *testing.T) {
	t.Parallel()

	c := New()
	content := sampleContent()
	for _, kind := range []wadtype.Compression{wadtype.CompressionGZip, wadtype.CompressionZstd} {
		compressed, err := c.Compress(kind, content)
		require.NoError(t, err)

		got, err := c.Decompress(kind, compressed, 10)
		require.NoError(t, err, kind.String())
		assert.Len(t, got, 11, kind.String())

		got, err = c.Decompress(kind, compressed, len(content)+100)
		require.NoError(t, err, kind.String())
		assert.Len(t, got, len(content), kind.String())
	}
}

func TestDecompress_Corrupt(t *testing.T) {
	t.Parallel()

	c := New()
	content := sampleContent()

	tests := []struct {
		name  string
		kind  wadtype.Compression
		input func() []byte
	}{
		{
			name:  "zstd garbage",
			kind:  wadtype.CompressionZstd,
			input: func() []byte { return []byte("definitely not zstd") },
		},
		{
			name:  "gzip garbage",
			kind:  wadtype.CompressionGZip,
			input: func() []byte { return []byte("definitely not gzip") },
		},
		{
			name: "zstd frame checksum",
			kind: wadtype.CompressionZstd,
			input: func() []byte {
				compressed, err := c.Compress(wadtype.CompressionZstd, content)
				require.NoError(t, err)
				compressed[len(compressed)-1] ^= 0xff
				return compressed
			},
		},
		{
			name: "gzip trailer crc",
			kind: wadtype.CompressionGZip,
			input: func() []byte {
				compressed, err := c.Compress(wadtype.CompressionGZip, content)
				require.NoError(t, err)
				compressed[len(compressed)-8] ^= 0xff
				return compressed
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := c.Decompress(tt.kind, tt.input(), len(content))
			require.ErrorIs(t, err, wadtype.ErrCorrupt)
		})
	}
}

func TestDecompress_UnknownKind(t *testing.T) {
	t.Parallel()

	_, err := New().Decompress(wadtype.CompressionRedirect, []byte{1}, 1)
	require.ErrorIs(t, err, wadtype.ErrUnknownCompression)

	_, err = New().Compress(wadtype.Compression(9), []byte{1})
	require.ErrorIs(t, err, wadtype.ErrUnknownCompression)
}

func TestCodec_Concurrent(t *testing.T) {
	t.Parallel()

	c := New()
	content := sampleContent()
	compressed, err := c.Compress(wadtype.CompressionZstd, content)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.Decompress(wadtype.CompressionZstd, compressed, len(content))
			if err == nil && !bytes.Equal(got, content) {
				err = assert.AnError
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}
