package sizing

import (
	"bytes"
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errOverflow = errors.New("overflow")

func TestConversions(t *testing.T) {
	t.Parallel()

	n, err := ToInt64(42, errOverflow)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	_, err = ToInt64(math.MaxUint64, errOverflow)
	require.ErrorIs(t, err, errOverflow)

	u, err := ToUint32(7, errOverflow)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), u)

	_, err = ToUint32(-1, errOverflow)
	require.ErrorIs(t, err, errOverflow)
}

func TestInBounds(t *testing.T) {
	t.Parallel()

	assert.True(t, InBounds(0, 10, 10))
	assert.True(t, InBounds(10, 0, 10))
	assert.False(t, InBounds(5, 6, 10))
	assert.False(t, InBounds(math.MaxUint64, 2, 10))
	assert.False(t, InBounds(0, 0, -1))
}

type failingReader struct {
	data []byte
	err  error
}

func (f *failingReader) Read(p []byte) (int, error) {
	if len(f.data) == 0 {
		return 0, f.err
	}
	n := copy(p, f.data)
	f.data = f.data[n:]
	return n, nil
}

func TestReadUpTo(t *testing.T) {
	t.Parallel()

	got, err := ReadUpTo(strings.NewReader("hello world"), 5, 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	got, err = ReadUpTo(bytes.NewReader(nil), 5, 100)
	require.NoError(t, err)
	assert.Empty(t, got)

	boom := errors.New("boom")
	got, err = ReadUpTo(&failingReader{data: []byte("par"), err: boom}, 10, 10)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, "par", string(got))

	_, err = ReadUpTo(&failingReader{err: io.ErrUnexpectedEOF}, 10, 0)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
