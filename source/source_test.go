package source

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/wad/internal/testutil"
)

type byteSource interface {
	io.ReaderAt
	Size() int64
}

func TestSources_ReadAt(t *testing.T) {
	t.Parallel()

	data := []byte("hello world")

	path := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	file, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { file.Close() })

	buf := NewBuffer()
	_, err = buf.WriteAt(data, 0)
	require.NoError(t, err)

	locked, err := NewLocked(testutil.NewCursorSource(data))
	require.NoError(t, err)

	sources := map[string]byteSource{
		"file":   file,
		"bytes":  Bytes(data),
		"buffer": buf,
		"locked": locked,
	}

	tests := []struct {
		name    string
		bufSize int
		offset  int64
		want    string
		wantErr error
	}{
		{name: "middle", bufSize: 5, offset: 6, want: "world"},
		{name: "past end", bufSize: 10, offset: 8, want: "rld", wantErr: io.EOF},
		{name: "at end", bufSize: 4, offset: 11, want: "", wantErr: io.EOF},
	}

	for name, src := range sources {
		assert.Equal(t, int64(len(data)), src.Size(), name)
		for _, tt := range tests {
			p := make([]byte, tt.bufSize)
			n, err := src.ReadAt(p, tt.offset)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr, "%s/%s", name, tt.name)
			} else {
				require.NoError(t, err, "%s/%s", name, tt.name)
			}
			assert.Equal(t, tt.want, string(p[:n]), "%s/%s", name, tt.name)
		}
	}
}

func TestBuffer_WriteAtGrows(t *testing.T) {
	t.Parallel()

	buf := NewBuffer()
	_, err := buf.WriteAt([]byte("tail"), 8)
	require.NoError(t, err)
	_, err = buf.WriteAt([]byte("head"), 0)
	require.NoError(t, err)

	assert.Equal(t, int64(12), buf.Size())
	assert.Equal(t, []byte("head\x00\x00\x00\x00tail"), buf.Bytes())

	_, err = buf.WriteAt([]byte("x"), -1)
	require.Error(t, err)
}

func TestLocked_SerializesConcurrentReads(t *testing.T) {
	t.Parallel()

	data := bytes.Repeat([]byte("0123456789"), 100)
	locked, err := NewLocked(testutil.NewCursorSource(data))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			off := int64(i * 10)
			p := make([]byte, 10)
			n, err := locked.ReadAt(p, off)
			if err != nil || n != 10 || !bytes.Equal(p, data[off:off+10]) {
				t.Errorf("ReadAt(%d) = %d, %v", off, n, err)
			}
		}()
	}
	wg.Wait()
}

func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = Open(t.TempDir())
	require.Error(t, err)
}
