package http_test

import (
	"bytes"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/wad"
	wadhttp "github.com/meigma/wad/http"
	"github.com/meigma/wad/source"
)

func serve(t *testing.T, data []byte, etag *atomic.Value, gets *atomic.Int64) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if etag != nil {
			w.Header().Set("ETag", etag.Load().(string))
		}
		if gets != nil && r.Method == nethttp.MethodGet {
			gets.Add(1)
		}
		nethttp.ServeContent(w, r, "data", time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSource_ReadAt(t *testing.T) {
	t.Parallel()

	data := []byte("hello world")
	src, err := wadhttp.NewSource(serve(t, data, nil, nil).URL)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), src.Size())

	tests := []struct {
		name    string
		off     int64
		size    int
		want    string
		wantErr error
	}{
		{name: "middle", off: 6, size: 5, want: "world"},
		{name: "past end", off: int64(len(data) - 3), size: 10, want: "rld", wantErr: io.EOF},
		{name: "at end", off: int64(len(data)), size: 1, want: "", wantErr: io.EOF},
		{name: "empty", off: 0, size: 0, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			buf := make([]byte, tt.size)
			n, err := src.ReadAt(buf, tt.off)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, string(buf[:n]))
		})
	}

	_, err = src.ReadAt(make([]byte, 1), -1)
	require.Error(t, err)
}

func TestSource_RangeUnsupported(t *testing.T) {
	t.Parallel()

	data := []byte("range unsupported")
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method == nethttp.MethodHead {
			w.Header().Set("Content-Length", strconv.Itoa(len(data)))
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(server.Close)

	_, err := wadhttp.NewSource(server.URL)
	require.ErrorIs(t, err, wadhttp.ErrRangeUnsupported)
}

func TestSource_RemoteChanged(t *testing.T) {
	t.Parallel()

	var etag atomic.Value
	etag.Store(`"v1"`)
	src, err := wadhttp.NewSource(serve(t, []byte("version one"), &etag, nil).URL)
	require.NoError(t, err)

	buf := make([]byte, 3)
	_, err = src.ReadAt(buf, 0)
	require.NoError(t, err)

	etag.Store(`"v2"`)
	_, err = src.ReadAt(buf, 0)
	require.ErrorIs(t, err, wadhttp.ErrChanged)
}

func TestSource_OpenArchive(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("remote "), 500)
	buf := source.NewBuffer()
	require.NoError(t, wad.Write(t.Context(), []wad.WriteEntry{
		{Path: "data/a.bin", Data: payload},
		{Path: "data/b.bin", Data: []byte("b")},
		{Path: "alias.bin", Target: "data/a.bin"},
	}, buf))

	var gets atomic.Int64
	src, err := wadhttp.NewSource(serve(t, buf.Bytes(), nil, &gets).URL)
	require.NoError(t, err)

	a, err := wad.Open(src)
	require.NoError(t, err)
	assert.Equal(t, 3, a.Len())

	opened := gets.Load()
	got, err := a.ReadFile("alias.bin")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	// One request for the redirect payload, one for its target.
	assert.Equal(t, opened+2, gets.Load())
}
