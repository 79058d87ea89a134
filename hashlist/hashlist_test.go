package hashlist

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/wad/internal/hashing"
)

func TestLoad_Formats(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		"# comment",
		"",
		"00000000000000aa,data/a.bin",
		"0x00000000000000bb data/with space.txt",
		"cafe babe.png",
		"Icons\\A.png",
		"  cc , trimmed/path  ",
	}, "\n")

	r, err := Load(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 5, r.Len())

	tests := []struct {
		hash uint64
		want string
	}{
		{hash: 0xaa, want: "data/a.bin"},
		{hash: 0xbb, want: "data/with space.txt"},
		{hash: hashing.PathHash("icons/a.png"), want: "Icons/A.png"},
		{hash: 0xcc, want: "trimmed/path"},
		{hash: hashing.PathHash("cafe babe.png"), want: "cafe babe.png"},
	}
	for _, tt := range tests {
		got, ok := r.Lookup(tt.hash)
		require.True(t, ok, tt.want)
		assert.Equal(t, tt.want, got)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr string
		is      error
	}{
		{name: "bad hash", input: "ok/path\nnothex,some/path", wantErr: "line 2"},
		{name: "missing path", input: "0x10,", wantErr: "line 1"},
		{name: "conflict", input: "0000000000000010 a.txt\n0x0000000000000010 b.txt", wantErr: "line 2", is: ErrConflict},
		{name: "empty path", input: "0000000000000010 /", wantErr: "line 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Load(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			if tt.is != nil {
				require.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestRegistry_PutSamePathIsNoop(t *testing.T) {
	t.Parallel()

	r := New()
	h, err := r.Add("Data/File.txt")
	require.NoError(t, err)
	require.NoError(t, r.Put(h, "data\\file.txt"))

	got, _ := r.Lookup(h)
	assert.Equal(t, "Data/File.txt", got)
}

func TestRegistry_Nil(t *testing.T) {
	t.Parallel()

	var r *Registry
	_, ok := r.Lookup(1)
	assert.False(t, ok)
	assert.Zero(t, r.Len())
	for range r.All() {
		t.Fatal("nil registry yielded an entry")
	}
}

func TestRegistry_WriteToRoundTrip(t *testing.T) {
	t.Parallel()

	r := New()
	for _, p := range []string{"z/last.txt", "a/first.txt", "m/middle file.txt"} {
		_, err := r.Add(p)
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	n, err := r.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[0], " a/first.txt"))
	assert.True(t, strings.HasSuffix(lines[2], " z/last.txt"))

	path := filepath.Join(t.TempDir(), "hashes.txt")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, r.paths, loaded.paths)
}

func TestLoadFile_Missing(t *testing.T) {
	t.Parallel()

	_, err := LoadFile(filepath.Join(t.TempDir(), "nope"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRegistry_Merge(t *testing.T) {
	t.Parallel()

	r := New()
	h, err := r.Add("base.txt")
	require.NoError(t, err)

	require.NoError(t, r.Merge(strings.NewReader("extra.txt\nbase.txt\n")))
	assert.Equal(t, 2, r.Len())
	got, ok := r.Lookup(h)
	require.True(t, ok)
	assert.Equal(t, "base.txt", got)

	err = r.Merge(strings.NewReader(hashing.Format(h) + " other.txt"))
	require.ErrorIs(t, err, ErrConflict)
}
