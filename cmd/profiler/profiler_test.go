package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBytesPerSecond(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "512", want: 512},
		{in: "64k", want: 64 << 10},
		{in: "10MBps", want: 10 << 20},
		{in: "1gb/s", want: 1 << 30},
		{in: "100bps", want: 100},
		{in: "", wantErr: true},
		{in: "fast", wantErr: true},
		{in: "-5k", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseBytesPerSecond(tt.in)
		if tt.wantErr {
			require.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestMakeEntries(t *testing.T) {
	t.Parallel()

	entries, err := makeEntries(10, 32, 3, "compressible", 4, 1)
	require.NoError(t, err)
	require.Len(t, entries, 10)
	assert.Equal(t, "dir01/file00004.dat", entries[4].Path)
	assert.Equal(t, entries[3].Data, entries[4].Data)
	assert.NotEqual(t, entries[4].Data, entries[5].Data)
}

func TestRunProfile(t *testing.T) {
	t.Parallel()

	modes := []struct {
		mode  string
		cache string
		url   string
	}{
		{mode: "readfile", cache: cacheNone},
		{mode: "readfile", cache: "memory", url: "local"},
		{mode: "cached-readfile-hit", cache: "disk"},
		{mode: "resolve", cache: cacheNone},
		{mode: "tree", cache: cacheNone},
		{mode: "verify", cache: cacheNone},
		{mode: "writer", cache: cacheNone},
		{mode: "repack", cache: cacheNone},
	}
	for _, m := range modes {
		// Sequential: the modes share the package-level sink variables.
		t.Run(m.mode+"/"+m.cache, func(t *testing.T) {
			cfg := config{
				mode:        m.mode,
				files:       20,
				fileSize:    256,
				dirCount:    4,
				compression: "zstd",
				pattern:     "compressible",
				dataURL:     m.url,
				duration:    time.Second,
				iterations:  3,
				cache:       m.cache,
				cacheDir:    t.TempDir(),
				readRandom:  true,
				randomSeed:  1,
			}
			ds, err := newDataset(cfg)
			require.NoError(t, err)
			t.Cleanup(ds.close)

			stats, err := runProfile(context.Background(), cfg, ds)
			require.NoError(t, err)
			assert.Equal(t, 3, stats.ops)
		})
	}

	_, err := runProfile(context.Background(), config{mode: "bogus", files: 1}, &dataset{})
	require.Error(t, err)
}
