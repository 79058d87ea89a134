package batch

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkers(t *testing.T) {
	t.Parallel()

	procs := runtime.GOMAXPROCS(0)
	tests := []struct {
		name  string
		n     int
		count int
		total uint64
		want  int
	}{
		{name: "serial", n: -1, count: 10, total: 1 << 30, want: 1},
		{name: "single item", n: 8, count: 1, total: 1 << 30, want: 1},
		{name: "fixed", n: 3, count: 10, total: 0, want: 3},
		{name: "fixed capped", n: 16, count: 4, total: 0, want: 4},
		{name: "auto small entries", n: 0, count: 100, total: 100, want: 1},
	}
	if procs > 1 {
		tests = append(tests, struct {
			name  string
			n     int
			count int
			total uint64
			want  int
		}{name: "auto large entries", n: 0, count: 1000, total: 1000 << 20, want: procs})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Workers(tt.n, tt.count, tt.total))
		})
	}
}

func TestTotalBytes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint64(6), TotalBytes(1, 2, 3))
	assert.Equal(t, ^uint64(0), TotalBytes(^uint64(0), 1))
	assert.Zero(t, TotalBytes())
}

func TestRun(t *testing.T) {
	t.Parallel()

	for _, workers := range []int{1, 4} {
		var sum atomic.Int64
		err := Run(t.Context(), 100, workers, func(_ context.Context, i int) error {
			sum.Add(int64(i))
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4950), sum.Load(), "workers=%d", workers)
	}
}

func TestRun_StopsOnError(t *testing.T) {
	t.Parallel()

	for _, workers := range []int{1, 4} {
		var calls atomic.Int64
		err := Run(t.Context(), 1000, workers, func(_ context.Context, i int) error {
			calls.Add(1)
			if i == 3 {
				return assert.AnError
			}
			return nil
		})
		require.ErrorIs(t, err, assert.AnError)
		assert.Less(t, calls.Load(), int64(1000), "workers=%d", workers)
	}
}

func TestRun_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	for _, workers := range []int{1, 4} {
		err := Run(ctx, 10, workers, func(context.Context, int) error { return nil })
		require.ErrorIs(t, err, context.Canceled)
	}
}

func TestChunks(t *testing.T) {
	t.Parallel()

	assert.Equal(t, [][2]int{{0, 3}, {3, 6}, {6, 7}}, Chunks(7, 3))
	assert.Empty(t, Chunks(0, 3))
	assert.Equal(t, [][2]int{{0, 1}, {1, 2}}, Chunks(2, 0))
}

func TestFileSink(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sink := NewFileSink(dir)

	require.True(t, sink.ShouldWrite("a/b.txt"))
	require.NoError(t, sink.Put("a/b.txt", []byte("one")))
	got, err := os.ReadFile(filepath.Join(dir, "a", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "one", string(got))
	assert.False(t, sink.ShouldWrite("a/b.txt"))

	overwrite := NewFileSink(dir, WithOverwrite(true))
	assert.True(t, overwrite.ShouldWrite("a/b.txt"))
	require.NoError(t, overwrite.Put("a/b.txt", []byte("two")))
	got, err = os.ReadFile(filepath.Join(dir, "a", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	entries, err := os.ReadDir(filepath.Join(dir, "a"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not remain")
}

func TestFileSink_UnsafePaths(t *testing.T) {
	t.Parallel()

	sink := NewFileSink(t.TempDir())
	for _, name := range []string{"", "../escape", "/abs/path", "a/../../b"} {
		err := sink.Put(name, []byte("x"))
		require.ErrorIs(t, err, ErrUnsafePath, name)
	}
}
