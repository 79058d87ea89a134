package disk

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/wad/cache"
	"github.com/meigma/wad/internal/hashing"
)

func keyFor(content []byte) cache.Key {
	return cache.Key{Checksum: hashing.ContentChecksum(content), Size: uint32(len(content))}
}

func TestCachePutGet(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c, err := New(dir)
	require.NoError(t, err)

	content := []byte("hello")
	key := keyFor(content)
	require.NoError(t, c.Put(key, content))

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, content, got)
	assert.Equal(t, int64(len(content)), c.SizeBytes())

	name := key.String()
	_, err = os.Stat(filepath.Join(dir, name[:defaultShardPrefixLen], name))
	require.NoError(t, err)

	// A second put of the same key is a no-op.
	require.NoError(t, c.Put(key, content))
	assert.Equal(t, int64(len(content)), c.SizeBytes())
}

func TestCacheShardDisable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c, err := New(dir, WithShardPrefixLen(0))
	require.NoError(t, err)

	content := []byte("flat")
	key := keyFor(content)
	require.NoError(t, c.Put(key, content))

	_, err = os.Stat(filepath.Join(dir, key.String()))
	require.NoError(t, err)
}

func TestNewInvalid(t *testing.T) {
	t.Parallel()

	_, err := New("")
	require.Error(t, err)
	_, err = New(t.TempDir(), WithShardPrefixLen(-1))
	require.Error(t, err)
	_, err = New(t.TempDir(), WithMaxBytes(-1))
	require.Error(t, err)
}

func TestCacheGetWrongLength(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c, err := New(dir, WithShardPrefixLen(0))
	require.NoError(t, err)

	content := []byte("truncated on disk")
	key := keyFor(content)
	require.NoError(t, c.Put(key, content))
	require.NoError(t, os.WriteFile(filepath.Join(dir, key.String()), content[:4], 0o600))

	_, ok := c.Get(key)
	assert.False(t, ok)
}

func TestCacheDelete(t *testing.T) {
	t.Parallel()

	c, err := New(t.TempDir())
	require.NoError(t, err)

	content := []byte("bye")
	key := keyFor(content)
	require.NoError(t, c.Put(key, content))
	require.NoError(t, c.Delete(key))
	require.NoError(t, c.Delete(key))

	_, ok := c.Get(key)
	assert.False(t, ok)
	assert.Equal(t, int64(0), c.SizeBytes())
}

func TestCacheMaxBytes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c, err := New(dir, WithMaxBytes(10), WithShardPrefixLen(0))
	require.NoError(t, err)

	first := []byte("aaaaaa")
	second := []byte("bbbbbb")
	require.NoError(t, c.Put(keyFor(first), first))

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, keyFor(first).String()), old, old))

	require.NoError(t, c.Put(keyFor(second), second))
	assert.LessOrEqual(t, c.SizeBytes(), int64(10))

	_, ok := c.Get(keyFor(first))
	assert.False(t, ok, "older entry should be pruned")
	_, ok = c.Get(keyFor(second))
	assert.True(t, ok)

	huge := bytes.Repeat([]byte("x"), 11)
	require.NoError(t, c.Put(keyFor(huge), huge))
	_, ok = c.Get(keyFor(huge))
	assert.False(t, ok)
}

func TestCacheReopenCountsExisting(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c, err := New(dir)
	require.NoError(t, err)
	content := []byte("persisted")
	require.NoError(t, c.Put(keyFor(content), content))

	// Leftover temp files from a crashed writer are not counted.
	require.NoError(t, os.WriteFile(filepath.Join(dir, tempPrefix+"junk"), []byte("junk"), 0o600))

	reopened, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), reopened.SizeBytes())

	got, ok := reopened.Get(keyFor(content))
	require.True(t, ok)
	assert.Equal(t, content, got)
}

func TestCachePrune(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c, err := New(dir, WithShardPrefixLen(0))
	require.NoError(t, err)

	base := time.Now().Add(-time.Hour)
	for i, s := range []string{"1111", "2222", "3333"} {
		content := []byte(s)
		require.NoError(t, c.Put(keyFor(content), content))
		mod := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(filepath.Join(dir, keyFor(content).String()), mod, mod))
	}

	freed, err := c.Prune(4)
	require.NoError(t, err)
	assert.Equal(t, int64(8), freed)
	assert.Equal(t, int64(4), c.SizeBytes())

	_, ok := c.Get(keyFor([]byte("3333")))
	assert.True(t, ok)
}
