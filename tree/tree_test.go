package tree

import (
	"io/fs"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/wad/hashlist"
	"github.com/meigma/wad/internal/hashing"
	"github.com/meigma/wad/internal/table"
	"github.com/meigma/wad/internal/wadtype"
)

type mapLookup map[uint64]string

func (m mapLookup) Lookup(h uint64) (string, bool) {
	p, ok := m[h]
	return p, ok
}

func indexOf(hashes ...uint64) *table.Index {
	entries := make([]wadtype.Entry, len(hashes))
	for i, h := range hashes {
		entries[i] = wadtype.Entry{PathHash: h, DataOffset: uint64(100 + i)}
	}
	return table.NewIndex(entries)
}

func names(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name()
	}
	return out
}

func TestBuild_KnownPaths(t *testing.T) {
	t.Parallel()

	reg := hashlist.New()
	var hashes []uint64
	for _, p := range []string{"icons/a.png", "icons/b.png", "data.bin"} {
		h, err := reg.Add(p)
		require.NoError(t, err)
		hashes = append(hashes, h)
	}
	idx := indexOf(hashes...)

	root := Build(idx.All(), reg)
	assert.Equal(t, 3, root.FileCount())
	assert.Equal(t, []string{"icons", "data.bin"}, names(root.Children()))

	n, ok := root.Lookup("icons/b.png")
	require.True(t, ok)
	file, ok := n.(*File)
	require.True(t, ok)
	assert.True(t, file.Known)
	assert.Equal(t, hashing.PathHash("icons/b.png"), file.Entry.PathHash)
	assert.Equal(t, "icons/b.png", file.Path())

	e, _ := idx.Lookup(file.Entry.PathHash)
	assert.Same(t, e, file.Entry)

	icons, ok := root.Lookup("ICONS")
	require.True(t, ok)
	assert.True(t, icons.IsDir())
	assert.Equal(t, 2, icons.(*Folder).FileCount())

	_, ok = root.Lookup("icons/missing.png")
	assert.False(t, ok)
	_, ok = root.Lookup("data.bin/child")
	assert.False(t, ok)
}

func TestBuild_UnknownHashes(t *testing.T) {
	t.Parallel()

	idx := indexOf(0x1, 0xabc, 0x2)
	root := Build(idx.All(), mapLookup{0x2: "Sounds/Hit.wav"})

	assert.Equal(t, []string{"Sounds", UnknownFolder}, names(root.Children()))

	unknown, ok := root.Lookup(UnknownFolder)
	require.True(t, ok)
	assert.Equal(t, []string{"0000000000000001", "0000000000000abc"}, names(unknown.(*Folder).Children()))

	n, ok := root.Lookup("unknown/0000000000000abc")
	require.True(t, ok)
	assert.False(t, n.(*File).Known)
	assert.Equal(t, uint64(0xabc), n.(*File).Entry.PathHash)

	h, err := hashing.Parse(n.Name())
	require.NoError(t, err)
	assert.Equal(t, uint64(0xabc), h)
}

func TestBuild_NilLookup(t *testing.T) {
	t.Parallel()

	root := Build(indexOf(3, 1, 2).All(), nil)
	assert.Equal(t, 3, root.FileCount())
	require.Len(t, root.Folders(), 1)
	assert.Equal(t, UnknownFolder, root.Folders()[0].Name())

	var nilRegistry *hashlist.Registry
	root = Build(indexOf(3).All(), nilRegistry)
	assert.Equal(t, 1, root.Folders()[0].FileCount())
}

func TestBuild_NameCollisions(t *testing.T) {
	t.Parallel()

	idx := indexOf(0x10, 0x20, 0x30, 0x40)
	root := Build(idx.All(), mapLookup{
		0x10: "a/x.txt",
		0x20: "a/X.txt",
		0x30: "a/sub",
		0x40: "a/sub/inner.txt",
	})

	a, ok := root.Lookup("a")
	require.True(t, ok)
	folder := a.(*Folder)

	assert.Equal(t, []string{"sub"}, names(nodesOf(folder.Folders())))
	assert.Equal(t, []string{
		"sub (0000000000000030)",
		"x.txt",
		"X.txt (0000000000000020)",
	}, names(filesOf(folder.Files())))
	assert.Equal(t, 4, root.FileCount())
}

func TestBuild_UnorderedInput(t *testing.T) {
	t.Parallel()

	lookup := mapLookup{0x10: "a/x.txt", 0x20: "a/X.txt"}
	reversed := []*wadtype.Entry{{PathHash: 0x20}, {PathHash: 0x10}}
	root := Build(slices.Values(reversed), lookup)

	a, ok := root.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, []string{
		"x.txt",
		"X.txt (0000000000000020)",
	}, names(filesOf(a.(*Folder).Files())))
}

func TestBuild_Sorting(t *testing.T) {
	t.Parallel()

	lookup := mapLookup{}
	var hashes []uint64
	for i, p := range []string{"b.txt", "A.txt", "c.txt", "B2.txt", "zdir/f", "Bdir/f"} {
		h := uint64(i + 1)
		lookup[h] = p
		hashes = append(hashes, h)
	}
	root := Build(indexOf(hashes...).All(), lookup)

	assert.Equal(t, []string{"Bdir", "zdir", "A.txt", "b.txt", "B2.txt", "c.txt"}, names(root.Children()))
}

func TestBuild_CoversEveryEntryOnce(t *testing.T) {
	t.Parallel()

	lookup := mapLookup{}
	var hashes []uint64
	for i := range uint64(200) {
		h := hashing.PathHash(string(rune('a'+i%26))) ^ (i << 32)
		hashes = append(hashes, h)
		switch i % 3 {
		case 0:
			lookup[h] = "dir" + string(rune('a'+i%5)) + "/file.bin"
		case 1:
			lookup[h] = "flat.bin"
		}
	}
	idx := indexOf(hashes...)
	root := Build(idx.All(), lookup)

	seen := make(map[*wadtype.Entry]int)
	for f := range root.AllFiles() {
		seen[f.Entry]++
	}
	assert.Len(t, seen, idx.Len())
	for e, n := range seen {
		assert.Equal(t, 1, n, "entry %x", e.PathHash)
	}
	assert.Equal(t, idx.Len(), root.FileCount())
}

func TestFolder_Walk(t *testing.T) {
	t.Parallel()

	root := Build(indexOf(1, 2, 3, 4).All(), mapLookup{
		1: "a/one",
		2: "a/two",
		3: "b/three",
		4: "top",
	})

	var visited []string
	err := root.Walk(func(n Node) error {
		visited = append(visited, n.Path())
		if n.Name() == "b" {
			return fs.SkipDir
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"", "a", "a/one", "a/two", "b", "top"}, visited)

	visited = nil
	err = root.Walk(func(n Node) error {
		visited = append(visited, n.Path())
		if n.Path() == "a/one" {
			return fs.SkipAll
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"", "a", "a/one"}, visited)

	err = root.Walk(func(Node) error { return assert.AnError })
	require.ErrorIs(t, err, assert.AnError)
}

func nodesOf(folders []*Folder) []Node {
	out := make([]Node, len(folders))
	for i, f := range folders {
		out[i] = f
	}
	return out
}

func filesOf(files []*File) []Node {
	out := make([]Node, len(files))
	for i, f := range files {
		out[i] = f
	}
	return out
}
