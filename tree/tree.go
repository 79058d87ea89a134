// Package tree projects the flat set of archive entries into a folder tree.
//
// Archives do not store directories. Folders are synthesized from the
// paths a PathLookup knows about; entries whose hash is unknown are
// collected under a top-level folder named UnknownFolder, each named by
// its hex hash. Every entry appears exactly once.
//
// Building a tree performs no I/O, and the result is immutable.
package tree

import (
	"cmp"
	"errors"
	"io/fs"
	"iter"
	"slices"
	"strings"

	"github.com/meigma/wad/internal/hashing"
	"github.com/meigma/wad/internal/pathutil"
	"github.com/meigma/wad/internal/wadtype"
)

// UnknownFolder is the name of the folder holding entries with no known path.
const UnknownFolder = "unknown"

// PathLookup resolves a path hash to the path it was computed from.
type PathLookup interface {
	Lookup(hash uint64) (string, bool)
}

// Node is a Folder or a File.
type Node interface {
	Name() string
	Path() string
	IsDir() bool
}

// Folder is a synthesized directory.
type Folder struct {
	name    string
	parent  *Folder
	folders []*Folder
	files   []*File
	count   int

	byName map[string]Node // build-time only
}

// File is a leaf backed by one archive entry.
type File struct {
	name   string
	parent *Folder

	// Entry is the index entry this file presents. It points into the
	// archive's index and must be treated as read-only.
	Entry *wadtype.Entry

	// Known reports whether the name came from a PathLookup rather than
	// being synthesized from the hash.
	Known bool
}

// Build projects entries into a tree rooted at an unnamed folder.
// lookup may be nil, in which case every entry lands in UnknownFolder.
//
// entries may arrive in any order. They are placed in ascending hash
// order, so the collision suffix lands on the same entry regardless of
// iteration order; an archive index already yields that order.
func Build(entries iter.Seq[*wadtype.Entry], lookup PathLookup) *Folder {
	type placed struct {
		segments []string
		entry    *wadtype.Entry
		known    bool
	}

	var items []placed
	for e := range entries {
		segments, known := resolve(e.PathHash, lookup)
		items = append(items, placed{segments: segments, entry: e, known: known})
	}
	slices.SortStableFunc(items, func(a, b placed) int {
		return cmp.Compare(a.entry.PathHash, b.entry.PathHash)
	})

	root := newFolder("", nil)

	// Folders first, so a file never claims a name that a folder needs.
	for _, it := range items {
		dir := root
		for _, seg := range it.segments[:len(it.segments)-1] {
			dir = dir.folder(seg)
		}
	}
	for _, it := range items {
		dir := root
		for _, seg := range it.segments[:len(it.segments)-1] {
			dir = dir.folder(seg)
		}
		dir.addFile(it.segments[len(it.segments)-1], it.entry, it.known)
	}

	root.finish()
	return root
}

// resolve returns the display path segments for hash.
func resolve(hash uint64, lookup PathLookup) ([]string, bool) {
	if lookup != nil {
		if p, ok := lookup.Lookup(hash); ok {
			if segments := pathutil.Split(p); len(segments) > 0 {
				return segments, true
			}
		}
	}
	return []string{UnknownFolder, hashing.Format(hash)}, false
}

func newFolder(name string, parent *Folder) *Folder {
	return &Folder{name: name, parent: parent, byName: make(map[string]Node)}
}

// folder returns the child folder called name, creating it if needed.
// A registry may spell the same folder with different case; those merge
// into the first spelling seen.
func (f *Folder) folder(name string) *Folder {
	if n, ok := f.byName[foldKey(name)]; ok {
		if sub, ok := n.(*Folder); ok {
			return sub
		}
	}
	sub := newFolder(name, f)
	f.byName[foldKey(name)] = sub
	f.folders = append(f.folders, sub)
	return sub
}

func (f *Folder) addFile(name string, e *wadtype.Entry, known bool) {
	suffix := " (" + hashing.Format(e.PathHash) + ")"
	for {
		if _, taken := f.byName[foldKey(name)]; !taken {
			break
		}
		name += suffix
	}
	file := &File{name: name, parent: f, Entry: e, Known: known}
	f.byName[foldKey(name)] = file
	f.files = append(f.files, file)
}

// finish sorts children, computes counts, and drops build state.
func (f *Folder) finish() int {
	slices.SortFunc(f.folders, func(a, b *Folder) int { return compareNames(a.name, b.name) })
	slices.SortFunc(f.files, func(a, b *File) int { return compareNames(a.name, b.name) })

	f.count = len(f.files)
	for _, sub := range f.folders {
		f.count += sub.finish()
	}
	f.byName = nil
	return f.count
}

func foldKey(name string) string {
	return strings.ToLower(name)
}

// compareNames orders case-insensitively, breaking ties by exact name.
func compareNames(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// Name returns the folder name. The root folder's name is empty.
func (f *Folder) Name() string { return f.name }

// Path returns the slash-separated path from the root.
func (f *Folder) Path() string { return nodePath(f.parent, f.name) }

// IsDir reports true.
func (f *Folder) IsDir() bool { return true }

// Parent returns the containing folder, or nil for the root.
func (f *Folder) Parent() *Folder { return f.parent }

// Folders returns subfolders in display order.
func (f *Folder) Folders() []*Folder { return f.folders }

// Files returns files in display order.
func (f *Folder) Files() []*File { return f.files }

// Children returns subfolders followed by files, each in display order.
func (f *Folder) Children() []Node {
	out := make([]Node, 0, len(f.folders)+len(f.files))
	for _, sub := range f.folders {
		out = append(out, sub)
	}
	for _, file := range f.files {
		out = append(out, file)
	}
	return out
}

// FileCount returns the number of files in this folder and all subfolders.
func (f *Folder) FileCount() int { return f.count }

// Lookup finds the node at a slash-separated path relative to f.
// Exact names match first; otherwise names match case-insensitively.
// An empty path returns f.
func (f *Folder) Lookup(path string) (Node, bool) {
	var n Node = f
	for _, seg := range pathutil.Split(path) {
		dir, ok := n.(*Folder)
		if !ok {
			return nil, false
		}
		if n, ok = dir.child(seg); !ok {
			return nil, false
		}
	}
	return n, true
}

func (f *Folder) child(name string) (Node, bool) {
	var folded Node
	for _, sub := range f.folders {
		if sub.name == name {
			return sub, true
		}
		if folded == nil && strings.EqualFold(sub.name, name) {
			folded = sub
		}
	}
	for _, file := range f.files {
		if file.name == name {
			return file, true
		}
		if folded == nil && strings.EqualFold(file.name, name) {
			folded = file
		}
	}
	return folded, folded != nil
}

// WalkFunc is called for each node visited by Walk.
// Returning fs.SkipDir from a folder skips its contents, and from a file
// skips the remaining files in that folder. fs.SkipAll ends the walk
// quietly; any other error stops the walk and is returned by Walk.
type WalkFunc func(n Node) error

// Walk visits f and its descendants depth-first in display order.
func (f *Folder) Walk(fn WalkFunc) error {
	err := f.walk(fn)
	if errors.Is(err, fs.SkipAll) {
		return nil
	}
	return err
}

func (f *Folder) walk(fn WalkFunc) error {
	if err := fn(f); err != nil {
		if errors.Is(err, fs.SkipDir) {
			return nil
		}
		return err
	}
	for _, sub := range f.folders {
		if err := sub.walk(fn); err != nil {
			return err
		}
	}
	for _, file := range f.files {
		if err := fn(file); err != nil {
			if errors.Is(err, fs.SkipDir) {
				return nil
			}
			return err
		}
	}
	return nil
}

// AllFiles iterates every file under f in walk order.
func (f *Folder) AllFiles() iter.Seq[*File] {
	return func(yield func(*File) bool) {
		_ = f.walk(func(n Node) error { //nolint:errcheck // the callback only stops the walk
			file, ok := n.(*File)
			if ok && !yield(file) {
				return fs.SkipAll
			}
			return nil
		})
	}
}

// Name returns the display name.
func (f *File) Name() string { return f.name }

// Path returns the slash-separated display path from the root.
func (f *File) Path() string { return nodePath(f.parent, f.name) }

// IsDir reports false.
func (f *File) IsDir() bool { return false }

// Parent returns the containing folder.
func (f *File) Parent() *Folder { return f.parent }

func nodePath(parent *Folder, name string) string {
	if parent == nil {
		return name
	}
	parts := []string{name}
	for p := parent; p != nil && p.parent != nil; p = p.parent {
		parts = append(parts, p.name)
	}
	slices.Reverse(parts)
	return strings.Join(parts, "/")
}
