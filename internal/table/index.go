package table

import (
	"iter"
	"slices"
	"sort"

	"github.com/meigma/wad/internal/wadtype"
)

// Duplicate records a path hash that appeared more than once in a table.
// The later record replaced the earlier one.
type Duplicate struct {
	PathHash uint64
	Replaced wadtype.Entry
	Kept     wadtype.Entry
}

// Index provides lookup of entries by path hash.
//
// Entries are kept sorted by hash, giving a stable iteration order.
// An Index is read-only once built and safe for concurrent use.
type Index struct {
	entries    []wadtype.Entry
	pos        map[uint64]int
	duplicates []Duplicate
	tableEnd   int64
}

// NewIndex builds an index from table records in on-disk order.
// When a hash repeats, the last record wins and the collision is
// recorded in Duplicates.
func NewIndex(records []wadtype.Entry) *Index {
	idx := &Index{
		entries: make([]wadtype.Entry, 0, len(records)),
		pos:     make(map[uint64]int, len(records)),
	}
	for i := range records {
		r := records[i]
		if at, ok := idx.pos[r.PathHash]; ok {
			idx.duplicates = append(idx.duplicates, Duplicate{
				PathHash: r.PathHash,
				Replaced: idx.entries[at],
				Kept:     r,
			})
			idx.entries[at] = r
			continue
		}
		idx.pos[r.PathHash] = len(idx.entries)
		idx.entries = append(idx.entries, r)
	}

	sort.Slice(idx.entries, func(i, j int) bool {
		return idx.entries[i].PathHash < idx.entries[j].PathHash
	})
	for i := range idx.entries {
		idx.pos[idx.entries[i].PathHash] = i
	}
	idx.tableEnd = Size(len(records))
	return idx
}

// Lookup returns the entry for a path hash. The returned pointer refers
// into the index and must be treated as read-only.
func (idx *Index) Lookup(hash uint64) (*wadtype.Entry, bool) {
	i, ok := idx.pos[hash]
	if !ok {
		return nil, false
	}
	return &idx.entries[i], true
}

// Len returns the number of distinct entries.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// All returns an iterator over entries in ascending hash order.
// The yielded pointers refer into the index and must be treated as read-only.
func (idx *Index) All() iter.Seq[*wadtype.Entry] {
	return func(yield func(*wadtype.Entry) bool) {
		for i := range idx.entries {
			if !yield(&idx.entries[i]) {
				return
			}
		}
	}
}

// Entries returns a copy of all entries in ascending hash order.
func (idx *Index) Entries() []wadtype.Entry {
	return slices.Clone(idx.entries)
}

// Duplicates returns the hash collisions encountered while building.
func (idx *Index) Duplicates() []Duplicate {
	return idx.duplicates
}

// TableEnd returns the offset immediately past the entry table.
func (idx *Index) TableEnd() int64 {
	return idx.tableEnd
}
