// Package hashlist maps path hashes back to the paths they were computed from.
//
// Containers store only hashes, so a Registry is the only way to recover
// display names. A nil *Registry is valid and resolves nothing.
//
// The text format has one entry per line:
//
//	hash,path
//	hash path
//	path
//
// Hashes are hexadecimal with an optional "0x" prefix. In the space
// separated form the hash must be all 16 digits, so a bare path containing a
// space is not mistaken for one. A bare path has its hash computed. Blank lines and lines starting with '#' are ignored.
package hashlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/meigma/wad/internal/hashing"
	"github.com/meigma/wad/internal/pathutil"
)

// ErrConflict is returned when a hash is registered with two different paths.
var ErrConflict = errors.New("hashlist: conflicting paths for hash")

// Registry is a hash to path dictionary.
//
// A Registry is not safe for concurrent mutation; once loaded it may be
// shared freely for lookups.
type Registry struct {
	paths map[uint64]string
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{paths: make(map[uint64]string)}
}

// Add registers path under its computed hash and returns the hash.
func (r *Registry) Add(path string) (uint64, error) {
	h := hashing.PathHash(path)
	return h, r.Put(h, path)
}

// Put registers path under an explicit hash. Registering the same path
// again (compared after normalization) is a no-op.
func (r *Registry) Put(hash uint64, path string) error {
	path = pathutil.Clean(path)
	if path == "" {
		return errors.New("hashlist: empty path")
	}
	if existing, ok := r.paths[hash]; ok {
		if pathutil.Normalize(existing) == pathutil.Normalize(path) {
			return nil
		}
		return fmt.Errorf("%w %s: %q and %q", ErrConflict, hashing.Format(hash), existing, path)
	}
	r.paths[hash] = path
	return nil
}

// Lookup returns the path registered for hash.
func (r *Registry) Lookup(hash uint64) (string, bool) {
	if r == nil {
		return "", false
	}
	p, ok := r.paths[hash]
	return p, ok
}

// Len returns the number of registered hashes.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.paths)
}

// All iterates entries ordered by path, then hash.
func (r *Registry) All() iter.Seq2[uint64, string] {
	return func(yield func(uint64, string) bool) {
		if r == nil {
			return
		}
		hashes := slices.SortedFunc(maps.Keys(r.paths), func(a, b uint64) int {
			if c := strings.Compare(r.paths[a], r.paths[b]); c != 0 {
				return c
			}
			if a < b {
				return -1
			}
			if a > b {
				return 1
			}
			return 0
		})
		for _, h := range hashes {
			if !yield(h, r.paths[h]) {
				return
			}
		}
	}
}

// Load parses a registry from rd.
func Load(rd io.Reader) (*Registry, error) {
	r := New()
	if err := r.Merge(rd); err != nil {
		return nil, err
	}
	return r, nil
}

// LoadFile parses the registry file at path.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Merge adds entries parsed from rd to r.
// Errors report the offending line number.
func (r *Registry) Merge(rd io.Reader) error {
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		hash, path, err := parseLine(text)
		if err == nil {
			err = r.Put(hash, path)
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	return sc.Err()
}

func parseLine(text string) (uint64, string, error) {
	if head, tail, ok := strings.Cut(text, ","); ok {
		h, err := hashing.Parse(head)
		if err != nil {
			return 0, "", err
		}
		tail = strings.TrimSpace(tail)
		if tail == "" {
			return 0, "", errors.New("missing path")
		}
		return h, tail, nil
	}
	if head, tail, ok := strings.Cut(text, " "); ok && isFullHash(head) {
		if h, err := hashing.Parse(head); err == nil {
			if tail = strings.TrimSpace(tail); tail != "" {
				return h, tail, nil
			}
		}
	}
	return hashing.PathHash(text), text, nil
}

// isFullHash reports whether word is exactly 16 hex digits, optionally
// prefixed with "0x". Shorter words are treated as part of a bare path.
func isFullHash(word string) bool {
	if len(word) == 18 && (strings.HasPrefix(word, "0x") || strings.HasPrefix(word, "0X")) {
		word = word[2:]
	}
	if len(word) != 16 {
		return false
	}
	for _, c := range word {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}

// WriteTo writes the registry as "hash path" lines sorted by path.
func (r *Registry) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var total int64
	for h, p := range r.All() {
		n, err := fmt.Fprintf(bw, "%s %s\n", hashing.Format(h), p)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, bw.Flush()
}
