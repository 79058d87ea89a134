package disk

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"
)

type cachedFile struct {
	path    string
	size    int64
	modTime time.Time
}

// scan lists the committed cache files under root. In-flight temp files
// are skipped so a concurrent Put is never pruned mid-write.
func scan(root string) ([]cachedFile, int64, error) {
	var (
		files []cachedFile
		total int64
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || isTemp(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		total += info.Size()
		files = append(files, cachedFile{path: path, size: info.Size(), modTime: info.ModTime()})
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	return files, total, err
}

func dirSize(root string) (int64, error) {
	_, total, err := scan(root)
	return total, err
}

// pruneDir removes the least recently modified files until at most
// targetBytes remain.
func pruneDir(root string, targetBytes int64) (freed, remaining int64, err error) {
	files, total, err := scan(root)
	if err != nil {
		return 0, 0, err
	}

	remaining = total
	if remaining <= targetBytes {
		return 0, remaining, nil
	}

	slices.SortFunc(files, func(a, b cachedFile) int {
		if c := a.modTime.Compare(b.modTime); c != 0 {
			return c
		}
		if a.path < b.path {
			return -1
		}
		if a.path > b.path {
			return 1
		}
		return 0
	})

	for _, f := range files {
		if remaining <= targetBytes {
			break
		}
		if err := os.Remove(f.path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return freed, remaining, err
		}
		remaining -= f.size
		freed += f.size
	}
	return freed, remaining, nil
}
