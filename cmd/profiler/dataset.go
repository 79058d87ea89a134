package main

import (
	"context"
	"fmt"
	"math/rand" //nolint:gosec // intentional use for reproducible benchmarks
	"os"

	"github.com/meigma/wad"
	"github.com/meigma/wad/cache"
	"github.com/meigma/wad/cache/disk"
	"github.com/meigma/wad/cache/memory"
	"github.com/meigma/wad/hashlist"
	"github.com/meigma/wad/source"
)

// dataset is a generated container plus the inputs that produced it.
type dataset struct {
	entries  []wad.WriteEntry
	paths    []string
	registry *hashlist.Registry
	data     []byte
	cleanup  []func()
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func newDataset(cfg config) (*dataset, error) {
	if cfg.files <= 0 {
		return nil, fmt.Errorf("files must be > 0, got %d", cfg.files)
	}
	ds := &dataset{registry: hashlist.New()}
	entries, err := makeEntries(cfg.files, cfg.fileSize, cfg.dirCount, cfg.pattern, cfg.dedupEvery, cfg.randomSeed)
	if err != nil {
		return nil, err
	}
	ds.entries = entries
	for _, e := range entries {
		ds.paths = append(ds.paths, e.Path)
		if _, err := ds.registry.Add(e.Path); err != nil {
			return nil, err
		}
	}

	buf := source.NewBuffer()
	if err := wad.Write(context.Background(), entries, buf, ds.writeOptions(cfg)...); err != nil {
		return nil, err
	}
	ds.data = buf.Bytes()
	return ds, nil
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func (ds *dataset) writeOptions(cfg config) []wad.WriteOption {
	comp, err := wad.ParseCompression(cfg.compression)
	if err != nil || comp == wad.CompressionRedirect {
		comp = wad.CompressionZstd
	}
	return []wad.WriteOption{
		wad.WithDefaultCompression(comp),
		wad.WithDeduplicate(cfg.dedupEvery > 0),
		wad.WithWorkers(cfg.workers),
	}
}

// open opens the generated container from memory or over HTTP.
//
//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func (ds *dataset) open(cfg config) (*wad.Archive, error) {
	var opts []wad.Option
	if cfg.cache != cacheNone {
		c, err := ds.newCache(cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, wad.WithCache(c))
	}
	if cfg.workers > 0 {
		opts = append(opts, wad.WithDecoderConcurrency(cfg.workers))
	}

	if cfg.dataURL == "" {
		return wad.Open(source.Bytes(ds.data), opts...)
	}
	src, cleanup, err := newHTTPSource(cfg, ds.data)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		ds.cleanup = append(ds.cleanup, cleanup)
	}
	return wad.Open(src, opts...)
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func (ds *dataset) newCache(cfg config) (cache.Cache, error) {
	switch cfg.cache {
	case "memory":
		c, err := memory.New(memory.WithMaxBytes(0))
		if err != nil {
			return nil, err
		}
		return c, nil
	case "disk":
		dir := cfg.cacheDir
		if dir == "" {
			tmp, err := os.MkdirTemp("", "wad-profiler-cache-*")
			if err != nil {
				return nil, err
			}
			ds.cleanup = append(ds.cleanup, func() { _ = os.RemoveAll(tmp) })
			dir = tmp
		}
		c, err := disk.New(dir)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache: %s", cfg.cache)
	}
}

func (ds *dataset) close() {
	for _, fn := range ds.cleanup {
		fn()
	}
}

func makeEntries(count, size, dirCount int, pattern string, dedupEvery int, seed int64) ([]wad.WriteEntry, error) {
	if dirCount <= 0 {
		dirCount = 1
	}
	entries := make([]wad.WriteEntry, 0, count)
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // intentional use for reproducible benchmarks
	for i := range count {
		path := fmt.Sprintf("dir%02d/file%05d.dat", i%dirCount, i)
		if dedupEvery > 0 && i > 0 && i%dedupEvery == 0 {
			entries = append(entries, wad.WriteEntry{Path: path, Data: entries[i-1].Data})
			continue
		}

		content := make([]byte, size)
		switch pattern {
		case "random":
			if _, err := rng.Read(content); err != nil {
				return nil, err
			}
		default:
			fillByte := byte('a' + (i % 26))
			for j := range content {
				content[j] = fillByte
			}
			if len(content) > 0 {
				content[0] = byte(i)
			}
		}
		entries = append(entries, wad.WriteEntry{Path: path, Data: content})
	}
	return entries, nil
}
