// Package batch runs per-entry work across a bounded set of workers.
package batch

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/wad/internal/sizing"
)

// parallelMinAvgBytes is the minimum average entry size to use parallel processing.
// Below this threshold, serial processing is more efficient due to reduced overhead.
const parallelMinAvgBytes = 16 << 10 // 16KB

// Workers resolves a worker setting for count items totalling totalBytes.
//
// Values < 0 force serial processing. Zero uses automatic heuristics.
// Values > 0 force a specific worker count, capped at count.
func Workers(n, count int, totalBytes uint64) int {
	if count < 2 || n < 0 {
		return 1
	}

	workers := n
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
		if workers < 2 {
			return 1
		}
		if totalBytes/uint64(count) < parallelMinAvgBytes {
			return 1
		}
	}

	if workers > count {
		workers = count
	}
	return max(workers, 1)
}

// TotalBytes sums sizes, saturating instead of overflowing.
func TotalBytes(sizes ...uint64) uint64 {
	var total uint64
	for _, s := range sizes {
		next, ok := sizing.AddUint64(total, s)
		if !ok {
			return ^uint64(0)
		}
		total = next
	}
	return total
}

// Run calls fn for every index in [0, count) using up to workers
// goroutines. Indexes are started in ascending order.
//
// Run stops starting new work at the first error or when ctx is done,
// and returns the first error observed.
func Run(ctx context.Context, count, workers int, fn func(ctx context.Context, i int) error) error {
	if workers < 2 || count < 2 {
		for i := range count {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range count {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Chunks splits [0, count) into consecutive half-open ranges of at most size.
func Chunks(count, size int) [][2]int {
	if size < 1 {
		size = 1
	}
	out := make([][2]int, 0, (count+size-1)/size)
	for start := 0; start < count; start += size {
		out = append(out, [2]int{start, min(start+size, count)})
	}
	return out
}
