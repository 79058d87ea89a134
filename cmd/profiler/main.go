// Command profiler drives archive reads and writes in a loop for profiling.
//
// It generates a synthetic dataset, packs it into a container, and then
// runs one workload (-mode) for a fixed duration or iteration count while
// optionally recording CPU, heap, trace and wall-clock profiles.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand" //nolint:gosec // intentional use for reproducible benchmarks
	"net/http"
	_ "net/http/pprof" //nolint:gosec // intentional profiling endpoint
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"time"

	"github.com/felixge/fgprof"

	"github.com/meigma/wad"
	"github.com/meigma/wad/source"
)

const cacheNone = "none"

type config struct {
	mode            string
	files           int
	fileSize        int
	dirCount        int
	compression     string
	pattern         string
	dedupEvery      int
	workers         int
	dataURL         string
	dataHTTPLatency time.Duration
	dataHTTPBPS     int64
	fgProfile       string
	duration        time.Duration
	iterations      int
	pprofAddr       string
	cpuProfile      string
	memProfile      string
	traceFile       string
	cache           string
	cacheDir        string
	readRandom      bool
	randomSeed      int64
}

//nolint:unused // sink variables prevent compiler optimizations in profiling
var (
	sinkBytes []byte
	sinkEntry wad.Entry
	sinkCount int
)

//nolint:gocognit // main function complexity is acceptable for CLI tool
func main() {
	cfg := parseFlags()

	if cfg.pprofAddr != "" {
		go func() {
			log.Printf("pprof listening on %s", cfg.pprofAddr)
			//nolint:gosec // intentional pprof server without timeouts for profiling
			if err := http.ListenAndServe(cfg.pprofAddr, nil); err != nil {
				log.Printf("pprof server error: %v", err)
			}
		}()
	}

	ds, err := newDataset(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer ds.close()

	if cfg.fgProfile != "" {
		fgFile, fgErr := os.Create(cfg.fgProfile)
		if fgErr != nil {
			log.Fatal(fgErr) //nolint:gocritic // exitAfterDefer is intentional - cleanup is best-effort
		}
		stopFG := fgprof.Start(fgFile, fgprof.FormatPprof)
		defer func() {
			if err := stopFG(); err != nil {
				log.Printf("fgprof stop error: %v", err)
			}
			_ = fgFile.Close()
		}()
	}

	if cfg.cpuProfile != "" {
		cpuFile, cpuErr := os.Create(cfg.cpuProfile)
		if cpuErr != nil {
			log.Fatal(cpuErr)
		}
		if cpuErr = pprof.StartCPUProfile(cpuFile); cpuErr != nil {
			log.Fatal(cpuErr)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = cpuFile.Close()
		}()
	}

	if cfg.traceFile != "" {
		traceFile, traceErr := os.Create(cfg.traceFile)
		if traceErr != nil {
			log.Fatal(traceErr)
		}
		if traceErr = trace.Start(traceFile); traceErr != nil {
			log.Fatal(traceErr)
		}
		defer func() {
			trace.Stop()
			_ = traceFile.Close()
		}()
	}

	stats, err := runProfile(context.Background(), cfg, ds)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.memProfile != "" {
		runtime.GC()
		f, err := os.Create(cfg.memProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal(err)
		}
		_ = f.Close()
	}

	fmt.Printf("mode=%s ops=%d bytes=%d elapsed=%s throughput=%.2f MB/s\n",
		cfg.mode,
		stats.ops,
		stats.bytes,
		stats.elapsed,
		float64(stats.bytes)/(1024*1024)/stats.elapsed.Seconds(),
	)
}

type profileStats struct {
	ops     int
	bytes   int64
	elapsed time.Duration
}

//nolint:gocognit,gocyclo,gocritic // complexity is inherent to multi-mode profiler dispatch; hugeParam acceptable for profiler
func runProfile(ctx context.Context, cfg config, ds *dataset) (profileStats, error) {
	start := time.Now()
	ops := 0
	var byteCount int64

	shouldContinue := func() bool {
		if cfg.iterations > 0 {
			return ops < cfg.iterations
		}
		return time.Since(start) < cfg.duration
	}
	rng := rand.New(rand.NewSource(cfg.randomSeed)) //nolint:gosec // intentional for reproducible benchmarks

	switch cfg.mode {
	case "readfile":
		a, err := ds.open(cfg)
		if err != nil {
			return profileStats{}, err
		}
		for shouldContinue() {
			content, err := a.ReadFile(pickPath(ds.paths, ops, rng, cfg.readRandom))
			if err != nil {
				return profileStats{}, err
			}
			sinkBytes = content
			byteCount += int64(len(content))
			ops++
		}

	case "cached-readfile-hit":
		if cfg.cache == cacheNone {
			return profileStats{}, fmt.Errorf("%s requires a cache", cfg.mode)
		}
		a, err := ds.open(cfg)
		if err != nil {
			return profileStats{}, err
		}
		for _, path := range ds.paths {
			if sinkBytes, err = a.ReadFile(path); err != nil {
				return profileStats{}, err
			}
		}

		start = time.Now()
		for shouldContinue() {
			content, err := a.ReadFile(pickPath(ds.paths, ops, rng, cfg.readRandom))
			if err != nil {
				return profileStats{}, err
			}
			sinkBytes = content
			byteCount += int64(len(content))
			ops++
		}

	case "resolve":
		a, err := ds.open(cfg)
		if err != nil {
			return profileStats{}, err
		}
		for shouldContinue() {
			path := pickPath(ds.paths, ops, rng, cfg.readRandom)
			e, ok := a.Resolve(path)
			if !ok {
				return profileStats{}, fmt.Errorf("missing entry for %q", path)
			}
			sinkEntry = e
			ops++
		}

	case "tree":
		a, err := ds.open(cfg)
		if err != nil {
			return profileStats{}, err
		}
		for shouldContinue() {
			sinkCount = a.Tree(ds.registry).FileCount()
			ops++
		}

	case "verify":
		a, err := ds.open(cfg)
		if err != nil {
			return profileStats{}, err
		}
		for shouldContinue() {
			err := a.Verify(ctx, func(e wad.Entry, err error) error {
				byteCount += int64(e.UncompressedSize)
				return err
			}, wad.VerifyWithWorkers(cfg.workers))
			if err != nil {
				return profileStats{}, err
			}
			ops++
		}

	case "writer":
		for shouldContinue() {
			buf := source.NewBuffer()
			if err := wad.Write(ctx, ds.entries, buf, ds.writeOptions(cfg)...); err != nil {
				return profileStats{}, err
			}
			byteCount += buf.Size()
			ops++
		}

	case "repack":
		a, err := ds.open(cfg)
		if err != nil {
			return profileStats{}, err
		}
		edits := wad.Edits{Put: ds.entries[:len(ds.entries)/10]}
		if cfg.dedupEvery == 0 {
			// Deleting could orphan redirects created by deduplication.
			edits.Delete = ds.paths[len(ds.paths)-len(ds.paths)/10:]
		}
		for shouldContinue() {
			buf := source.NewBuffer()
			if err := a.Repack(ctx, buf, edits, ds.writeOptions(cfg)...); err != nil {
				return profileStats{}, err
			}
			byteCount += buf.Size()
			ops++
		}

	default:
		return profileStats{}, fmt.Errorf("unknown mode: %s", cfg.mode)
	}

	return profileStats{
		ops:     ops,
		bytes:   byteCount,
		elapsed: time.Since(start),
	}, nil
}

func parseFlags() config {
	var cfg config
	var dataHTTPBPS string
	flag.StringVar(&cfg.mode, "mode", "readfile", "mode: readfile, cached-readfile-hit, resolve, tree, verify, writer, repack")
	flag.IntVar(&cfg.files, "files", 512, "number of entries")
	flag.IntVar(&cfg.fileSize, "file-size", 16<<10, "entry size in bytes")
	flag.IntVar(&cfg.dirCount, "dir-count", 16, "number of directories")
	flag.StringVar(&cfg.compression, "compression", "zstd", "compression: none, gzip or zstd")
	flag.StringVar(&cfg.pattern, "pattern", "compressible", "pattern: compressible or random")
	flag.IntVar(&cfg.dedupEvery, "dedup-every", 0, "make every nth entry a copy of the previous one (0 disables)")
	flag.IntVar(&cfg.workers, "workers", 0, "workers: <0 serial, 0 auto, >0 fixed")
	flag.StringVar(&cfg.dataURL, "data-url", "", "HTTP data source URL (use \"local\" to serve generated data)")
	flag.DurationVar(&cfg.dataHTTPLatency, "data-http-latency", 0, "per-request latency for HTTP data source")
	flag.StringVar(&dataHTTPBPS, "data-http-bps", "", "bytes/sec throttle for HTTP data source (e.g. 10MBps)")
	flag.StringVar(&cfg.fgProfile, "fgprofile", "", "write fgprof (wall clock) profile to file")
	flag.DurationVar(&cfg.duration, "duration", 10*time.Second, "duration to run (ignored if iterations > 0)")
	flag.IntVar(&cfg.iterations, "iterations", 0, "number of iterations to run")
	flag.StringVar(&cfg.pprofAddr, "pprof-addr", "", "pprof listen address (e.g. :6060)")
	flag.StringVar(&cfg.cpuProfile, "cpuprofile", "", "write CPU profile to file")
	flag.StringVar(&cfg.memProfile, "memprofile", "", "write heap profile to file")
	flag.StringVar(&cfg.traceFile, "trace", "", "write trace to file")
	flag.StringVar(&cfg.cache, "cache", cacheNone, "cache: memory, disk, none")
	flag.StringVar(&cfg.cacheDir, "cache-dir", "", "cache directory (disk cache only)")
	flag.BoolVar(&cfg.readRandom, "read-random", true, "randomize path selection")
	flag.Int64Var(&cfg.randomSeed, "seed", 1, "random seed")
	flag.Parse()
	if dataHTTPBPS != "" {
		bps, err := parseBytesPerSecond(dataHTTPBPS)
		if err != nil {
			log.Fatalf("data-http-bps: %v", err)
		}
		cfg.dataHTTPBPS = bps
	}
	return cfg
}

func pickPath(paths []string, idx int, rng *rand.Rand, random bool) string {
	if random {
		return paths[rng.Intn(len(paths))]
	}
	return paths[idx%len(paths)]
}
