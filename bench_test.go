package wad

import (
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"testing"

	"github.com/meigma/wad/cache/memory"
	"github.com/meigma/wad/source"
)

var (
	benchSinkBytes []byte
	benchSinkEntry Entry
)

type benchPattern string

const (
	benchPatternCompressible benchPattern = "compressible"
	benchPatternRandom       benchPattern = "random"
)

func init() {
	if os.Getenv("WAD_PROFILE_BLOCK") == "1" {
		runtime.SetBlockProfileRate(1)
	}
	if os.Getenv("WAD_PROFILE_MUTEX") == "1" {
		runtime.SetMutexProfileFraction(1)
	}
}

func benchEntries(b *testing.B, count, size int, pattern benchPattern) ([]WriteEntry, []string) {
	b.Helper()

	rng := rand.New(rand.NewSource(1)) //nolint:gosec // reproducible benchmark data
	entries := make([]WriteEntry, count)
	paths := make([]string, count)
	for i := range entries {
		data := make([]byte, size)
		if pattern == benchPatternRandom {
			_, _ = rng.Read(data)
		} else {
			for j := range data {
				data[j] = byte('a' + (i+j/64)%26)
			}
		}
		paths[i] = fmt.Sprintf("dir%02d/file%05d.dat", i%16, i)
		entries[i] = WriteEntry{Path: paths[i], Data: data}
	}
	return entries, paths
}

func BenchmarkWrite(b *testing.B) {
	cases := []struct {
		name        string
		count       int
		size        int
		compression Compression
		pattern     benchPattern
	}{
		{"files=128/size=16k/none", 128, 16 << 10, CompressionNone, benchPatternCompressible},
		{"files=128/size=16k/gzip", 128, 16 << 10, CompressionGZip, benchPatternCompressible},
		{"files=128/size=16k/zstd", 128, 16 << 10, CompressionZstd, benchPatternCompressible},
		{"files=128/size=16k/zstd/random", 128, 16 << 10, CompressionZstd, benchPatternRandom},
		{"files=2048/size=1k/zstd", 2048, 1 << 10, CompressionZstd, benchPatternCompressible},
	}
	for _, tc := range cases {
		b.Run(tc.name, func(b *testing.B) {
			entries, _ := benchEntries(b, tc.count, tc.size, tc.pattern)
			b.SetBytes(int64(tc.count * tc.size))
			b.ReportAllocs()
			for b.Loop() {
				buf := source.NewBuffer()
				if err := Write(b.Context(), entries, buf, WithDefaultCompression(tc.compression)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkReadFile(b *testing.B) {
	cases := []struct {
		name        string
		compression Compression
		cached      bool
	}{
		{"none", CompressionNone, false},
		{"zstd", CompressionZstd, false},
		{"zstd/cached", CompressionZstd, true},
	}
	for _, tc := range cases {
		b.Run(tc.name, func(b *testing.B) {
			entries, paths := benchEntries(b, 256, 16<<10, benchPatternCompressible)
			buf := source.NewBuffer()
			if err := Write(b.Context(), entries, buf, WithDefaultCompression(tc.compression)); err != nil {
				b.Fatal(err)
			}
			var opts []Option
			if tc.cached {
				c, err := memory.New(memory.WithMaxBytes(0))
				if err != nil {
					b.Fatal(err)
				}
				opts = append(opts, WithCache(c))
			}
			a, err := Open(source.Bytes(buf.Bytes()), opts...)
			if err != nil {
				b.Fatal(err)
			}

			b.SetBytes(16 << 10)
			b.ReportAllocs()
			i := 0
			for b.Loop() {
				benchSinkBytes, err = a.ReadFile(paths[i%len(paths)])
				if err != nil {
					b.Fatal(err)
				}
				i++
			}
		})
	}
}

func BenchmarkResolve(b *testing.B) {
	entries, paths := benchEntries(b, 4096, 1, benchPatternCompressible)
	buf := source.NewBuffer()
	if err := Write(b.Context(), entries, buf); err != nil {
		b.Fatal(err)
	}
	a, err := Open(buf)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	i := 0
	for b.Loop() {
		e, ok := a.Resolve(paths[i%len(paths)])
		if !ok {
			b.Fatal("missing entry")
		}
		benchSinkEntry = e
		i++
	}
}
