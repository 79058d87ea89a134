package codec

import (
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// decoderPool keeps zstd decoders and gzip readers for reuse across entry reads.
// Both decoder types are expensive to allocate relative to a typical entry.
type decoderPool struct {
	zstd               sync.Pool
	gzip               sync.Pool
	maxDecoderMemory   uint64
	decoderConcurrency int
	decoderLowmem      bool
}

func newDecoderPool(maxMemory uint64, concurrency int, lowmem bool) *decoderPool {
	if concurrency < 0 {
		concurrency = 0
	}
	return &decoderPool{
		maxDecoderMemory:   maxMemory,
		decoderConcurrency: concurrency,
		decoderLowmem:      lowmem,
	}
}

// zstdDecoder returns a decoder reading from r.
// The caller must call the returned release function when done.
// If an error is returned, no release function needs to be called.
func (p *decoderPool) zstdDecoder(r io.Reader) (*zstd.Decoder, func(), error) {
	if dec, ok := p.zstd.Get().(*zstd.Decoder); ok {
		if err := dec.Reset(r); err == nil {
			return dec, func() {
				_ = dec.Reset(nil) //nolint:errcheck // clearing state before pool return
				p.zstd.Put(dec)
			}, nil
		}
		// Reset failed; the decoder may hold broken state.
		dec.Close()
	}

	dec, err := p.newZstdDecoder(r)
	if err != nil {
		return nil, nil, err
	}
	return dec, func() {
		_ = dec.Reset(nil) //nolint:errcheck // clearing state before pool return
		p.zstd.Put(dec)
	}, nil
}

func (p *decoderPool) newZstdDecoder(r io.Reader) (*zstd.Decoder, error) {
	opts := []zstd.DOption{
		zstd.WithDecoderConcurrency(p.decoderConcurrency),
		zstd.WithDecoderLowmem(p.decoderLowmem),
	}
	if p.maxDecoderMemory != 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(p.maxDecoderMemory))
	}
	return zstd.NewReader(r, opts...)
}

// gzipReader returns a gzip reader positioned at the start of r.
// The header is parsed eagerly, so a malformed header fails here.
func (p *decoderPool) gzipReader(r io.Reader) (*gzip.Reader, func(), error) {
	if zr, ok := p.gzip.Get().(*gzip.Reader); ok {
		if err := zr.Reset(r); err != nil {
			p.gzip.Put(zr)
			return nil, nil, err
		}
		return zr, func() { p.gzip.Put(zr) }, nil
	}

	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, nil, err
	}
	return zr, func() { p.gzip.Put(zr) }, nil
}
