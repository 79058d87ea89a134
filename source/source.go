// Package source provides ByteSource implementations for local files,
// memory, and single-cursor readers.
//
// A ByteSource is an io.ReaderAt with a known Size. Every implementation
// here supports concurrent ReadAt calls.
package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// File wraps *os.File as a ByteSource.
// os.File has ReadAt but not Size, so the size is captured at open.
type File struct {
	file *os.File
	size int64
}

// Open opens the named file for random access.
func Open(path string) (*File, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return nil, err
	}
	src, err := NewFile(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return src, nil
}

// NewFile wraps an already open file. The caller keeps ownership of f
// unless Close is called on the returned File.
func NewFile(f *os.File) (*File, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", f.Name(), err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: not a regular file", f.Name())
	}
	return &File{file: f, size: info.Size()}, nil
}

// ReadAt implements io.ReaderAt.
func (s *File) ReadAt(p []byte, off int64) (int, error) {
	return s.file.ReadAt(p, off)
}

// Size returns the file size captured at open.
func (s *File) Size() int64 {
	return s.size
}

// Name returns the file name.
func (s *File) Name() string {
	return s.file.Name()
}

// Close closes the underlying file.
func (s *File) Close() error {
	return s.file.Close()
}

// Bytes is a read-only in-memory ByteSource.
type Bytes []byte

// ReadAt implements io.ReaderAt.
func (b Bytes) ReadAt(p []byte, off int64) (int, error) {
	return readAt(b, p, off)
}

// Size returns len(b).
func (b Bytes) Size() int64 {
	return int64(len(b))
}

// Buffer is a growable in-memory container. It is both a write sink
// (io.WriterAt) and a ByteSource, which makes it convenient for building
// a container and reopening it without touching disk.
type Buffer struct {
	mu   sync.RWMutex
	data []byte
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// WriteAt implements io.WriterAt, growing the buffer as needed.
// Gaps left by out-of-order writes are zero-filled.
func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("source: negative offset")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	end := off + int64(len(p))
	if end > int64(len(b.data)) {
		if end > int64(cap(b.data)) {
			grown := make([]byte, end, max(end, 2*int64(cap(b.data))))
			copy(grown, b.data)
			b.data = grown
		} else {
			b.data = b.data[:end]
		}
	}
	return copy(b.data[off:], p), nil
}

// ReadAt implements io.ReaderAt.
func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return readAt(b.data, p, off)
}

// Size returns the current length of the buffer.
func (b *Buffer) Size() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return int64(len(b.data))
}

// Bytes returns the buffer contents. The slice aliases the buffer until
// the next write.
func (b *Buffer) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data
}

func readAt(data, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("source: negative offset")
	}
	if off >= int64(len(data)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Locked adapts a single-cursor io.ReadSeeker into a ByteSource.
//
// Each ReadAt seeks and reads under a mutex, so concurrent callers are
// serialized instead of racing on the shared cursor.
type Locked struct {
	mu   sync.Mutex
	rs   io.ReadSeeker
	size int64
}

// NewLocked wraps rs. The size is determined by seeking to the end.
func NewLocked(rs io.ReadSeeker) (*Locked, error) {
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("seek end: %w", err)
	}
	return &Locked{rs: rs, size: size}, nil
}

// ReadAt implements io.ReaderAt.
func (l *Locked) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("source: negative offset")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.rs.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	n, err := io.ReadFull(l.rs, p)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return n, err
}

// Size returns the size determined at construction.
func (l *Locked) Size() int64 {
	return l.size
}
