// Package testutil provides in-memory sources and container fixtures for tests.
package testutil

import (
	"io"
	"sync"
)

// MockByteSource implements a simple in-memory byte source for tests.
// It records every ReadAt range so tests can assert which bytes were touched.
type MockByteSource struct {
	data []byte

	mu    sync.Mutex
	reads []Range
}

// Range is a half-open byte range [Off, Off+Len).
type Range struct {
	Off int64
	Len int
}

// NewMockByteSource returns a byte source backed by the provided data.
func NewMockByteSource(data []byte) *MockByteSource {
	return &MockByteSource{data: data}
}

// ReadAt implements io.ReaderAt semantics over the backing slice.
func (m *MockByteSource) ReadAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	m.reads = append(m.reads, Range{Off: off, Len: len(p)})
	m.mu.Unlock()

	if off < 0 {
		return 0, io.ErrUnexpectedEOF
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the total size of the backing data.
func (m *MockByteSource) Size() int64 {
	return int64(len(m.data))
}

// Bytes returns the backing slice for tests that need to mutate data.
func (m *MockByteSource) Bytes() []byte {
	return m.data
}

// Reads returns the ranges requested so far.
func (m *MockByteSource) Reads() []Range {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Range(nil), m.reads...)
}

// MaxReadEnd returns the largest offset touched by any read.
func (m *MockByteSource) MaxReadEnd() int64 {
	var end int64
	for _, r := range m.Reads() {
		if e := r.Off + int64(r.Len); e > end {
			end = e
		}
	}
	return end
}

// CursorSource is a single-cursor reader that panics if two goroutines
// use it at once. It stands in for sources without positioned reads.
type CursorSource struct {
	data  []byte
	pos   int64
	inUse sync.Mutex
}

// NewCursorSource returns a CursorSource over data.
func NewCursorSource(data []byte) *CursorSource {
	return &CursorSource{data: data}
}

// Read implements io.Reader.
func (c *CursorSource) Read(p []byte) (int, error) {
	if !c.inUse.TryLock() {
		panic("testutil: concurrent use of CursorSource")
	}
	defer c.inUse.Unlock()
	if c.pos >= int64(len(c.data)) {
		return 0, io.EOF
	}
	n := copy(p, c.data[c.pos:])
	c.pos += int64(n)
	return n, nil
}

// Seek implements io.Seeker.
func (c *CursorSource) Seek(offset int64, whence int) (int64, error) {
	if !c.inUse.TryLock() {
		panic("testutil: concurrent use of CursorSource")
	}
	defer c.inUse.Unlock()
	switch whence {
	case io.SeekStart:
		c.pos = offset
	case io.SeekCurrent:
		c.pos += offset
	case io.SeekEnd:
		c.pos = int64(len(c.data)) + offset
	}
	return c.pos, nil
}
