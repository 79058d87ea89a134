package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrUnsafePath is returned for a destination that would escape the sink root.
var ErrUnsafePath = errors.New("batch: unsafe path")

// FileSink writes extracted entries to the filesystem with atomic writes.
//
// Content is written to a temporary file in the destination directory,
// then renamed to the final path, so partially written files are never
// visible at the final path.
type FileSink struct {
	destDir   string
	overwrite bool
	dirPerm   os.FileMode
	filePerm  os.FileMode
}

// FileSinkOption configures a FileSink.
type FileSinkOption func(*FileSink)

// WithOverwrite allows overwriting existing files.
// By default, existing files are skipped.
func WithOverwrite(overwrite bool) FileSinkOption {
	return func(s *FileSink) {
		s.overwrite = overwrite
	}
}

// WithFilePerm sets the permission bits of written files (default 0o644).
func WithFilePerm(mode os.FileMode) FileSinkOption {
	return func(s *FileSink) {
		s.filePerm = mode
	}
}

// NewFileSink creates a FileSink that writes under destDir.
// Parent directories are created automatically as needed.
func NewFileSink(destDir string, opts ...FileSinkOption) *FileSink {
	s := &FileSink{
		destDir:  destDir,
		dirPerm:  0o750,
		filePerm: 0o644,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the filesystem path for a slash-separated relative name.
// Names that are absolute or climb out of the sink root are rejected.
func (s *FileSink) Path(name string) (string, error) {
	rel := filepath.FromSlash(name)
	if name == "" || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return filepath.Join(s.destDir, rel), nil
}

// ShouldWrite returns false if the file already exists and overwrite is disabled.
func (s *FileSink) ShouldWrite(name string) bool {
	if s.overwrite {
		return true
	}
	dest, err := s.Path(name)
	if err != nil {
		return true // let Put report the error
	}
	_, err = os.Lstat(dest)
	return os.IsNotExist(err)
}

// Put writes data to name atomically.
func (s *FileSink) Put(name string, data []byte) error {
	dest, err := s.Path(name)
	if err != nil {
		return err
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, s.dirPerm); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".wad-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()        //nolint:errcheck // we're cleaning up
			_ = os.Remove(tmpPath) //nolint:errcheck // best-effort cleanup
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Chmod(s.filePerm); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("rename to %s: %w", dest, err)
	}
	success = true
	return nil
}
