package batch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FileSink writes items to files under a directory.
//
// Files are written to a temporary name in the same directory and renamed
// on Commit, so a partially written file is never visible under its final
// name. Names are slash-separated paths relative to the directory; names
// that escape it are rejected.
type FileSink struct {
	root      *os.Root
	dir       string
	overwrite bool
}

// FileSinkOption configures a FileSink.
type FileSinkOption func(*FileSink)

// WithOverwrite replaces existing files. By default they are skipped.
func WithOverwrite(overwrite bool) FileSinkOption {
	return func(s *FileSink) {
		s.overwrite = overwrite
	}
}

// NewFileSink creates dir if needed and returns a sink writing into it.
// The caller must Close the sink.
func NewFileSink(dir string, opts ...FileSinkOption) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dir, err)
	}
	s := &FileSink{root: root, dir: dir}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the destination directory.
func (s *FileSink) Dir() string {
	return s.dir
}

// Close releases the destination directory.
func (s *FileSink) Close() error {
	return s.root.Close()
}

// ShouldProcess returns false if the file exists and overwrite is disabled.
func (s *FileSink) ShouldProcess(name string) bool {
	if s.overwrite {
		return true
	}
	if !fs.ValidPath(name) {
		return true // Writer reports the bad name
	}
	_, err := s.root.Stat(filepath.FromSlash(name))
	return errors.Is(err, fs.ErrNotExist)
}

// Writer returns a Committer staging the item in a temp file.
func (s *FileSink) Writer(name string) (Committer, error) {
	if !fs.ValidPath(name) || name == "." {
		return nil, &fs.PathError{Op: "extract", Path: name, Err: fs.ErrInvalid}
	}
	rel := filepath.FromSlash(name)
	if dir := filepath.Dir(rel); dir != "." {
		if err := s.root.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	f, tmp, err := s.createTemp(filepath.Dir(rel), filepath.Base(rel))
	if err != nil {
		return nil, err
	}
	return &fileCommitter{sink: s, file: f, tmp: tmp, rel: rel}, nil
}

func (s *FileSink) createTemp(dir, base string) (*os.File, string, error) {
	const attempts = 10
	for range attempts {
		tmp := filepath.Join(dir, "."+base+"-"+uuid.NewString()+".tmp")
		f, err := s.root.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			return f, tmp, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("create temp file: %w", err)
		}
	}
	return nil, "", errors.New("create temp file: exhausted retries")
}

// fileCommitter writes to a temp file and renames it on Commit.
type fileCommitter struct {
	sink *FileSink
	file *os.File
	tmp  string
	rel  string
}

func (c *fileCommitter) Write(p []byte) (int, error) {
	return c.file.Write(p)
}

func (c *fileCommitter) Commit() error {
	if err := c.file.Close(); err != nil {
		_ = c.sink.root.Remove(c.tmp)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := c.sink.root.Rename(c.tmp, c.rel); err != nil {
		_ = c.sink.root.Remove(c.tmp)
		return fmt.Errorf("rename to %s: %w", c.rel, err)
	}
	return nil
}

func (c *fileCommitter) Discard() error {
	_ = c.file.Close()
	return c.sink.root.Remove(c.tmp)
}
