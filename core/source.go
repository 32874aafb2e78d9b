package ast

import (
	"fmt"
	"io"
	"os"

	"github.com/meigma/astedit/core/internal/file"
)

// Source provides random access to one container's bytes.
//
// *bytes.Reader and *io.SectionReader satisfy Source directly; use OpenFile
// for files on disk.
type Source = file.Source

// FileSource is a Source backed by an open file.
type FileSource struct {
	f    *os.File
	size int64
}

// OpenFile opens path for reading as a Source.
// The caller must Close the returned source.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return &FileSource{f: f, size: info.Size()}, nil
}

// ReadAt implements io.ReaderAt.
func (s *FileSource) ReadAt(p []byte, off int64) (int, error) {
	return s.f.ReadAt(p, off)
}

// Size returns the file size at open time.
func (s *FileSource) Size() int64 {
	return s.size
}

// Name returns the path the source was opened with.
func (s *FileSource) Name() string {
	return s.f.Name()
}

// Close closes the underlying file.
func (s *FileSource) Close() error {
	return s.f.Close()
}

// readSource reads all of src into memory.
func readSource(src Source) ([]byte, error) {
	buf := make([]byte, src.Size())
	if _, err := io.ReadFull(io.NewSectionReader(src, 0, src.Size()), buf); err != nil {
		return nil, fmt.Errorf("read container: %w", err)
	}
	return buf, nil
}
