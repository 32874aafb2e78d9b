// Package file reads entry payloads out of a container source.
package file

import (
	"errors"
	"fmt"
	"io"

	"github.com/meigma/astedit/core/internal/asttype"
	"github.com/meigma/astedit/core/internal/deflate"
	"github.com/meigma/astedit/core/internal/sizing"
)

// DefaultMaxEntrySize is the default limit on a single stored or inflated
// payload (512MB).
const DefaultMaxEntrySize = 512 << 20

// Source provides random access to one container's bytes.
type Source interface {
	io.ReaderAt
	Size() int64
}

// Reader opens entry payloads from a Source.
type Reader struct {
	source       Source
	maxEntrySize uint64
}

// Option configures a Reader.
type Option func(*Reader)

// WithMaxEntrySize sets the maximum entry size limit.
// Set to 0 to disable the limit.
func WithMaxEntrySize(limit uint64) Option {
	return func(r *Reader) {
		r.maxEntrySize = limit
	}
}

// NewReader creates a Reader for entries stored in source.
func NewReader(source Source, opts ...Option) *Reader {
	r := &Reader{
		source:       source,
		maxEntrySize: DefaultMaxEntrySize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Raw returns a reader bounded to the entry's stored bytes.
func (r *Reader) Raw(entry *asttype.Entry) (*io.SectionReader, error) {
	if err := ValidateForRead(entry, r.source.Size(), r.maxEntrySize); err != nil {
		return nil, fmt.Errorf("entry %d: %w", entry.Index, err)
	}
	offset, err := sizing.ToInt64(entry.Start, asttype.ErrSizeOverflow)
	if err != nil {
		return nil, err
	}
	length, err := sizing.ToInt64(entry.RawSize, asttype.ErrSizeOverflow)
	if err != nil {
		return nil, err
	}
	return io.NewSectionReader(r.source, offset, length), nil
}

// Open returns the entry payload. Compressed entries are inflated when
// inflate is true; uncompressed entries are never passed through the inflater.
func (r *Reader) Open(entry *asttype.Entry, inflate bool) (io.ReadCloser, error) {
	section, err := r.Raw(entry)
	if err != nil {
		return nil, err
	}
	if !inflate || !entry.Compressed() {
		return io.NopCloser(section), nil
	}
	zr, err := deflate.NewReader(section)
	if err != nil {
		return nil, fmt.Errorf("entry %d: %w", entry.Index, err)
	}
	return zr, nil
}

// ReadAll reads the whole payload, inflated when the entry is compressed.
func (r *Reader) ReadAll(entry *asttype.Entry) ([]byte, error) {
	rc, err := r.Open(entry, true)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := sizing.ReadAllWithLimit(rc, r.maxEntrySize, asttype.ErrSizeOverflow)
	if err != nil {
		return nil, fmt.Errorf("read entry %d: %w", entry.Index, err)
	}
	if entry.Compressed() && uint64(len(data)) != entry.UncompressedSize {
		return nil, fmt.Errorf("%w: entry %d inflated to %d bytes, toc declares %d",
			asttype.ErrDecompression, entry.Index, len(data), entry.UncompressedSize)
	}
	return data, nil
}

// ReadStored returns the entry's stored bytes without inflating them.
func (r *Reader) ReadStored(entry *asttype.Entry) ([]byte, error) {
	section, err := r.Raw(entry)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, section.Size())
	if _, err := io.ReadFull(section, buf); err != nil {
		return nil, fmt.Errorf("read entry %d: %w", entry.Index, err)
	}
	return buf, nil
}

// Head returns up to n leading bytes of the inflated payload. Payloads
// shorter than n are returned whole.
func (r *Reader) Head(entry *asttype.Entry, n int) ([]byte, error) {
	rc, err := r.Open(entry, true)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	buf := make([]byte, n)
	got, err := io.ReadFull(rc, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read entry %d: %w", entry.Index, err)
	}
	return buf[:got], nil
}
