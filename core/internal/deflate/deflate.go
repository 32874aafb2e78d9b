// Package deflate wraps zlib streams for entry payloads.
package deflate

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"

	"github.com/meigma/astedit/core/internal/asttype"
	"github.com/meigma/astedit/core/internal/sizing"
)

// DefaultLevel matches the zlib default used by the game's own packer.
const DefaultLevel = zlib.DefaultCompression

// Pool keeps zlib writers for reuse. The zero value is not usable; use NewPool.
type Pool struct {
	level int
	pool  sync.Pool
}

// NewPool creates a writer pool for the given compression level.
// Out-of-range levels fall back to DefaultLevel.
func NewPool(level int) *Pool {
	if level < zlib.HuffmanOnly || level > zlib.BestCompression {
		level = DefaultLevel
	}
	p := &Pool{level: level}
	p.pool.New = func() any {
		w, err := zlib.NewWriterLevel(io.Discard, p.level)
		if err != nil {
			return nil
		}
		return w
	}
	return p
}

// Level returns the pool's compression level.
func (p *Pool) Level() int {
	return p.level
}

// Compress deflates data into a zlib stream.
func (p *Pool) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(data)/2 + 64)

	w, _ := p.pool.Get().(*zlib.Writer)
	if w == nil {
		var err error
		if w, err = zlib.NewWriterLevel(&buf, p.level); err != nil {
			return nil, fmt.Errorf("deflate: %w", err)
		}
	} else {
		w.Reset(&buf)
	}
	defer func() {
		w.Reset(io.Discard)
		p.pool.Put(w)
	}()

	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	return buf.Bytes(), nil
}

// NewReader returns a reader that inflates the zlib stream in r.
// Header errors are reported as ErrDecompression.
func NewReader(r io.Reader) (io.ReadCloser, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", asttype.ErrDecompression, err)
	}
	return &reader{zr: zr}, nil
}

// reader maps stream failures onto ErrDecompression while leaving io.EOF intact.
type reader struct {
	zr io.ReadCloser
}

func (r *reader) Read(p []byte) (int, error) {
	n, err := r.zr.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		err = fmt.Errorf("%w: %w", asttype.ErrDecompression, err)
	}
	return n, err
}

func (r *reader) Close() error {
	return r.zr.Close()
}

// Decompress inflates a complete zlib stream, reading at most maxSize output
// bytes (zero disables the limit).
func Decompress(data []byte, maxSize uint64) ([]byte, error) {
	zr, err := NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return sizing.ReadAllWithLimit(zr, maxSize, asttype.ErrSizeOverflow)
}
