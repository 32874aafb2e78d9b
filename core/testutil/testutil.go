// Package testutil builds in-memory containers and textures for tests.
package testutil

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/meigma/astedit/core/internal/asttype"
	"github.com/meigma/astedit/core/internal/deflate"
	"github.com/meigma/astedit/core/internal/toc"
)

// MockByteSource implements a simple in-memory byte source for tests.
type MockByteSource struct {
	data []byte
}

// NewMockByteSource returns a byte source backed by the provided data.
func NewMockByteSource(data []byte) *MockByteSource {
	return &MockByteSource{data: data}
}

// ReadAt implements io.ReaderAt semantics over the backing slice.
func (m *MockByteSource) ReadAt(p []byte, off int64) (int, error) {
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

// Item is one entry of a test container.
type Item struct {
	ID          uint64
	Content     []byte
	Compress    bool
	Description string
}

// Leaf returns an uncompressed item.
func Leaf(content []byte) Item {
	return Item{Content: content}
}

// Deflated returns an item stored zlib-compressed.
func Deflated(content []byte) Item {
	return Item{Content: content, Compress: true}
}

// DefaultHeader is the header template used by Container: 16-byte alignment,
// four-byte fields and one-byte description prefixes.
func DefaultHeader() toc.Header {
	return toc.Header{
		Version:     [3]byte{0x00, 0x01, 0x03},
		Flags:       0x00000102,
		Shift:       4,
		IDWidth:     4,
		OffsetWidth: 4,
		SizeWidth:   4,
		USizeWidth:  4,
		DescWidth:   1,
	}
}

// Container builds a container with DefaultHeader. Item IDs default to
// 0x1000 plus the item index.
func Container(tb testing.TB, items ...Item) []byte {
	tb.Helper()
	return Build(tb, DefaultHeader(), items...)
}

// Build builds a container from a header template.
func Build(tb testing.TB, h toc.Header, items ...Item) []byte {
	tb.Helper()
	pool := deflate.NewPool(deflate.DefaultLevel)
	built := make([]toc.Item, len(items))
	for i, it := range items {
		id := it.ID
		if id == 0 {
			id = 0x1000 + uint64(i)
		}
		built[i] = toc.Item{ID: id, Payload: it.Content, Description: it.Description}
		if it.Compress {
			stored, err := pool.Compress(it.Content)
			if err != nil {
				tb.Fatalf("compress item %d: %v", i, err)
			}
			built[i].Payload = stored
			built[i].UncompressedSize = uint64(len(it.Content))
		}
	}
	data, err := toc.Build(h, built)
	if err != nil {
		tb.Fatalf("build container: %v", err)
	}
	return data
}

// Texture header layout (little-endian fields).
const (
	textureHeaderSize = 0x80
	textureHeight     = 0x0C
	textureWidth      = 0x10
	textureFourCC     = 0x54
	textureBitCount   = 0x58
)

// Texture returns a DDS or P3R payload of the given size and block format
// whose pixel data is a deterministic pattern.
func Texture(kind asttype.Kind, format asttype.TextureFormat, width, height int) []byte {
	blocks := ((width + 3) / 4) * ((height + 3) / 4)
	var size int
	switch format {
	case asttype.FormatDXT1:
		size = blocks * 8
	case asttype.FormatDXT3, asttype.FormatDXT5:
		size = blocks * 16
	default:
		size = width * height * 4
	}

	data := make([]byte, textureHeaderSize+size)
	switch kind {
	case asttype.KindP3R:
		copy(data, asttype.MagicP3R[:])
	default:
		copy(data, asttype.MagicDDS[:])
	}
	binary.LittleEndian.PutUint32(data[4:], 0x7C)
	binary.LittleEndian.PutUint32(data[textureHeight:], uint32(height)) //nolint:gosec // test sizes
	binary.LittleEndian.PutUint32(data[textureWidth:], uint32(width))   //nolint:gosec // test sizes
	switch format {
	case asttype.FormatDXT1, asttype.FormatDXT3, asttype.FormatDXT5:
		copy(data[textureFourCC:], "DXT"+format.String()[3:])
	default:
		binary.LittleEndian.PutUint32(data[textureBitCount:], 32)
	}
	copy(data[textureHeaderSize:], Pattern(size, byte(width)))
	return data
}

// Pattern returns n deterministic bytes derived from seed.
func Pattern(n int, seed byte) []byte {
	out := make([]byte, n)
	x := uint32(seed) | 0x9E3779B1
	for i := range out {
		x ^= x << 13
		x ^= x >> 17
		x ^= x << 5
		out[i] = byte(x)
	}
	return out
}
