package preview

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"image/jpeg"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/astedit/core/internal/asttype"
	"github.com/meigma/astedit/core/testutil"
)

// solidBC1 returns a DXT1 texture whose every block selects color0.
func solidBC1(width, height int, c0 uint16) []byte {
	data := testutil.Texture(asttype.KindDDS, asttype.FormatDXT1, width, height)
	pix := data[dataOffset:]
	for o := 0; o+8 <= len(pix); o += 8 {
		binary.LittleEndian.PutUint16(pix[o:], c0)
		binary.LittleEndian.PutUint16(pix[o+2:], 0)
		binary.LittleEndian.PutUint32(pix[o+4:], 0)
	}
	return data
}

func TestParseHeader(t *testing.T) {
	t.Parallel()

	h, err := ParseHeader(testutil.Texture(asttype.KindP3R, asttype.FormatDXT5, 64, 32))
	require.NoError(t, err)
	assert.Equal(t, 64, h.Width)
	assert.Equal(t, 32, h.Height)
	assert.Equal(t, asttype.FormatDXT5, h.Format)
	assert.Equal(t, 16*8*16, h.MipSize())

	h, err = ParseHeader(testutil.Texture(asttype.KindDDS, asttype.FormatNone, 4, 2))
	require.NoError(t, err)
	assert.Equal(t, 4*2*4, h.MipSize())
}

func TestParseHeaderErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"short", func(b []byte) []byte { return b[:dataOffset-1] }},
		{"zero width", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[widthOffset:], 0)
			return b
		}},
		{"zero height", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[heightOffset:], 0)
			return b
		}},
		{"huge", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[widthOffset:], maxDimension+1)
			return b
		}},
		{"24-bit", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[bitCountOffset:], 24)
			return b
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			data := tt.mutate(testutil.Texture(asttype.KindDDS, asttype.FormatNone, 8, 8))
			_, err := ParseHeader(data)
			require.ErrorIs(t, err, asttype.ErrPreview)
		})
	}
}

func TestDecodeBC1Solid(t *testing.T) {
	t.Parallel()

	// Pure red in 5:6:5.
	img, err := Decode(solidBC1(8, 8, 0xF800))
	require.NoError(t, err)
	require.Equal(t, 8, img.Bounds().Dx())

	for _, p := range [][2]int{{0, 0}, {7, 7}, {3, 5}} {
		c := img.NRGBAAt(p[0], p[1])
		assert.Equal(t, uint8(255), c.R)
		assert.Equal(t, uint8(0), c.G)
		assert.Equal(t, uint8(0), c.B)
		assert.Equal(t, uint8(255), c.A)
	}
}

func TestDecodeBC1PunchThrough(t *testing.T) {
	t.Parallel()

	data := testutil.Texture(asttype.KindDDS, asttype.FormatDXT1, 4, 4)
	pix := data[dataOffset:]
	binary.LittleEndian.PutUint16(pix[0:], 0x0000)
	binary.LittleEndian.PutUint16(pix[2:], 0xFFFF)
	binary.LittleEndian.PutUint32(pix[4:], 0xFFFFFFFF) // every texel selects index 3

	img, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), img.NRGBAAt(1, 1).A)
}

func TestDecodeBC2Alpha(t *testing.T) {
	t.Parallel()

	data := testutil.Texture(asttype.KindDDS, asttype.FormatDXT3, 4, 4)
	pix := data[dataOffset:]
	binary.LittleEndian.PutUint64(pix[0:], 0x8888888888888888)
	binary.LittleEndian.PutUint16(pix[8:], 0x001F) // blue
	binary.LittleEndian.PutUint16(pix[10:], 0)
	binary.LittleEndian.PutUint32(pix[12:], 0)

	img, err := Decode(data)
	require.NoError(t, err)
	c := img.NRGBAAt(2, 2)
	assert.Equal(t, uint8(0x88), c.A)
	assert.Equal(t, uint8(255), c.B)
}

func TestDecodeBC3Alpha(t *testing.T) {
	t.Parallel()

	data := testutil.Texture(asttype.KindP3R, asttype.FormatDXT5, 4, 4)
	pix := data[dataOffset:]
	pix[0], pix[1] = 200, 100
	for i := 2; i < 8; i++ {
		pix[i] = 0 // every texel selects alpha0
	}

	img, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, uint8(200), img.NRGBAAt(0, 3).A)
}

func TestDecodeBGRA(t *testing.T) {
	t.Parallel()

	data := testutil.Texture(asttype.KindDDS, asttype.FormatNone, 2, 1)
	copy(data[dataOffset:], []byte{0x10, 0x20, 0x30, 0x40, 0x50, 0x60, 0x70, 0x80})

	img, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x30, 0x20, 0x10, 0x40, 0x70, 0x60, 0x50, 0x80}, img.Pix)
}

func TestDecodeTruncatedMip(t *testing.T) {
	t.Parallel()

	data := testutil.Texture(asttype.KindDDS, asttype.FormatDXT1, 16, 16)
	_, err := Decode(data[:len(data)-1])
	require.ErrorIs(t, err, asttype.ErrPreview)
}

func TestRender(t *testing.T) {
	t.Parallel()

	r := NewRenderer(WithMaxSize(32))
	uri, err := r.Render(solidBC1(256, 64, 0x07E0))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, MediaPrefix))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, MediaPrefix))
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 8, img.Bounds().Dy())
}

func TestRenderSmallTextureKeepsSize(t *testing.T) {
	t.Parallel()

	r := NewRenderer(WithCache(nil))
	uri, err := r.Render(testutil.Texture(asttype.KindDDS, asttype.FormatDXT5, 8, 4))
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, MediaPrefix))
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Width)
	assert.Equal(t, 4, cfg.Height)
	assert.Nil(t, r.Cache())
}

func TestRenderError(t *testing.T) {
	t.Parallel()

	r := NewRenderer()
	_, err := r.Render([]byte("DDS short"))
	require.ErrorIs(t, err, asttype.ErrPreview)
	assert.Zero(t, r.Cache().Len(), "failures are not cached")
}

func TestCacheDeduplicates(t *testing.T) {
	t.Parallel()

	cache := NewCache(4)
	r := NewRenderer(WithCache(cache))
	data := solidBC1(16, 16, 0x001F)

	const workers = 8
	uris := make([]string, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			uri, err := r.Render(data)
			assert.NoError(t, err)
			uris[i] = uri
		}()
	}
	wg.Wait()

	for _, uri := range uris {
		assert.Equal(t, uris[0], uri)
	}
	assert.Equal(t, 1, cache.Len())

	_, err := r.Render(bytes.Clone(data))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, cache.Stats().Hits, int64(1))
}

func TestCacheEvicts(t *testing.T) {
	t.Parallel()

	cache := NewCache(2)
	calls := 0
	render := func(b []byte) (string, error) {
		calls++
		return string(b), nil
	}
	for _, key := range []string{"a", "b", "c", "a"} {
		_, err := cache.GetOrRender([]byte(key), render)
		require.NoError(t, err)
	}
	assert.Equal(t, 4, calls, "a was evicted by c")
	assert.Equal(t, 2, cache.Len())
}
