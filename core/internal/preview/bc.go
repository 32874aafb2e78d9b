package preview

import (
	"encoding/binary"
	"fmt"
	"image"

	"github.com/meigma/astedit/core/internal/asttype"
)

// Decode returns the first mip of the texture in data as an NRGBA image.
func Decode(data []byte) (*image.NRGBA, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	pix := data[dataOffset:]
	if len(pix) < h.MipSize() {
		return nil, fmt.Errorf("%w: %s mip needs %d bytes, got %d", asttype.ErrPreview, h.Format, h.MipSize(), len(pix))
	}

	switch h.Format {
	case asttype.FormatDXT1:
		return decodeBlocks(pix, h.Width, h.Height, 8, decodeBC1Block), nil
	case asttype.FormatDXT3:
		return decodeBlocks(pix, h.Width, h.Height, 16, decodeBC2Block), nil
	case asttype.FormatDXT5:
		return decodeBlocks(pix, h.Width, h.Height, 16, decodeBC3Block), nil
	default:
		return decodeBGRA(pix, h.Width, h.Height), nil
	}
}

// block is a decoded 4x4 texel block in row-major RGBA order.
type block [16][4]uint8

type blockDecoder func(src []byte, dst *block)

func decodeBlocks(data []byte, width, height, blockSize int, dec blockDecoder) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	blockW := (width + 3) / 4
	blockH := (height + 3) / 4

	var b block
	offset := 0
	for by := 0; by < blockH; by++ {
		for bx := 0; bx < blockW; bx++ {
			dec(data[offset:offset+blockSize], &b)
			offset += blockSize

			for py := 0; py < 4; py++ {
				for px := 0; px < 4; px++ {
					x, y := bx*4+px, by*4+py
					if x >= width || y >= height {
						continue
					}
					o := img.PixOffset(x, y)
					copy(img.Pix[o:o+4], b[py*4+px][:])
				}
			}
		}
	}
	return img
}

// rgb565 expands a packed 5:6:5 color to 8 bits per channel.
func rgb565(c uint16) [3]uint8 {
	r := (c >> 11) & 0x1F
	g := (c >> 5) & 0x3F
	bl := c & 0x1F
	return [3]uint8{
		uint8((r << 3) | (r >> 2)),
		uint8((g << 2) | (g >> 4)),
		uint8((bl << 3) | (bl >> 2)),
	}
}

// colorTable decodes the 8-byte color half of a BC1/BC2/BC3 block into its
// four-entry palette and per-texel indices. When fourColor is false and
// c0 <= c1, index 3 is transparent black (BC1 punch-through alpha).
func colorTable(src []byte, fourColor bool) (palette [4][4]uint8, indices uint32) {
	c0 := binary.LittleEndian.Uint16(src[0:])
	c1 := binary.LittleEndian.Uint16(src[2:])
	a, b := rgb565(c0), rgb565(c1)

	palette[0] = [4]uint8{a[0], a[1], a[2], 255}
	palette[1] = [4]uint8{b[0], b[1], b[2], 255}
	if fourColor || c0 > c1 {
		for i := 0; i < 3; i++ {
			palette[2][i] = uint8((2*int(a[i]) + int(b[i])) / 3)
			palette[3][i] = uint8((int(a[i]) + 2*int(b[i])) / 3)
		}
		palette[2][3], palette[3][3] = 255, 255
	} else {
		for i := 0; i < 3; i++ {
			palette[2][i] = uint8((int(a[i]) + int(b[i])) / 2)
		}
		palette[2][3] = 255
		palette[3] = [4]uint8{0, 0, 0, 0}
	}
	return palette, binary.LittleEndian.Uint32(src[4:])
}

func decodeBC1Block(src []byte, dst *block) {
	palette, indices := colorTable(src, false)
	for i := range dst {
		dst[i] = palette[(indices>>(2*i))&3]
	}
}

// decodeBC2Block decodes DXT3: 64 bits of explicit 4-bit alpha, then a color block.
func decodeBC2Block(src []byte, dst *block) {
	palette, indices := colorTable(src[8:], true)
	alpha := binary.LittleEndian.Uint64(src[0:])
	for i := range dst {
		dst[i] = palette[(indices>>(2*i))&3]
		a := uint8((alpha >> (4 * i)) & 0xF)
		dst[i][3] = a<<4 | a
	}
}

// decodeBC3Block decodes DXT5: two alpha endpoints with 3-bit interpolated
// indices, then a color block.
func decodeBC3Block(src []byte, dst *block) {
	a0, a1 := src[0], src[1]
	var alphas [8]uint8
	alphas[0], alphas[1] = a0, a1
	if a0 > a1 {
		for i := 2; i < 8; i++ {
			alphas[i] = uint8((int(a0)*(8-i) + int(a1)*(i-1)) / 7)
		}
	} else {
		for i := 2; i < 6; i++ {
			alphas[i] = uint8((int(a0)*(6-i) + int(a1)*(i-1)) / 5)
		}
		alphas[6], alphas[7] = 0, 255
	}
	var alphaIndices uint64
	for i := 0; i < 6; i++ {
		alphaIndices |= uint64(src[2+i]) << (8 * i)
	}

	palette, indices := colorTable(src[8:], true)
	for i := range dst {
		dst[i] = palette[(indices>>(2*i))&3]
		dst[i][3] = alphas[(alphaIndices>>(3*i))&7]
	}
}

// decodeBGRA swaps the red and blue channels of a 32-bit BGRA mip.
func decodeBGRA(data []byte, width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	n := width * height * 4
	for o := 0; o < n; o += 4 {
		img.Pix[o+0] = data[o+2]
		img.Pix[o+1] = data[o+1]
		img.Pix[o+2] = data[o+0]
		img.Pix[o+3] = data[o+3]
	}
	return img
}
