// Package preview decodes DDS and P3R textures and renders small lossy
// previews of them as data URIs.
package preview

import (
	"encoding/binary"
	"fmt"

	"github.com/meigma/astedit/core/internal/asttype"
	"github.com/meigma/astedit/core/internal/sniff"
)

// Texture header layout shared by DDS and P3R payloads (little-endian).
const (
	heightOffset   = 0x0C
	widthOffset    = 0x10
	bitCountOffset = 0x58
	dataOffset     = 0x80

	// maxDimension rejects headers that cannot describe a real texture.
	maxDimension = 1 << 14
)

// Header is the part of a texture header needed to decode its first mip.
type Header struct {
	Width    int
	Height   int
	Format   asttype.TextureFormat
	BitCount uint32
}

// ParseHeader reads the texture header at the start of data.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < dataOffset {
		return Header{}, fmt.Errorf("%w: texture header needs %d bytes, got %d", asttype.ErrPreview, dataOffset, len(data))
	}
	h := Header{
		Height:   int(binary.LittleEndian.Uint32(data[heightOffset:])),
		Width:    int(binary.LittleEndian.Uint32(data[widthOffset:])),
		Format:   sniff.Format(data),
		BitCount: binary.LittleEndian.Uint32(data[bitCountOffset:]),
	}
	if h.Width <= 0 || h.Height <= 0 || h.Width > maxDimension || h.Height > maxDimension {
		return Header{}, fmt.Errorf("%w: invalid dimensions %dx%d", asttype.ErrPreview, h.Width, h.Height)
	}
	if h.Format == asttype.FormatNone && h.BitCount != 32 {
		return Header{}, fmt.Errorf("%w: unsupported %d-bit uncompressed layout", asttype.ErrPreview, h.BitCount)
	}
	return h, nil
}

// MipSize returns the byte length of the first mip level.
func (h Header) MipSize() int {
	blocks := ((h.Width + 3) / 4) * ((h.Height + 3) / 4)
	switch h.Format {
	case asttype.FormatDXT1:
		return blocks * 8
	case asttype.FormatDXT3, asttype.FormatDXT5:
		return blocks * 16
	default:
		return h.Width * h.Height * 4
	}
}
