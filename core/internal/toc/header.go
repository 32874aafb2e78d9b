// Package toc decodes container headers and tables of contents, and rewrites
// containers with one entry's payload replaced.
package toc

import (
	"encoding/binary"
	"fmt"

	"github.com/meigma/astedit/core/internal/asttype"
	"github.com/meigma/astedit/core/internal/sizing"
)

// Magic identifies a container header.
var Magic = [5]byte{'B', 'G', 'F', 'A', '1'}

// HeaderSize is the fixed binary size of a container header.
const HeaderSize = 0x30

// lengthOffset is the position of the archive length field.
const lengthOffset = 0x24

// maxShift bounds the alignment shift; larger values cannot describe real files.
const maxShift = 31

// Header is the fixed-layout region at the start of every container.
// Version, Flags, DataOffset and the reserved bytes are not interpreted and are
// written back exactly as read.
type Header struct {
	Magic       [5]byte
	Version     [3]byte
	Flags       uint32
	Count       uint32
	TOCOffset   uint32
	TOCLength   uint32
	DataOffset  uint32
	Shift       uint8
	IDWidth     uint8
	OffsetWidth uint8
	SizeWidth   uint8
	USizeWidth  uint8 // 0: no uncompressed size field, nothing is compressed
	DescWidth   uint8 // 0: no descriptions
	Reserved1   [2]byte
	Length      uint32
	Reserved2   [8]byte
}

// Alignment returns the payload alignment in bytes.
func (h *Header) Alignment() uint64 {
	return uint64(1) << h.Shift
}

// FixedRecordSize returns the size of a TOC record excluding description bytes.
func (h *Header) FixedRecordSize() int {
	return int(h.IDWidth) + int(h.OffsetWidth) + int(h.SizeWidth) + int(h.USizeWidth) + int(h.DescWidth)
}

// Validate checks the header for validity.
func (h *Header) Validate() error {
	if h.Magic != Magic {
		return fmt.Errorf("%w: invalid magic %q", asttype.ErrMalformed, h.Magic[:])
	}
	if h.OffsetWidth == 0 || h.OffsetWidth > sizing.MaxWidth {
		return fmt.Errorf("%w: offset width %d", asttype.ErrMalformed, h.OffsetWidth)
	}
	if h.SizeWidth == 0 || h.SizeWidth > sizing.MaxWidth {
		return fmt.Errorf("%w: size width %d", asttype.ErrMalformed, h.SizeWidth)
	}
	if h.IDWidth > sizing.MaxWidth || h.USizeWidth > sizing.MaxWidth {
		return fmt.Errorf("%w: field width out of range", asttype.ErrMalformed)
	}
	if h.DescWidth > 2 {
		return fmt.Errorf("%w: description width %d", asttype.ErrMalformed, h.DescWidth)
	}
	if h.Shift > maxShift {
		return fmt.Errorf("%w: offset shift %d", asttype.ErrMalformed, h.Shift)
	}
	return nil
}

// EncodeTo writes the header to the given buffer.
// The buffer must be at least HeaderSize bytes.
func (h *Header) EncodeTo(buf []byte) {
	copy(buf[0x00:0x05], h.Magic[:])
	copy(buf[0x05:0x08], h.Version[:])
	binary.BigEndian.PutUint32(buf[0x08:0x0C], h.Flags)
	binary.BigEndian.PutUint32(buf[0x0C:0x10], h.Count)
	binary.BigEndian.PutUint32(buf[0x10:0x14], h.TOCOffset)
	binary.BigEndian.PutUint32(buf[0x14:0x18], h.TOCLength)
	binary.BigEndian.PutUint32(buf[0x18:0x1C], h.DataOffset)
	buf[0x1C] = h.Shift
	buf[0x1D] = h.IDWidth
	buf[0x1E] = h.OffsetWidth
	buf[0x1F] = h.SizeWidth
	buf[0x20] = h.USizeWidth
	buf[0x21] = h.DescWidth
	copy(buf[0x22:0x24], h.Reserved1[:])
	binary.BigEndian.PutUint32(buf[lengthOffset:lengthOffset+4], h.Length)
	copy(buf[0x28:0x30], h.Reserved2[:])
}

// UnmarshalBinary decodes and validates the header.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("%w: header needs %d bytes, got %d", asttype.ErrMalformed, HeaderSize, len(data))
	}
	h.DecodeFrom(data)
	return h.Validate()
}

// DecodeFrom reads the header from the given buffer.
// Does not validate - use UnmarshalBinary for validation.
func (h *Header) DecodeFrom(data []byte) {
	copy(h.Magic[:], data[0x00:0x05])
	copy(h.Version[:], data[0x05:0x08])
	h.Flags = binary.BigEndian.Uint32(data[0x08:0x0C])
	h.Count = binary.BigEndian.Uint32(data[0x0C:0x10])
	h.TOCOffset = binary.BigEndian.Uint32(data[0x10:0x14])
	h.TOCLength = binary.BigEndian.Uint32(data[0x14:0x18])
	h.DataOffset = binary.BigEndian.Uint32(data[0x18:0x1C])
	h.Shift = data[0x1C]
	h.IDWidth = data[0x1D]
	h.OffsetWidth = data[0x1E]
	h.SizeWidth = data[0x1F]
	h.USizeWidth = data[0x20]
	h.DescWidth = data[0x21]
	copy(h.Reserved1[:], data[0x22:0x24])
	h.Length = binary.BigEndian.Uint32(data[lengthOffset : lengthOffset+4])
	copy(h.Reserved2[:], data[0x28:0x30])
}
