package toc

import (
	"fmt"

	"github.com/meigma/astedit/core/internal/asttype"
	"github.com/meigma/astedit/core/internal/sizing"
)

// Item is one entry handed to Build.
type Item struct {
	ID               uint64
	Payload          []byte // stored form
	UncompressedSize uint64
	Description      string
}

// Build lays out a new container: header, TOC, then each payload aligned to
// the header's shift. Count, TOCOffset, TOCLength, DataOffset and Length are
// computed; every other header field is taken from h.
func Build(h Header, items []Item) ([]byte, error) {
	h.Magic = Magic
	h.Count = uint32(len(items)) //nolint:gosec // bounded by toc length check below
	if err := h.Validate(); err != nil {
		return nil, err
	}

	tocLen := 0
	for _, it := range items {
		if h.DescWidth == 0 && it.Description != "" {
			return nil, fmt.Errorf("%w: descriptions need a description width", asttype.ErrSizeOverflow)
		}
		tocLen += h.FixedRecordSize() + len(it.Description)
	}
	h.TOCOffset = HeaderSize
	h.TOCLength = uint32(tocLen) //nolint:gosec // test and tool sized inputs

	align := h.Alignment()
	pos := alignUp(uint64(HeaderSize+tocLen), align)
	h.DataOffset = uint32(pos) //nolint:gosec // test and tool sized inputs

	starts := make([]uint64, len(items))
	for i, it := range items {
		starts[i] = pos
		pos = alignUp(pos+uint64(len(it.Payload)), align)
	}
	if !sizing.Fits(pos, 4) {
		return nil, fmt.Errorf("%w: container of %d bytes", asttype.ErrSizeOverflow, pos)
	}
	h.Length = uint32(pos)

	out := make([]byte, pos)
	h.EncodeTo(out)

	rp := HeaderSize
	for i, it := range items {
		fields := []struct {
			width uint8
			v     uint64
		}{
			{h.IDWidth, it.ID},
			{h.OffsetWidth, starts[i] >> h.Shift},
			{h.SizeWidth, uint64(len(it.Payload))},
			{h.USizeWidth, it.UncompressedSize},
			{h.DescWidth, uint64(len(it.Description))},
		}
		for _, f := range fields {
			if err := putField(out, rp, int(f.width), f.v, "field", i); err != nil {
				return nil, err
			}
			rp += int(f.width)
		}
		rp += copy(out[rp:], it.Description)
		copy(out[starts[i]:], it.Payload)
	}
	return out, nil
}

func alignUp(v, align uint64) uint64 {
	if rem := v % align; rem != 0 {
		return v + align - rem
	}
	return v
}
