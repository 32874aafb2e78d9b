package toc

import (
	"fmt"

	"github.com/meigma/astedit/core/internal/asttype"
	"github.com/meigma/astedit/core/internal/sizing"
)

// Replacement describes the new stored form of one entry.
type Replacement struct {
	// Index is the TOC index being replaced.
	Index int

	// Payload is the new stored payload (already deflated when compressed).
	Payload []byte

	// UncompressedSize is written to the record's uncompressed size field.
	// It must be zero when the container has no such field.
	UncompressedSize uint64
}

// span is the byte range an entry owns: its payload followed by the gap up
// to the next entry's start (or the end of the container).
type span struct {
	start, end uint64
}

// Rewrite returns a copy of the container src with one entry's payload
// replaced. Every byte outside the replaced payload is reproduced: the header
// and TOC are copied and only the affected offset, size and length fields are
// patched, and every other entry keeps its payload and trailing gap.
//
// When the new payload has the same length as the old one, the old gap is
// kept as well, so rewriting an entry with its own bytes returns src unchanged.
// Otherwise the gap becomes zero padding up to the container's alignment and
// every later entry moves by the size difference.
func Rewrite(src []byte, t *TOC, rep Replacement) ([]byte, error) {
	if rep.Index < 0 || rep.Index >= len(t.Records) {
		return nil, fmt.Errorf("%w: index %d of %d", asttype.ErrNotFound, rep.Index, len(t.Records))
	}
	if int64(len(src)) != t.Size {
		return nil, fmt.Errorf("%w: toc decoded for %d bytes, got %d", asttype.ErrMalformed, t.Size, len(src))
	}
	h := &t.Header
	if rep.UncompressedSize != 0 && h.USizeWidth == 0 {
		return nil, fmt.Errorf("%w: container has no uncompressed size field", asttype.ErrSizeOverflow)
	}

	spans, err := layout(t, uint64(len(src)))
	if err != nil {
		return nil, err
	}

	align := h.Alignment()
	first := spans[0].start
	out := make([]byte, 0, len(src)+len(rep.Payload))
	out = append(out, src[:first]...)

	starts := make([]uint64, len(t.Records))
	for i, sp := range spans {
		starts[i] = uint64(len(out))
		if i != rep.Index {
			out = append(out, src[sp.start:sp.end]...)
			continue
		}
		rec := &t.Records[i]
		out = append(out, rep.Payload...)
		if uint64(len(rep.Payload)) == rec.Size {
			out = append(out, src[rec.End():sp.end]...)
			continue
		}
		if pad := (align - uint64(len(out))%align) % align; pad > 0 {
			out = append(out, make([]byte, pad)...)
		}
	}

	for i := range t.Records {
		rec := &t.Records[i]
		offPos, sizePos, usizePos := h.fieldPos(rec)
		if starts[i] != rec.Start {
			if err := putField(out, offPos, int(h.OffsetWidth), starts[i]>>h.Shift, "offset", i); err != nil {
				return nil, err
			}
		}
		if i != rep.Index {
			continue
		}
		if err := putField(out, sizePos, int(h.SizeWidth), uint64(len(rep.Payload)), "size", i); err != nil {
			return nil, err
		}
		if h.USizeWidth > 0 {
			if err := putField(out, usizePos, int(h.USizeWidth), rep.UncompressedSize, "uncompressed size", i); err != nil {
				return nil, err
			}
		}
	}

	// The length field is only maintained when it tracked the real length.
	if uint64(h.Length) == uint64(len(src)) {
		if err := putField(out, lengthOffset, 4, uint64(len(out)), "archive length", -1); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// layout computes the span every entry owns and checks that payloads are
// stored in TOC order after the header and TOC.
func layout(t *TOC, total uint64) ([]span, error) {
	n := len(t.Records)
	spans := make([]span, n)
	tocEnd := uint64(t.Header.TOCOffset) + uint64(t.Header.TOCLength)
	for i := range t.Records {
		rec := &t.Records[i]
		end := total
		if i+1 < n {
			end = t.Records[i+1].Start
		}
		if rec.Start < tocEnd {
			return nil, fmt.Errorf("%w: entry %d starts inside the header or toc", asttype.ErrMalformed, i)
		}
		if rec.Start > end || rec.End() > end {
			return nil, fmt.Errorf("%w: entry %d overlaps the next entry or is out of toc order", asttype.ErrMalformed, i)
		}
		spans[i] = span{start: rec.Start, end: end}
	}
	return spans, nil
}

func putField(buf []byte, pos, width int, v uint64, name string, index int) error {
	if !sizing.Fits(v, width) {
		return fmt.Errorf("%w: %s %d of entry %d does not fit %d bytes", asttype.ErrSizeOverflow, name, v, index, width)
	}
	sizing.PutUint(buf[pos:pos+width], v)
	return nil
}
