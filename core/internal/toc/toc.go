package toc

import (
	"fmt"
	"io"

	"github.com/meigma/astedit/core/internal/asttype"
	"github.com/meigma/astedit/core/internal/sizing"
)

// Record is one decoded TOC record.
type Record struct {
	// Index is the record's TOC position.
	Index int

	// Pos is the byte offset of the record inside the container.
	Pos int

	ID               uint64
	Start            uint64 // absolute payload offset (stored offset << shift)
	Size             uint64
	UncompressedSize uint64
	Description      string
}

// End returns the offset one past the payload.
func (r *Record) End() uint64 {
	return r.Start + r.Size
}

// TOC is a decoded header plus its records.
type TOC struct {
	Header  Header
	Records []Record

	// Size is the container length the TOC was decoded against.
	Size int64
}

// Decode reads the header and table of contents of the container in src.
// size is the container length; every payload must lie inside it.
func Decode(src io.ReaderAt, size int64) (*TOC, error) {
	if size < HeaderSize {
		return nil, fmt.Errorf("%w: container is %d bytes", asttype.ErrMalformed, size)
	}

	var hbuf [HeaderSize]byte
	if _, err := src.ReadAt(hbuf[:], 0); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	t := &TOC{Size: size}
	if err := t.Header.UnmarshalBinary(hbuf[:]); err != nil {
		return nil, err
	}
	h := &t.Header

	tocEnd := int64(h.TOCOffset) + int64(h.TOCLength)
	if int64(h.TOCOffset) < HeaderSize || tocEnd > size {
		return nil, fmt.Errorf("%w: toc [%d,%d) outside container of %d bytes",
			asttype.ErrMalformed, h.TOCOffset, tocEnd, size)
	}
	fixed := h.FixedRecordSize()
	if uint64(h.Count)*uint64(fixed) > uint64(h.TOCLength) {
		return nil, fmt.Errorf("%w: %d records do not fit %d toc bytes",
			asttype.ErrMalformed, h.Count, h.TOCLength)
	}

	raw := make([]byte, h.TOCLength)
	if _, err := src.ReadAt(raw, int64(h.TOCOffset)); err != nil {
		return nil, fmt.Errorf("read toc: %w", err)
	}

	t.Records = make([]Record, h.Count)
	pos := 0
	for i := range t.Records {
		rec, n, err := decodeRecord(h, raw[pos:])
		if err != nil {
			return nil, fmt.Errorf("toc record %d: %w", i, err)
		}
		rec.Index = i
		rec.Pos = int(h.TOCOffset) + pos
		end, ok := sizing.AddUint64(rec.Start, rec.Size)
		if !ok || end > uint64(size) {
			return nil, fmt.Errorf("%w: entry %d [%d,+%d) exceeds container of %d bytes",
				asttype.ErrMalformed, i, rec.Start, rec.Size, size)
		}
		t.Records[i] = rec
		pos += n
	}
	return t, nil
}

func decodeRecord(h *Header, b []byte) (Record, int, error) {
	fixed := h.FixedRecordSize()
	if len(b) < fixed {
		return Record{}, 0, fmt.Errorf("%w: truncated record", asttype.ErrMalformed)
	}

	var rec Record
	off := 0
	field := func(width uint8) uint64 {
		v := sizing.Uint(b[off : off+int(width)])
		off += int(width)
		return v
	}
	rec.ID = field(h.IDWidth)
	stored := field(h.OffsetWidth)
	rec.Size = field(h.SizeWidth)
	rec.UncompressedSize = field(h.USizeWidth)
	descLen := int(field(h.DescWidth))

	if stored > ^uint64(0)>>h.Shift {
		return Record{}, 0, fmt.Errorf("%w: offset overflows", asttype.ErrMalformed)
	}
	rec.Start = stored << h.Shift

	if descLen > 0 {
		if len(b) < off+descLen {
			return Record{}, 0, fmt.Errorf("%w: truncated description", asttype.ErrMalformed)
		}
		rec.Description = string(b[off : off+descLen])
		off += descLen
	}
	return rec, off, nil
}

// fieldPos returns the byte offsets of a record's offset, size and
// uncompressed-size fields.
func (h *Header) fieldPos(rec *Record) (offset, size, usize int) {
	offset = rec.Pos + int(h.IDWidth)
	size = offset + int(h.OffsetWidth)
	usize = size + int(h.SizeWidth)
	return offset, size, usize
}
