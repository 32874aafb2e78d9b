package asttype

// Entry is one record in a container's table of contents.
type Entry struct {
	// Index is the zero-based TOC position.
	Index int

	// ID is the opaque per-entry identifier stored in the TOC record.
	ID uint64

	// Start is the absolute byte offset of the payload inside its container.
	Start uint64

	// RawSize is the stored payload length (compressed length when compressed).
	RawSize uint64

	// UncompressedSize is the declared inflated length.
	// Zero means the payload is stored uncompressed.
	UncompressedSize uint64

	// Description is free-text TOC metadata, passed through untouched.
	Description string

	// Kind is the sniffed content kind; KindUnknown until sniffed.
	Kind Kind

	// Format is the texture block compression for texture kinds.
	Format TextureFormat

	// Preview is a data URI holding a small lossy image, when requested.
	Preview string

	// Nested is the parsed container held by this entry, when recursion reached it.
	Nested *Container
}

// Compressed reports whether the payload must be inflated before use.
func (e *Entry) Compressed() bool {
	return e.UncompressedSize != 0
}

// Sniffed reports whether the entry's content kind has been determined.
func (e *Entry) Sniffed() bool {
	return e.Kind != KindUnknown
}

// Container is one parsed archive, root or nested.
type Container struct {
	// ID is a synthetic identifier assigned at parse time.
	ID string

	// Size is the total container length in bytes.
	Size int64

	// Entries lists the TOC records in TOC order.
	Entries []*Entry
}

// Entry returns the entry with the given TOC index.
func (c *Container) Entry(index int) (*Entry, bool) {
	if c == nil || index < 0 || index >= len(c.Entries) {
		return nil, false
	}
	e := c.Entries[index]
	if e.Index != index {
		for _, cand := range c.Entries {
			if cand.Index == index {
				return cand, true
			}
		}
		return nil, false
	}
	return e, true
}
