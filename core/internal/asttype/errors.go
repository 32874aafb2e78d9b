package asttype

import "errors"

// Sentinel errors for archive operations.
var (
	// ErrNotFound is returned when an index in a node address is absent from its container.
	ErrNotFound = errors.New("ast: entry not found")

	// ErrMalformed is returned when a header or TOC is truncated or inconsistent.
	ErrMalformed = errors.New("ast: malformed container")

	// ErrDecompression is returned when an entry payload cannot be inflated.
	ErrDecompression = errors.New("ast: decompression failed")

	// ErrPreview is returned when a texture cannot be decoded for preview.
	ErrPreview = errors.New("ast: preview decode failed")

	// ErrSizeOverflow is returned when a size or offset exceeds its field or a configured limit.
	ErrSizeOverflow = errors.New("ast: size overflow")

	// ErrNotChanged is returned when reverting a node that was never imported over.
	ErrNotChanged = errors.New("ast: node was not changed")

	// ErrUnknownSession is returned when an address refers to a root key that is not open.
	ErrUnknownSession = errors.New("ast: unknown session")

	// ErrConversion is returned when a payload does not carry the header a conversion expects.
	ErrConversion = errors.New("ast: unsupported conversion")
)
