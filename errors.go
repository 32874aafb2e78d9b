package astedit

import (
	"errors"

	astcore "github.com/meigma/astedit/core"
)

// Errors re-exported from core.
var (
	// ErrNotFound is returned when an index in a node address is absent.
	ErrNotFound = astcore.ErrNotFound

	// ErrMalformed is returned when a header or TOC is truncated or inconsistent.
	ErrMalformed = astcore.ErrMalformed

	// ErrDecompression is returned when a payload cannot be inflated.
	ErrDecompression = astcore.ErrDecompression

	// ErrPreview is returned when a texture cannot be decoded for preview.
	ErrPreview = astcore.ErrPreview

	// ErrSizeOverflow is returned when a value exceeds its field or a configured limit.
	ErrSizeOverflow = astcore.ErrSizeOverflow

	// ErrConversion is returned when a payload lacks the header a conversion expects.
	ErrConversion = astcore.ErrConversion
)

// Errors raised by the editor itself.
var (
	// ErrNotChanged is returned when reverting a node that was never imported over.
	ErrNotChanged = astcore.ErrNotChanged

	// ErrUnknownSession is returned when an address names a root that is not open.
	ErrUnknownSession = astcore.ErrUnknownSession

	// ErrReadOnly is returned when importing into a root opened from a URL.
	ErrReadOnly = errors.New("astedit: session is read-only")
)
