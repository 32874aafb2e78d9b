package ast

import (
	"github.com/meigma/astedit/core/internal/asttype"
	"github.com/meigma/astedit/core/internal/preview"
)

// Re-export types from internal/asttype for public API.
type (
	// Entry is one TOC record of a container.
	Entry = asttype.Entry

	// Container is one parsed archive, root or nested.
	Container = asttype.Container

	// Kind classifies an entry's decompressed content.
	Kind = asttype.Kind

	// TextureFormat is the block compression of a texture entry.
	TextureFormat = asttype.TextureFormat

	// Conversion selects a header rewrite applied on export or import.
	Conversion = asttype.Conversion

	// Observer receives progress and preview notifications.
	// Implementations must be safe for concurrent calls.
	Observer = asttype.Observer

	// ObserverFuncs adapts plain functions to an Observer.
	ObserverFuncs = asttype.ObserverFuncs

	// Renderer turns texture payloads into data URI previews.
	Renderer = preview.Renderer

	// PreviewOption configures a Renderer.
	PreviewOption = preview.Option

	// PreviewCacheStats reports preview cache effectiveness.
	PreviewCacheStats = preview.CacheStats
)

// Re-export kind constants.
const (
	KindUnknown = asttype.KindUnknown
	KindDDS     = asttype.KindDDS
	KindDB      = asttype.KindDB
	KindFTC     = asttype.KindFTC
	KindFRT     = asttype.KindFRT
	KindAST     = asttype.KindAST
	KindWebM    = asttype.KindWebM
	KindXML     = asttype.KindXML
	KindP3R     = asttype.KindP3R
	KindAPT     = asttype.KindAPT
	KindRSF     = asttype.KindRSF
	KindEBO     = asttype.KindEBO
	KindSCHL    = asttype.KindSCHL
	KindPNG     = asttype.KindPNG
	KindDAT     = asttype.KindDAT
)

// Re-export texture format constants.
const (
	FormatNone = asttype.FormatNone
	FormatDXT1 = asttype.FormatDXT1
	FormatDXT3 = asttype.FormatDXT3
	FormatDXT5 = asttype.FormatDXT5
)

// Re-export conversion constants.
const (
	ConvertNone     = asttype.ConvertNone
	ConvertP3RToDDS = asttype.ConvertP3RToDDS
	ConvertDDSToP3R = asttype.ConvertDDSToP3R
)

// ParseConversion maps "from"/"to" format names to a Conversion.
var ParseConversion = asttype.ParseConversion

// NopObserver discards every event.
var NopObserver = asttype.NopObserver

// Re-export preview rendering.
var (
	// NewRenderer creates a preview Renderer.
	NewRenderer = preview.NewRenderer

	// PreviewWithMaxSize bounds the longer edge of rendered previews.
	PreviewWithMaxSize = preview.WithMaxSize

	// PreviewWithQuality sets the JPEG quality of rendered previews.
	PreviewWithQuality = preview.WithQuality

	// PreviewWithCache memoizes previews in a cache; nil disables caching.
	PreviewWithCache = preview.WithCache

	// NewPreviewCache creates a preview cache holding up to n entries.
	NewPreviewCache = preview.NewCache
)

// PreviewPrefix starts every preview data URI.
const PreviewPrefix = preview.MediaPrefix

// Sentinel errors re-exported from internal/asttype.
var (
	// ErrNotFound is returned when an index in a node address is absent.
	ErrNotFound = asttype.ErrNotFound

	// ErrMalformed is returned when a header or TOC is truncated or inconsistent.
	ErrMalformed = asttype.ErrMalformed

	// ErrDecompression is returned when a payload cannot be inflated.
	ErrDecompression = asttype.ErrDecompression

	// ErrPreview is returned when a texture cannot be decoded for preview.
	ErrPreview = asttype.ErrPreview

	// ErrSizeOverflow is returned when a value exceeds its field or a configured limit.
	ErrSizeOverflow = asttype.ErrSizeOverflow

	// ErrNotChanged is returned when reverting a node that was never imported over.
	ErrNotChanged = asttype.ErrNotChanged

	// ErrUnknownSession is returned when an address names a root that is not open.
	ErrUnknownSession = asttype.ErrUnknownSession

	// ErrConversion is returned when a payload lacks the header a conversion expects.
	ErrConversion = asttype.ErrConversion
)
