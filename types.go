package astedit

import astcore "github.com/meigma/astedit/core"

// --- Re-exports from core ---

// Address locates a node: a root session key followed by TOC indices.
type Address = astcore.Address

// Container is one parsed archive, root or nested.
type Container = astcore.Container

// Source is random-access input with a known size.
type Source = astcore.Source

// ParseOption configures the parse run when a root is opened.
type ParseOption = astcore.ParseOption

// Entry is one TOC record of a container.
type Entry = astcore.Entry

// Kind classifies an entry's decompressed content.
type Kind = astcore.Kind

// TextureFormat is the block compression of a texture entry.
type TextureFormat = astcore.TextureFormat

// Conversion selects a header rewrite applied on export or import.
type Conversion = astcore.Conversion

// ExportOption configures Export and ExportFile.
type ExportOption = astcore.ExportOption

// ImportOption configures Import and ImportFile.
type ImportOption = astcore.ImportOption

// ImportResult is the outcome of an import.
type ImportResult = astcore.ImportResult

// ExtractOption configures Extract.
type ExtractOption = astcore.ExtractOption

// ExtractStats counts the files written by Extract.
type ExtractStats = astcore.ExtractStats

// Conversion constants.
const (
	ConvertNone     = astcore.ConvertNone
	ConvertP3RToDDS = astcore.ConvertP3RToDDS
	ConvertDDSToP3R = astcore.ConvertDDSToP3R
)

// Address helpers re-exported from core.
var (
	ParseAddress       = astcore.ParseAddress
	AddressFromNodeKey = astcore.AddressFromNodeKey
	ParseConversion    = astcore.ParseConversion
)

// Export options re-exported from core.
var (
	ExportWithDecompress = astcore.ExportWithDecompress
	ExportWithConversion = astcore.ExportWithConversion
)

// Import options re-exported from core.
var (
	ImportWithCompress     = astcore.ImportWithCompress
	ImportWithConversion   = astcore.ImportWithConversion
	ImportWithForcePreview = astcore.ImportWithForcePreview
)

// Extract options re-exported from core.
var (
	ExtractWithDecompress = astcore.ExtractWithDecompress
	ExtractWithRecursive  = astcore.ExtractWithRecursive
	ExtractWithOverwrite  = astcore.ExtractWithOverwrite
)

// StoredExt suffixes compressed entries extracted without inflating.
const StoredExt = astcore.StoredExt

// PreviewPrefix starts every preview data URI.
const PreviewPrefix = astcore.PreviewPrefix
