package ast

import (
	"context"
	"log/slog"

	"github.com/meigma/astedit/core/internal/asttype"
	"github.com/meigma/astedit/core/internal/deflate"
	"github.com/meigma/astedit/core/internal/preview"
)

// WriteInfo describes an import that is about to overwrite a root file.
type WriteInfo struct {
	// Path is the root file being overwritten.
	Path string

	// Address is the node whose payload was replaced.
	Address Address

	// Entry is the replaced entry as it was before the import.
	Entry *Entry

	// Pristine holds the entry's stored bytes before the import
	// (still deflated when the entry is compressed).
	Pristine []byte
}

// BeforeWriteFunc runs before ImportFile overwrites the root file. Returning
// an error aborts the import and leaves the file untouched.
type BeforeWriteFunc func(ctx context.Context, info WriteInfo) error

// importConfig holds configuration for Import and ImportFile.
type importConfig struct {
	compress     compressMode
	conversion   Conversion
	forcePreview bool
	observer     Observer
	logger       *slog.Logger
	renderer     *preview.Renderer
	pool         *deflate.Pool
	beforeWrite  BeforeWriteFunc
	maxEntrySize uint64
}

// ImportOption configures Import and ImportFile.
type ImportOption func(*importConfig)

// compressMode is how a payload for a compressed entry is taken.
type compressMode int

const (
	// compressAuto stores a payload that is a complete zlib stream as is
	// and deflates anything else.
	compressAuto compressMode = iota
	compressOn
	compressOff
)

// ImportWithCompress controls how a payload for a compressed entry is taken.
// When true the payload is plain content and is deflated.
// When false it is an already-deflated stream; it is inflated once to
// validate it and to learn its uncompressed size.
//
// Without this option a payload that inflates as a complete zlib stream is
// stored as given, so the default output of Export imports back unchanged,
// and any other payload is deflated.
// Payloads for uncompressed entries are always stored as given.
func ImportWithCompress(enabled bool) ImportOption {
	return func(cfg *importConfig) {
		if enabled {
			cfg.compress = compressOn
		} else {
			cfg.compress = compressOff
		}
	}
}

// ImportWithConversion rewrites the payload's leading tag before it is stored.
func ImportWithConversion(c Conversion) ImportOption {
	return func(cfg *importConfig) {
		cfg.conversion = c
	}
}

// ImportWithForcePreview renders a preview of any texture payload, even when
// the entry being replaced was not a texture.
func ImportWithForcePreview(enabled bool) ImportOption {
	return func(cfg *importConfig) {
		cfg.forcePreview = enabled
	}
}

// ImportWithObserver receives progress and preview events.
func ImportWithObserver(o Observer) ImportOption {
	return func(cfg *importConfig) {
		cfg.observer = o
	}
}

// ImportWithLogger sets the logger for import diagnostics.
func ImportWithLogger(logger *slog.Logger) ImportOption {
	return func(cfg *importConfig) {
		cfg.logger = logger
	}
}

// ImportWithRenderer sets the renderer used for the import preview.
func ImportWithRenderer(r *Renderer) ImportOption {
	return func(cfg *importConfig) {
		cfg.renderer = r
	}
}

// ImportWithCompressionLevel sets the zlib level used when deflating.
func ImportWithCompressionLevel(level int) ImportOption {
	return func(cfg *importConfig) {
		cfg.pool = deflate.NewPool(level)
	}
}

// ImportWithBeforeWrite registers a hook that ImportFile runs before it
// overwrites the root file.
func ImportWithBeforeWrite(fn BeforeWriteFunc) ImportOption {
	return func(cfg *importConfig) {
		cfg.beforeWrite = fn
	}
}

// ImportWithMaxEntrySize limits the size of payloads read and written.
// Set limit to 0 to disable the limit.
func ImportWithMaxEntrySize(limit uint64) ImportOption {
	return func(cfg *importConfig) {
		cfg.maxEntrySize = limit
	}
}

// defaultPool is shared by imports that do not choose a compression level.
var defaultPool = deflate.NewPool(deflate.DefaultLevel)

func newImportConfig(opts []ImportOption) *importConfig {
	cfg := &importConfig{
		maxEntrySize: DefaultMaxEntrySize,
		pool:         defaultPool,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.observer == nil {
		cfg.observer = asttype.NopObserver
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	if cfg.renderer == nil {
		cfg.renderer = preview.NewRenderer(preview.WithCache(nil))
	}
	return cfg
}
