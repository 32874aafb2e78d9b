package ast

import (
	"log/slog"

	"github.com/meigma/astedit/core/internal/asttype"
)

// exportConfig holds configuration for Export.
type exportConfig struct {
	decompress   bool
	conversion   Conversion
	observer     Observer
	logger       *slog.Logger
	maxEntrySize uint64
}

// ExportOption configures Export.
type ExportOption func(*exportConfig)

// ExportWithDecompress inflates compressed entries before writing them.
// Uncompressed entries are always written as stored.
func ExportWithDecompress(enabled bool) ExportOption {
	return func(cfg *exportConfig) {
		cfg.decompress = enabled
	}
}

// ExportWithConversion rewrites the payload's leading tag while streaming.
// A conversion applies to the inflated content, so it implies decompression.
func ExportWithConversion(c Conversion) ExportOption {
	return func(cfg *exportConfig) {
		cfg.conversion = c
	}
}

// ExportWithObserver receives progress events.
func ExportWithObserver(o Observer) ExportOption {
	return func(cfg *exportConfig) {
		cfg.observer = o
	}
}

// ExportWithLogger sets the logger for export diagnostics.
func ExportWithLogger(logger *slog.Logger) ExportOption {
	return func(cfg *exportConfig) {
		cfg.logger = logger
	}
}

// ExportWithMaxEntrySize limits the size of payloads read on the way down.
// Set limit to 0 to disable the limit.
func ExportWithMaxEntrySize(limit uint64) ExportOption {
	return func(cfg *exportConfig) {
		cfg.maxEntrySize = limit
	}
}

func newExportConfig(opts []ExportOption) *exportConfig {
	cfg := &exportConfig{maxEntrySize: DefaultMaxEntrySize}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.observer == nil {
		cfg.observer = asttype.NopObserver
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return cfg
}
