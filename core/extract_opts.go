package ast

import (
	"log/slog"

	"github.com/meigma/astedit/core/internal/asttype"
)

// extractConfig holds configuration for Extract.
type extractConfig struct {
	decompress   bool
	recursive    bool
	overwrite    bool
	concurrency  int
	observer     Observer
	logger       *slog.Logger
	maxEntrySize uint64
}

// ExtractOption configures Extract.
type ExtractOption func(*extractConfig)

// ExtractWithDecompress writes compressed entries inflated (default: true).
// When disabled they are written as stored with a ".z" suffix.
func ExtractWithDecompress(enabled bool) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.decompress = enabled
	}
}

// ExtractWithRecursive also extracts the entries of every nested container,
// into a subdirectory named after the container's index.
func ExtractWithRecursive(enabled bool) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.recursive = enabled
	}
}

// ExtractWithOverwrite replaces files that already exist. By default they
// are skipped.
func ExtractWithOverwrite(enabled bool) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.overwrite = enabled
	}
}

// ExtractWithConcurrency limits how many files are written at once.
// Zero (the default) starts one task per entry of a contiguous run.
func ExtractWithConcurrency(n int) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.concurrency = max(n, 0)
	}
}

// ExtractWithObserver receives progress events, one per file written.
func ExtractWithObserver(o Observer) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.observer = o
	}
}

// ExtractWithLogger sets the logger for extract diagnostics.
func ExtractWithLogger(logger *slog.Logger) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.logger = logger
	}
}

// ExtractWithMaxEntrySize limits one stored or inflated payload.
// Set limit to 0 to disable the limit.
func ExtractWithMaxEntrySize(limit uint64) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.maxEntrySize = limit
	}
}

func newExtractConfig(opts []ExtractOption) *extractConfig {
	cfg := &extractConfig{decompress: true, maxEntrySize: DefaultMaxEntrySize}
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
