package ast

import (
	"log/slog"
	"slices"

	"github.com/meigma/astedit/core/internal/asttype"
	"github.com/meigma/astedit/core/internal/file"
	"github.com/meigma/astedit/core/internal/preview"
)

// DefaultMaxEntrySize is the default limit on one stored or inflated payload.
const DefaultMaxEntrySize = file.DefaultMaxEntrySize

// parseConfig holds configuration for Parse and Resolve.
type parseConfig struct {
	recursive    bool
	previews     bool
	descend      []int
	descendSet   bool
	concurrency  int
	observer     Observer
	logger       *slog.Logger
	address      Address
	renderer     *preview.Renderer
	maxEntrySize uint64
}

// ParseOption configures Parse and Resolve.
type ParseOption func(*parseConfig)

// WithRecursive parses every nested container found, at any depth.
func WithRecursive(enabled bool) ParseOption {
	return func(cfg *parseConfig) {
		cfg.recursive = enabled
	}
}

// WithPreviews renders a preview for every texture entry that is sniffed.
// Each preview is delivered to the observer as it completes, followed by
// PreviewsDone once a listed container has no previews left to render.
func WithPreviews(enabled bool) ParseOption {
	return func(cfg *parseConfig) {
		cfg.previews = enabled
	}
}

// WithDescendPath restricts parsing to the entries on path. At each level
// only the entry at the next index is sniffed; siblings are listed with their
// TOC fields only. The container reached at the end of the path is listed
// in full. An empty path lists the root in full.
func WithDescendPath(path []int) ParseOption {
	return func(cfg *parseConfig) {
		cfg.descend = slices.Clone(path)
		cfg.descendSet = true
	}
}

// WithConcurrency limits how many entries of one container are processed at
// once. Zero (the default) starts one task per entry.
func WithConcurrency(n int) ParseOption {
	return func(cfg *parseConfig) {
		if n < 0 {
			n = 0
		}
		cfg.concurrency = n
	}
}

// WithObserver receives preview events. Nil discards them.
func WithObserver(o Observer) ParseOption {
	return func(cfg *parseConfig) {
		cfg.observer = o
	}
}

// WithLogger sets the logger for parse diagnostics.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) ParseOption {
	return func(cfg *parseConfig) {
		cfg.logger = logger
	}
}

// WithAddress sets the address of the container being parsed. It prefixes
// the node addresses carried by preview events.
func WithAddress(addr Address) ParseOption {
	return func(cfg *parseConfig) {
		cfg.address = addr
	}
}

// WithRenderer sets the preview renderer. A default renderer is created
// when previews are enabled and none is given.
func WithRenderer(r *Renderer) ParseOption {
	return func(cfg *parseConfig) {
		cfg.renderer = r
	}
}

// WithMaxEntrySize limits the stored and inflated size of any payload read.
// Set limit to 0 to disable the limit.
func WithMaxEntrySize(limit uint64) ParseOption {
	return func(cfg *parseConfig) {
		cfg.maxEntrySize = limit
	}
}

func newParseConfig(opts []ParseOption) *parseConfig {
	cfg := &parseConfig{maxEntrySize: DefaultMaxEntrySize}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.observer == nil {
		cfg.observer = asttype.NopObserver
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	if cfg.previews && cfg.renderer == nil {
		cfg.renderer = preview.NewRenderer()
	}
	return cfg
}
