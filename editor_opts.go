package astedit

import (
	"errors"
	"log/slog"
	"net/http"

	astcore "github.com/meigma/astedit/core"
	"github.com/meigma/astedit/pristine"
)

// Option configures an Editor.
type Option func(*Editor) error

// Defaults for preview rendering.
const (
	DefaultPreviewSize         = 128
	DefaultPreviewQuality      = 80
	DefaultPreviewCacheEntries = 1024
)

// WithLogger sets the logger for editor diagnostics.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) error {
		e.logger = logger
		return nil
	}
}

// WithObserver receives progress and preview events from every operation.
func WithObserver(o Observer) Option {
	return func(e *Editor) error {
		e.observer = o
		return nil
	}
}

// WithConcurrency limits how many entries of one container are parsed at
// once. Zero (the default) starts one task per entry.
func WithConcurrency(n int) Option {
	return func(e *Editor) error {
		if n < 0 {
			return errors.New("concurrency must be >= 0")
		}
		e.concurrency = n
		return nil
	}
}

// WithPreviewSize bounds the longer edge of rendered previews in pixels.
func WithPreviewSize(px int) Option {
	return func(e *Editor) error {
		if px <= 0 {
			return errors.New("preview size must be > 0")
		}
		e.previewSize = px
		return nil
	}
}

// WithPreviewQuality sets the JPEG quality (1-100) of rendered previews.
func WithPreviewQuality(q int) Option {
	return func(e *Editor) error {
		if q < 1 || q > 100 {
			return errors.New("preview quality must be in [1, 100]")
		}
		e.previewQuality = q
		return nil
	}
}

// WithPreviewCacheEntries sets how many rendered previews are memoized.
// Use 0 to disable the cache.
func WithPreviewCacheEntries(n int) Option {
	return func(e *Editor) error {
		if n < 0 {
			return errors.New("preview cache entries must be >= 0")
		}
		e.previewCacheEntries = n
		return nil
	}
}

// WithCompressionLevel sets the zlib level used when an import deflates.
func WithCompressionLevel(level int) Option {
	return func(e *Editor) error {
		e.importOpts = append(e.importOpts, astcore.ImportWithCompressionLevel(level))
		return nil
	}
}

// WithMaxEntrySize limits the size of any payload read or written.
// Use 0 to disable the limit.
func WithMaxEntrySize(limit uint64) Option {
	return func(e *Editor) error {
		e.maxEntrySize = limit
		return nil
	}
}

// WithPristineDir keeps changed-node records and pristine snapshots in dir,
// enabling Revert. The editor owns the store and closes it in Close.
func WithPristineDir(dir string) Option {
	return func(e *Editor) error {
		e.pristineDir = dir
		return nil
	}
}

// WithPristineStore uses an already open store. The caller keeps ownership.
func WithPristineStore(s *pristine.Store) Option {
	return func(e *Editor) error {
		e.store = s
		return nil
	}
}

// WithRegistry shares a session registry between editors.
func WithRegistry(r *Registry) Option {
	return func(e *Editor) error {
		if r == nil {
			return errors.New("registry is nil")
		}
		e.sessions = r
		return nil
	}
}

// WithHTTPClient sets the client used for roots opened with OpenURL.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Editor) error {
		e.httpClient = c
		return nil
	}
}
