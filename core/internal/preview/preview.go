package preview

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"

	"github.com/meigma/astedit/core/internal/asttype"
)

// MediaPrefix starts every data URI produced by a Renderer.
const MediaPrefix = "data:image/jpeg;base64,"

const (
	// DefaultMaxSize is the default bounding box edge, in pixels.
	DefaultMaxSize = 128

	// DefaultQuality is the default JPEG quality.
	DefaultQuality = 80
)

// Renderer turns texture payloads into small JPEG data URIs.
// A Renderer is safe for concurrent use.
type Renderer struct {
	maxSize int
	quality int
	cache   *Cache
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithMaxSize bounds the longer edge of rendered previews.
// Non-positive values keep the default.
func WithMaxSize(px int) Option {
	return func(r *Renderer) {
		if px > 0 {
			r.maxSize = px
		}
	}
}

// WithQuality sets the JPEG quality (1-100).
func WithQuality(q int) Option {
	return func(r *Renderer) {
		if q >= 1 && q <= 100 {
			r.quality = q
		}
	}
}

// WithCache memoizes rendered previews in c. A nil cache disables caching.
func WithCache(c *Cache) Option {
	return func(r *Renderer) {
		r.cache = c
	}
}

// NewRenderer creates a Renderer with a default-sized cache.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		maxSize: DefaultMaxSize,
		quality: DefaultQuality,
		cache:   NewCache(0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render decodes the texture in data and returns it as a JPEG data URI.
// Errors wrap asttype.ErrPreview.
func (r *Renderer) Render(data []byte) (string, error) {
	if r.cache == nil {
		return r.render(data)
	}
	return r.cache.GetOrRender(data, r.render)
}

// Cache returns the renderer's cache, or nil when caching is disabled.
func (r *Renderer) Cache() *Cache {
	return r.cache
}

func (r *Renderer) render(data []byte) (string, error) {
	img, err := Decode(data)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	buf.WriteString(MediaPrefix)
	enc := base64.NewEncoder(base64.StdEncoding, &buf)
	if err := imgio.JPEGEncoder(r.quality)(enc, r.fit(img)); err != nil {
		return "", fmt.Errorf("%w: encode jpeg: %v", asttype.ErrPreview, err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("%w: encode base64: %v", asttype.ErrPreview, err)
	}
	return buf.String(), nil
}

// fit scales img down so that neither edge exceeds maxSize, keeping its
// aspect ratio. Smaller images are returned unchanged.
func (r *Renderer) fit(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= r.maxSize && h <= r.maxSize {
		return img
	}
	if w >= h {
		h = max(1, h*r.maxSize/w)
		w = r.maxSize
	} else {
		w = max(1, w*r.maxSize/h)
		h = r.maxSize
	}
	return transform.Resize(img, w, h, transform.Linear)
}
