package ast

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/meigma/astedit/core/internal/asttype"
	"github.com/meigma/astedit/core/internal/file"
	"github.com/meigma/astedit/core/internal/sniff"
	"github.com/meigma/astedit/core/internal/toc"
)

// Parse reads the container in src and returns its entries in TOC order.
//
// Every listed entry is sniffed concurrently. Nested containers are parsed
// when WithRecursive is set or when they lie on the WithDescendPath path.
// Preview failures are logged and leave the entry without a preview; any
// other failure aborts the whole parse.
func Parse(ctx context.Context, src Source, opts ...ParseOption) (*Container, error) {
	cfg := newParseConfig(opts)
	p := &parser{cfg: cfg}
	return p.parse(ctx, src, cfg.address, cfg.descend, cfg.descendSet && len(cfg.descend) > 0)
}

type parser struct {
	cfg *parseConfig
}

func (p *parser) parse(ctx context.Context, src Source, addr Address, path []int, descending bool) (*Container, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := toc.Decode(src, src.Size())
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", addr, err)
	}
	c := newContainer(t)
	reader := file.NewReader(src, file.WithMaxEntrySize(p.cfg.maxEntrySize))

	if descending {
		e, ok := c.Entry(path[0])
		if !ok {
			return nil, fmt.Errorf("%w: %s has no entry %d (%d entries)", asttype.ErrNotFound, addr, path[0], len(c.Entries))
		}
		if err := p.visit(ctx, reader, addr, e, path[1:], true); err != nil {
			return nil, err
		}
		return c, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if p.cfg.concurrency > 0 {
		g.SetLimit(p.cfg.concurrency)
	}
	for _, e := range c.Entries {
		g.Go(func() error {
			return p.visit(gctx, reader, addr, e, nil, false)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	p.cfg.logger.Debug("parsed container", "address", addr.String(), "entries", len(c.Entries))
	if p.cfg.previews {
		p.cfg.observer.PreviewsDone(addr.String())
	}
	return c, nil
}

// visit sniffs one entry, renders its preview and parses it when it is a
// container that recursion or the descend path reaches.
func (p *parser) visit(ctx context.Context, r *file.Reader, addr Address, e *Entry, rest []int, descending bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	node := addr.Child(e.Index)

	head, err := r.Head(e, sniff.ProbeSize)
	if err != nil {
		return fmt.Errorf("sniff %s: %w", node, err)
	}
	e.Kind, e.Format = sniff.Classify(head)

	if len(rest) > 0 && !e.Kind.IsContainer() {
		return fmt.Errorf("%w: %s is %s, not a container", asttype.ErrNotFound, node, e.Kind)
	}
	wantNested := e.Kind.IsContainer() && (p.cfg.recursive || descending)
	wantPreview := p.cfg.previews && e.Kind.IsTexture()
	if !wantNested && !wantPreview {
		return nil
	}

	data, err := r.ReadAll(e)
	if err != nil {
		return fmt.Errorf("read %s: %w", node, err)
	}
	if wantPreview {
		p.preview(node, e, data)
	}
	if wantNested {
		nested, err := p.parse(ctx, bytes.NewReader(data), node, rest, len(rest) > 0)
		if err != nil {
			return err
		}
		e.Nested = nested
	}
	return nil
}

func (p *parser) preview(node Address, e *Entry, data []byte) {
	uri, err := p.cfg.renderer.Render(data)
	if err != nil {
		p.cfg.logger.Warn("preview failed", "address", node.String(), "format", e.Format.String(), "error", err)
		return
	}
	e.Preview = uri
	p.cfg.observer.Preview(node.String(), uri)
}

func newEntry(rec *toc.Record) *Entry {
	return &Entry{
		Index:            rec.Index,
		ID:               rec.ID,
		Start:            rec.Start,
		RawSize:          rec.Size,
		UncompressedSize: rec.UncompressedSize,
		Description:      rec.Description,
	}
}

func newContainer(t *toc.TOC) *Container {
	c := &Container{
		ID:      uuid.NewString(),
		Size:    t.Size,
		Entries: make([]*Entry, len(t.Records)),
	}
	for i := range t.Records {
		c.Entries[i] = newEntry(&t.Records[i])
	}
	return c
}
