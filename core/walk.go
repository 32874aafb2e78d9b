package ast

import (
	"bytes"
	"context"
	"fmt"

	"github.com/meigma/astedit/core/internal/asttype"
	"github.com/meigma/astedit/core/internal/file"
	"github.com/meigma/astedit/core/internal/sniff"
	"github.com/meigma/astedit/core/internal/toc"
)

// level is one container on an address path together with the entry the
// path selects in it.
type level struct {
	addr   Address
	toc    *toc.TOC
	reader *file.Reader
	entry  *Entry

	// data holds the container bytes when the walk buffers levels.
	data []byte
}

// walker descends an address path one container at a time.
type walker struct {
	maxEntrySize uint64

	// buffer keeps every level's bytes in memory for rewriting.
	buffer bool

	// onLevel is called with the 1-based depth of each container decoded.
	onLevel func(depth int)
}

// walk decodes every container on addr's path and returns them root first.
// The last level holds the addressed entry.
func (w *walker) walk(ctx context.Context, src Source, addr Address) ([]*level, error) {
	if addr.IsRoot() {
		return nil, fmt.Errorf("%w: address %s names a root container, not an entry", asttype.ErrNotFound, addr)
	}

	var data []byte
	if w.buffer {
		buf, err := readSource(src)
		if err != nil {
			return nil, err
		}
		data, src = buf, bytes.NewReader(buf)
	}

	levels := make([]*level, 0, addr.Depth())
	for depth, idx := range addr.Path {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		here := Address{Root: addr.Root, Path: addr.Path[:depth]}
		t, err := toc.Decode(src, src.Size())
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", here, err)
		}
		if idx >= len(t.Records) {
			return nil, fmt.Errorf("%w: %s has no entry %d (%d entries)", asttype.ErrNotFound, here, idx, len(t.Records))
		}
		lv := &level{
			addr:   here,
			toc:    t,
			reader: file.NewReader(src, file.WithMaxEntrySize(w.maxEntrySize)),
			entry:  newEntry(&t.Records[idx]),
			data:   data,
		}
		levels = append(levels, lv)
		if w.onLevel != nil {
			w.onLevel(depth + 1)
		}

		if depth == addr.Depth()-1 {
			break
		}
		if src, data, err = w.descend(lv, here.Child(idx)); err != nil {
			return nil, err
		}
	}
	return levels, nil
}

// descend opens the container held by lv's entry.
func (w *walker) descend(lv *level, node Address) (Source, []byte, error) {
	head, err := lv.reader.Head(lv.entry, len(toc.Magic))
	if err != nil {
		return nil, nil, fmt.Errorf("walk %s: %w", node, err)
	}
	if kind, _ := sniff.Classify(head); !kind.IsContainer() {
		return nil, nil, fmt.Errorf("%w: %s is %s, not a container", asttype.ErrNotFound, node, kind)
	}

	if !lv.entry.Compressed() && !w.buffer {
		section, err := lv.reader.Raw(lv.entry)
		if err != nil {
			return nil, nil, fmt.Errorf("walk %s: %w", node, err)
		}
		return section, nil, nil
	}
	data, err := lv.reader.ReadAll(lv.entry)
	if err != nil {
		return nil, nil, fmt.Errorf("walk %s: %w", node, err)
	}
	var kept []byte
	if w.buffer {
		kept = data
	}
	return bytes.NewReader(data), kept, nil
}

// Resolve walks addr and returns the addressed entry with its kind sniffed.
// Every call re-reads the containers on the path.
func Resolve(ctx context.Context, src Source, addr Address, opts ...ParseOption) (*Entry, error) {
	cfg := newParseConfig(opts)
	w := &walker{maxEntrySize: cfg.maxEntrySize}
	levels, err := w.walk(ctx, src, addr)
	if err != nil {
		return nil, err
	}
	leaf := levels[len(levels)-1]
	head, err := leaf.reader.Head(leaf.entry, sniff.ProbeSize)
	if err != nil {
		return nil, fmt.Errorf("sniff %s: %w", addr, err)
	}
	leaf.entry.Kind, leaf.entry.Format = sniff.Classify(head)
	return leaf.entry, nil
}
