// Package batch writes many entries of one container to a Sink, reading
// touching payloads with a single range read.
package batch

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/astedit/core/internal/asttype"
	"github.com/meigma/astedit/core/internal/file"
	"github.com/meigma/astedit/core/internal/sizing"
)

// Processor extracts entries of one container.
type Processor struct {
	source       file.Source
	maxEntrySize uint64
	workers      int // <=0 = one task per item in a group
	inflate      bool
	logger       *slog.Logger
	onItem       func()
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithWorkers limits how many items of a group are written at once.
// Values <= 0 start one task per item.
func WithWorkers(n int) ProcessorOption {
	return func(p *Processor) {
		p.workers = n
	}
}

// WithInflate writes compressed entries inflated instead of as stored.
func WithInflate(enabled bool) ProcessorOption {
	return func(p *Processor) {
		p.inflate = enabled
	}
}

// WithMaxEntrySize limits one stored or inflated payload. Zero disables
// the limit.
func WithMaxEntrySize(limit uint64) ProcessorOption {
	return func(p *Processor) {
		p.maxEntrySize = limit
	}
}

// WithLogger sets the logger for batch processing.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithItemDone is called after each item is committed. It may be called
// from several goroutines at once.
func WithItemDone(fn func()) ProcessorOption {
	return func(p *Processor) {
		p.onItem = fn
	}
}

// NewProcessor creates a processor reading payloads from source.
func NewProcessor(source file.Source, opts ...ProcessorOption) *Processor {
	p := &Processor{
		source:       source,
		maxEntrySize: file.DefaultMaxEntrySize,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	return p
}

// Process writes items to sink.
//
// Items are filtered through sink.ShouldProcess, validated against the
// source, sorted by payload offset and grouped into contiguous ranges.
// Processing stops on the first error; items already committed stay.
func (p *Processor) Process(ctx context.Context, items []Item, sink Sink) (Stats, error) {
	var stats Stats
	todo := make([]Item, 0, len(items))
	for _, it := range items {
		if !sink.ShouldProcess(it.Name) {
			stats.Skipped++
			continue
		}
		if err := file.ValidateForRead(it.Entry, p.source.Size(), p.maxEntrySize); err != nil {
			return stats, fmt.Errorf("batch: %s: %w", it.Name, err)
		}
		todo = append(todo, it)
	}
	if len(todo) == 0 {
		return stats, nil
	}

	slices.SortFunc(todo, func(a, b Item) int {
		return cmp.Compare(a.Entry.Start, b.Entry.Start)
	})
	groups := groupAdjacent(todo)
	p.logger.Debug("batch processing", "items", len(todo), "groups", len(groups), "skipped", stats.Skipped)

	var mu sync.Mutex
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		data, err := p.readGroup(g)
		if err != nil {
			return stats, err
		}
		reader := file.NewReader(bytes.NewReader(data), file.WithMaxEntrySize(p.maxEntrySize))

		eg, gctx := errgroup.WithContext(ctx)
		if p.workers > 0 {
			eg.SetLimit(p.workers)
		}
		for _, it := range g.items {
			eg.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				n, err := p.processItem(reader, it, g.start, sink)
				if err != nil {
					return err
				}
				mu.Lock()
				stats.Processed++
				stats.Bytes += n
				mu.Unlock()
				if p.onItem != nil {
					p.onItem()
				}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// readGroup reads the byte range covered by g.
func (p *Processor) readGroup(g rangeGroup) ([]byte, error) {
	size, err := sizing.ToInt(g.end-g.start, asttype.ErrSizeOverflow)
	if err != nil {
		return nil, fmt.Errorf("batch: %w", err)
	}
	off, err := sizing.ToInt64(g.start, asttype.ErrSizeOverflow)
	if err != nil {
		return nil, fmt.Errorf("batch: %w", err)
	}
	data := make([]byte, size)
	n, err := p.source.ReadAt(data, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("batch: %w", err)
	}
	if n != size {
		return nil, fmt.Errorf("batch: %w: short read (%d of %d bytes)", asttype.ErrMalformed, n, size)
	}
	return data, nil
}

// processItem writes one payload out of its group's bytes.
func (p *Processor) processItem(reader *file.Reader, it Item, groupStart uint64, sink Sink) (uint64, error) {
	local := *it.Entry
	local.Start -= groupStart

	w, err := sink.Writer(it.Name)
	if err != nil {
		return 0, fmt.Errorf("batch: %s: %w", it.Name, err)
	}
	n, err := p.copyPayload(reader, &local, w)
	if err != nil {
		_ = w.Discard()
		return 0, fmt.Errorf("batch: %s: %w", it.Name, err)
	}
	if err := w.Commit(); err != nil {
		return 0, fmt.Errorf("batch: %s: commit: %w", it.Name, err)
	}
	return n, nil
}

func (p *Processor) copyPayload(reader *file.Reader, entry *asttype.Entry, w io.Writer) (uint64, error) {
	inflate := p.inflate && entry.Compressed()
	rc, err := reader.Open(entry, inflate)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	var src io.Reader = rc
	if inflate && p.maxEntrySize > 0 {
		src = io.LimitReader(rc, int64(min(p.maxEntrySize, uint64(1<<62)))+1)
	}
	n, err := io.Copy(w, src)
	if err != nil {
		return 0, err
	}
	written := uint64(n)
	if inflate {
		if p.maxEntrySize > 0 && written > p.maxEntrySize {
			return 0, fmt.Errorf("%w: inflated payload exceeds %d bytes", asttype.ErrSizeOverflow, p.maxEntrySize)
		}
		if written != entry.UncompressedSize {
			return 0, fmt.Errorf("%w: inflated to %d bytes, toc declares %d",
				asttype.ErrDecompression, written, entry.UncompressedSize)
		}
	}
	return written, nil
}
