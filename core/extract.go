package ast

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/meigma/astedit/core/internal/batch"
	"github.com/meigma/astedit/core/internal/file"
	"github.com/meigma/astedit/core/internal/sniff"
	"github.com/meigma/astedit/core/internal/toc"
)

// ExtractStats counts the files written by Extract.
type ExtractStats = batch.Stats

// StoredExt is appended to the name of a compressed entry extracted
// without inflating it.
const StoredExt = ".z"

// extractJob is one container's worth of files.
type extractJob struct {
	src   Source
	items []batch.Item
}

// Extract writes every entry of the container at addr to its own file in
// dir, named "<index>.<kind>" ("<index>.bin" when the kind is unknown).
// A root address extracts the root container.
//
// Files are staged under temporary names and renamed into place, so an
// interrupted extract never leaves a truncated file under a final name.
// Files written before a failure are kept.
func Extract(ctx context.Context, src Source, addr Address, dir string, opts ...ExtractOption) (*ExtractStats, error) {
	cfg := newExtractConfig(opts)

	top := src
	if !addr.IsRoot() {
		w := &walker{maxEntrySize: cfg.maxEntrySize}
		levels, err := w.walk(ctx, src, addr)
		if err != nil {
			return nil, err
		}
		if top, _, err = w.descend(levels[len(levels)-1], addr); err != nil {
			return nil, err
		}
	}

	var jobs []extractJob
	if err := collect(ctx, cfg, top, addr, "", &jobs); err != nil {
		return nil, err
	}
	total := 0
	for _, j := range jobs {
		total += len(j.items)
	}

	sink, err := batch.NewFileSink(dir, batch.WithOverwrite(cfg.overwrite))
	if err != nil {
		return nil, err
	}
	defer sink.Close()

	var done atomic.Int64
	stats := &ExtractStats{}
	for _, j := range jobs {
		p := batch.NewProcessor(j.src,
			batch.WithInflate(cfg.decompress),
			batch.WithWorkers(cfg.concurrency),
			batch.WithMaxEntrySize(cfg.maxEntrySize),
			batch.WithLogger(cfg.logger),
			batch.WithItemDone(func() {
				cfg.observer.Progress(percent(int(done.Add(1)), total))
			}),
		)
		s, err := p.Process(ctx, j.items, sink)
		stats.Processed += s.Processed
		stats.Skipped += s.Skipped
		stats.Bytes += s.Bytes
		if err != nil {
			return stats, fmt.Errorf("extract %s: %w", addr, err)
		}
	}
	if stats.Skipped > 0 {
		cfg.observer.Progress(100)
	}
	cfg.logger.Debug("extracted container", "address", addr.String(), "dir", dir,
		"files", stats.Processed, "skipped", stats.Skipped, "bytes", stats.Bytes)
	return stats, nil
}

// collect sniffs the entries of the container in src and queues one job for
// it, followed by jobs for nested containers when recursing.
func collect(ctx context.Context, cfg *extractConfig, src Source, addr Address, prefix string, jobs *[]extractJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t, err := toc.Decode(src, src.Size())
	if err != nil {
		return fmt.Errorf("extract %s: %w", addr, err)
	}
	reader := file.NewReader(src, file.WithMaxEntrySize(cfg.maxEntrySize))

	job := extractJob{src: src, items: make([]batch.Item, 0, len(t.Records))}
	var nested []*Entry
	for i := range t.Records {
		e := newEntry(&t.Records[i])
		head, err := reader.Head(e, sniff.ProbeSize)
		if err != nil {
			return fmt.Errorf("sniff %s: %w", addr.Child(e.Index), err)
		}
		e.Kind, e.Format = sniff.Classify(head)
		job.items = append(job.items, batch.Item{Entry: e, Name: prefix + fileName(e, cfg.decompress)})
		if cfg.recursive && e.Kind.IsContainer() {
			nested = append(nested, e)
		}
	}
	*jobs = append(*jobs, job)

	for _, e := range nested {
		node := addr.Child(e.Index)
		data, err := reader.ReadAll(e)
		if err != nil {
			return fmt.Errorf("read %s: %w", node, err)
		}
		sub := prefix + strconv.Itoa(e.Index) + "/"
		if err := collect(ctx, cfg, bytes.NewReader(data), node, sub, jobs); err != nil {
			return err
		}
	}
	return nil
}

func fileName(e *Entry, inflate bool) string {
	ext := e.Kind.String()
	if ext == "" {
		ext = "bin"
	}
	name := strconv.Itoa(e.Index) + "." + ext
	if e.Compressed() && !inflate {
		name += StoredExt
	}
	return name
}
