package ast

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/meigma/astedit/core/internal/asttype"
	"github.com/meigma/astedit/core/internal/deflate"
	"github.com/meigma/astedit/core/internal/sniff"
	"github.com/meigma/astedit/core/internal/toc"
)

// ImportResult is the outcome of an import.
type ImportResult struct {
	// Data is the re-serialized root container.
	Data []byte

	// Changed reports whether Data differs from the original root.
	Changed bool

	// Entry is the replaced entry as it was before the import.
	Entry *Entry

	// Pristine holds the replaced entry's original stored bytes.
	Pristine []byte

	// Preview is the preview rendered from the new payload, if any.
	Preview string
}

// Import replaces the payload of the node at addr and returns the new root
// container. src is not modified.
//
// Every container on the path is buffered on the way down. The new payload
// is converted and deflated as its entry requires, and then each container is
// re-serialized from the innermost outwards: each result becomes the payload
// of its parent. All bytes outside the replaced payloads and the patched TOC
// fields are reproduced, and a level whose bytes come out identical keeps its
// original stored form in the parent.
//
// Progress is reported over twice the address depth: one step per container
// read and one per container rewritten, ending at 100.
func Import(ctx context.Context, src Source, addr Address, payload []byte, opts ...ImportOption) (*ImportResult, error) {
	return newImportConfig(opts).run(ctx, src, addr, payload)
}

// ImportFile imports payload into the root file at path and overwrites the
// file in place. The before-write hook runs first; nothing is written when
// the import leaves the root unchanged.
//
// The overwrite is not atomic. A failure while writing leaves the file in an
// undefined state.
func ImportFile(ctx context.Context, path string, addr Address, payload []byte, opts ...ImportOption) (*ImportResult, error) {
	cfg := newImportConfig(opts)

	src, err := OpenFile(path)
	if err != nil {
		return nil, err
	}
	res, err := cfg.run(ctx, src, addr, payload)
	if cerr := src.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	if !res.Changed {
		cfg.logger.Debug("import left root unchanged", "address", addr.String(), "path", path)
		return res, nil
	}

	if cfg.beforeWrite != nil {
		info := WriteInfo{Path: path, Address: addr, Entry: res.Entry, Pristine: res.Pristine}
		if err := cfg.beforeWrite(ctx, info); err != nil {
			return nil, fmt.Errorf("import %s: before write: %w", addr, err)
		}
	}
	if err := os.WriteFile(path, res.Data, 0o644); err != nil { //nolint:gosec // archives are not secrets
		return nil, fmt.Errorf("import %s: write %s: %w", addr, path, err)
	}
	cfg.logger.Info("imported node", "address", addr.String(), "path", path, "size", len(res.Data))
	return res, nil
}

func (cfg *importConfig) run(ctx context.Context, src Source, addr Address, payload []byte) (*ImportResult, error) {
	steps := 2 * addr.Depth()
	report := func(k int) {
		cfg.observer.Progress(percent(k, steps))
	}

	wk := &walker{maxEntrySize: cfg.maxEntrySize, buffer: true, onLevel: report}
	levels, err := wk.walk(ctx, src, addr)
	if err != nil {
		return nil, err
	}
	leaf := levels[len(levels)-1]

	pristine, err := leaf.reader.ReadStored(leaf.entry)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", addr, err)
	}
	res := &ImportResult{Entry: leaf.entry, Pristine: pristine}

	stored, usize, content, err := cfg.leafPayload(leaf, payload, pristine)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", addr, err)
	}
	res.Preview = cfg.preview(leaf, addr, content)

	for d := len(levels) - 1; d >= 0; d-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lv := levels[d]
		out, err := toc.Rewrite(lv.data, lv.toc, toc.Replacement{
			Index:            lv.entry.Index,
			Payload:          stored,
			UncompressedSize: usize,
		})
		if err != nil {
			return nil, fmt.Errorf("import %s: rewrite %s: %w", addr, lv.addr, err)
		}
		report(steps - d)

		if d == 0 {
			res.Data = out
			break
		}
		if stored, usize, err = cfg.nestedPayload(levels[d-1], lv.data, out); err != nil {
			return nil, fmt.Errorf("import %s: %w", addr, err)
		}
	}

	res.Changed = !bytes.Equal(res.Data, levels[0].data)
	return res, nil
}

// leafPayload returns the stored form and uncompressed size of the new leaf
// payload, plus its plain content.
func (cfg *importConfig) leafPayload(leaf *level, payload, pristine []byte) (stored []byte, usize uint64, content []byte, err error) {
	e := leaf.entry
	if !e.Compressed() {
		content, err = convertBytes(payload, cfg.conversion)
		return content, 0, content, err
	}

	if cfg.compress == compressAuto && cfg.conversion == ConvertNone {
		if content, err := deflate.Decompress(payload, cfg.maxEntrySize); err == nil && len(content) > 0 {
			cfg.logger.Debug("payload is a zlib stream, storing as given", "size", len(payload))
			return payload, uint64(len(content)), content, nil
		}
	}

	if cfg.compress == compressOff {
		if cfg.conversion != ConvertNone {
			return nil, 0, nil, fmt.Errorf("%w: %s needs plain content, not a deflated stream", asttype.ErrConversion, cfg.conversion)
		}
		content, err = deflate.Decompress(payload, cfg.maxEntrySize)
		if err != nil {
			return nil, 0, nil, fmt.Errorf("payload is not a valid zlib stream: %w", err)
		}
		if len(content) == 0 {
			return nil, 0, nil, fmt.Errorf("%w: deflated payload is empty", asttype.ErrDecompression)
		}
		return payload, uint64(len(content)), content, nil
	}

	content, err = convertBytes(payload, cfg.conversion)
	if err != nil {
		return nil, 0, nil, err
	}
	if len(content) == 0 {
		return nil, 0, nil, fmt.Errorf("%w: a compressed entry cannot hold an empty payload", asttype.ErrSizeOverflow)
	}
	if cfg.maxEntrySize > 0 && uint64(len(content)) > cfg.maxEntrySize {
		return nil, 0, nil, fmt.Errorf("%w: payload exceeds %d bytes", asttype.ErrSizeOverflow, cfg.maxEntrySize)
	}
	if old, rerr := leaf.reader.ReadAll(e); rerr == nil && bytes.Equal(old, content) {
		return pristine, e.UncompressedSize, content, nil
	}
	stored, err = cfg.pool.Compress(content)
	if err != nil {
		return nil, 0, nil, err
	}
	return stored, uint64(len(content)), content, nil
}

// nestedPayload returns what parent's entry must store once the container
// it holds has been rewritten from before to after.
func (cfg *importConfig) nestedPayload(parent *level, before, after []byte) ([]byte, uint64, error) {
	e := parent.entry
	if bytes.Equal(before, after) {
		stored, err := parent.reader.ReadStored(e)
		return stored, e.UncompressedSize, err
	}
	if !e.Compressed() {
		return after, 0, nil
	}
	stored, err := cfg.pool.Compress(after)
	if err != nil {
		return nil, 0, err
	}
	return stored, uint64(len(after)), nil
}

// preview renders the new payload when it is a texture replacing a texture,
// or any texture when previews are forced. Failures are logged and ignored.
func (cfg *importConfig) preview(leaf *level, addr Address, content []byte) string {
	kind, _ := sniff.Classify(content)
	if !kind.IsTexture() {
		return ""
	}
	if !cfg.forcePreview {
		head, err := leaf.reader.Head(leaf.entry, sniff.ProbeSize)
		if err != nil {
			return ""
		}
		if old, _ := sniff.Classify(head); !old.IsTexture() {
			return ""
		}
	}
	uri, err := cfg.renderer.Render(content)
	if err != nil {
		cfg.logger.Warn("import preview failed", "address", addr.String(), "error", err)
		return ""
	}
	cfg.observer.Preview(addr.String(), uri)
	return uri
}
