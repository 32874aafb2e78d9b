package ast

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/meigma/astedit/core/internal/file"
)

// Export streams the node at addr to w and returns the number of bytes
// written.
//
// Progress is reported once per container decoded on the way down and once
// more when the payload has been written, as round(k/N*100) with N equal to
// the address depth plus one. Exporting a root address copies the whole
// container. Bytes already written to w stay written when Export fails.
func Export(ctx context.Context, src Source, addr Address, w io.Writer, opts ...ExportOption) (int64, error) {
	cfg := newExportConfig(opts)
	total := addr.Depth() + 1
	report := func(k int) {
		cfg.observer.Progress(percent(k, total))
	}
	cw := &file.CountingWriter{W: w}

	if addr.IsRoot() {
		if err := copyConverted(cw, io.NewSectionReader(src, 0, src.Size()), cfg.conversion); err != nil {
			return cw.N, fmt.Errorf("export %s: %w", addr, err)
		}
		report(total)
		return cw.N, nil
	}

	wk := &walker{maxEntrySize: cfg.maxEntrySize, onLevel: report}
	levels, err := wk.walk(ctx, src, addr)
	if err != nil {
		return 0, err
	}
	leaf := levels[len(levels)-1]

	inflate := cfg.decompress || cfg.conversion != ConvertNone
	rc, err := leaf.reader.Open(leaf.entry, inflate)
	if err != nil {
		return 0, fmt.Errorf("export %s: %w", addr, err)
	}
	defer rc.Close()

	if err := copyConverted(cw, rc, cfg.conversion); err != nil {
		return cw.N, fmt.Errorf("export %s: %w", addr, err)
	}
	cfg.logger.Debug("exported node", "address", addr.String(), "bytes", cw.N,
		"inflated", inflate && leaf.entry.Compressed(), "conversion", cfg.conversion.String())
	report(total)
	return cw.N, nil
}

// percent returns round(k/n*100).
func percent(k, n int) int {
	if n <= 0 {
		return 100
	}
	return int(math.Round(float64(k) * 100 / float64(n)))
}
