package file

import (
	"fmt"

	"github.com/meigma/astedit/core/internal/asttype"
	"github.com/meigma/astedit/core/internal/sizing"
)

// ValidateForRead checks that an entry is safe to read from a source of the given size.
// It validates:
//   - Source size is non-negative
//   - Stored and declared inflated sizes are within maxEntrySize (if limit > 0)
//   - Start + raw size doesn't overflow
//   - The payload lies within source bounds
func ValidateForRead(entry *asttype.Entry, sourceSize int64, maxEntrySize uint64) error {
	if sourceSize < 0 {
		return asttype.ErrSizeOverflow
	}

	if maxEntrySize > 0 {
		if entry.RawSize > maxEntrySize || entry.UncompressedSize > maxEntrySize {
			return fmt.Errorf("%w: entry exceeds %d bytes", asttype.ErrSizeOverflow, maxEntrySize)
		}
	}

	end, ok := sizing.AddUint64(entry.Start, entry.RawSize)
	if !ok {
		return asttype.ErrSizeOverflow
	}
	if end > uint64(sourceSize) {
		return fmt.Errorf("%w: payload [%d,%d) past end of %d bytes", asttype.ErrMalformed, entry.Start, end, sourceSize)
	}
	return nil
}
