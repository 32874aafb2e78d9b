package batch

import (
	"io"

	"github.com/meigma/astedit/core/internal/asttype"
)

// Item is one entry queued for extraction under a sink-relative name.
type Item struct {
	Entry *asttype.Entry
	Name  string
}

// Sink receives entry payloads during batch processing.
//
// Implementations determine where content is written and can filter which
// items to process.
type Sink interface {
	// ShouldProcess returns false if this item should be skipped, for
	// example because its file already exists.
	ShouldProcess(name string) bool

	// Writer returns a writer for the item's content. The caller writes the
	// payload and then calls Commit, or Discard on any error.
	Writer(name string) (Committer, error)
}

// Committer is a writer that can be committed or discarded.
type Committer interface {
	io.Writer

	// Commit finalizes the write, making content available.
	Commit() error

	// Discard aborts the write and cleans up any temporary resources.
	Discard() error
}

// Stats counts the outcome of a Process call.
type Stats struct {
	// Processed is the number of items written to the sink.
	Processed int

	// Skipped is the number of items the sink declined.
	Skipped int

	// Bytes is the number of payload bytes written.
	Bytes uint64
}
