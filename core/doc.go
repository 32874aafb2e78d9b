// Package ast reads and edits nested AST archive containers.
//
// A container is a fixed header followed by a table of contents (TOC) and
// the entry payloads it describes. Payloads may be zlib-compressed, and a
// payload may itself be another container, so a single node is addressed by
// a root key plus the chain of TOC indices leading to it (see Address).
//
// The package provides:
//   - Parse: list a container, sniff entry kinds, render texture previews and
//     recurse into nested containers.
//   - Resolve: walk an index chain and return the addressed entry.
//   - Export: stream one node to a writer, optionally inflated or converted.
//   - Extract: write every entry of a container to its own file.
//   - Import: replace one node's payload and re-serialize every container on
//     its path so that all other bytes of the root are reproduced exactly.
//
// No parsed tree is cached between calls; every operation re-reads the
// containers it walks so results always reflect the bytes on disk.
//
// Any io.ReaderAt with a Size method is a Source. The http subpackage
// provides one backed by HTTP range requests.
package ast
