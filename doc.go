// Package flatfile is an embedded flat-file record store: typed records
// persisted to a single file with create/read/update/delete access by a
// string id, no external database process.
//
// Two engines are provided. Package slotfile stores fixed-width binary
// records in equal-size slots over a memory-mapped file. Package linefile
// stores variable-length records as one text line each, appending on insert
// and rewriting the whole file on update or delete.
//
// Both engines serialize access across processes with whole-file advisory
// locks and detect modifications made outside the current handle by
// comparing the file's (mtime, size) pair before trusting any cached state.
// A single store handle is not safe for concurrent use from multiple
// goroutines; use one handle per goroutine.
package flatfile
