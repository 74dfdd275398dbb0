// Package ptar creates and extracts tar archives with many workers
// operating concurrently on one shared archive file.
//
// A single-threaded planner walks the input trees, stats every entry, and
// assigns each a byte offset in the output; writer workers then
// materialize entries independently with positioned writes, coordinating
// only through the planner's disjoint-offset guarantee. An offset index
// is appended after the two standard end-of-archive blocks and tagged
// with the "!!PTAR!!" magic, so extraction can parallelize the same way.
// Standard tar readers stop at the zero blocks and never see the index.
//
// Archives use the pre-POSIX.1-1988 (v7) header format: ASCII names and
// link targets up to 100 bytes, sizes below 8GiB, regular files,
// directories, hard links, and symbolic links. Inputs the format cannot
// represent are rejected rather than approximated.
//
// # Quick Start
//
// Create an archive from two trees:
//
//	err := ptar.Create(ctx, "out.tar", []string{"src", "docs"},
//	    ptar.CreateWithWorkers(32),
//	)
//
// Extract it elsewhere, falling back to the system tar for archives made
// by other tools:
//
//	err := ptar.Extract(ctx, "out.tar", "/tmp/dest")
//	if errors.Is(err, ptar.ErrNotPtarArchive) {
//	    // plain tar: hand off to the host tar utility
//	}
//
// # Concurrency
//
// The archive file is the only shared resource. During create, each
// worker holds its own read-write handle and writes header and contents
// at its item's offset; the planner guarantees no two items share a byte.
// During extract, workers read disjoint ranges of the input and write
// distinct paths; hard and symbolic links are staged and created serially
// once every regular entry exists, and directory metadata is restored in
// a final pass so child writes cannot clobber it.
package ptar
