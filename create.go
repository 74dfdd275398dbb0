package ptar

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/ptar/internal/plan"
	"github.com/meigma/ptar/internal/tarblock"
	"github.com/meigma/ptar/internal/trailer"
)

// chunkSize returns the read/write chunk for a blocking factor.
func chunkSize(blockingFactor int) int {
	return blockingFactor * 4096
}

// Create archives roots into archive, replacing any existing file.
//
// The planner walks the roots serially, assigning every entry a byte
// offset, while writer workers drain the resulting work items in
// parallel, each writing header and contents at its item's offset
// through an independent file handle. After the workers join, the two
// end-of-archive zero blocks and the offset index trailer are appended.
//
// The archive path must be on a seekable filesystem; output to a pipe is
// not supported. The first error aborts every worker and is returned;
// a partial output file may remain.
//
// The context cancels planning and all workers.
func Create(ctx context.Context, archive string, roots []string, opts ...CreateOption) error {
	cfg := createConfig{workers: DefaultWorkers, blockingFactor: DefaultBlockingFactor}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := os.Remove(archive); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ptar: %w", err)
	}
	f, err := os.OpenFile(archive, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("ptar: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("ptar: %w", err)
	}

	// Bounded work queue; closing it is the termination signal for the
	// whole pool.
	items := make(chan plan.Item, cfg.workers*2)
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < cfg.workers; i++ {
		g.Go(func() error {
			w := entryWriter{
				archive: archive,
				chunk:   chunkSize(cfg.blockingFactor),
				verbose: cfg.verbose,
			}
			defer w.close()
			for item := range items {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := w.write(item); err != nil {
					return err
				}
			}
			return nil
		})
	}

	p := plan.New()
	g.Go(func() error {
		defer close(items)
		return p.Walk(roots, func(item plan.Item) error {
			select {
			case items <- item:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return finalize(archive, p.Offsets())
}

// finalize terminates the archive: two zero blocks, then the offset
// index.
func finalize(archive string, offsets []uint64) error {
	out, err := os.OpenFile(archive, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return fmt.Errorf("ptar: %w", err)
	}
	var zeros [2 * tarblock.BlockSize]byte
	if _, err := out.Write(zeros[:]); err != nil {
		out.Close()
		return fmt.Errorf("ptar: %w", err)
	}
	if err := trailer.Write(out, offsets); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("ptar: %w", err)
	}
	return nil
}

// entryWriter owns one worker's lazily opened handle to the shared
// output. Workers never share state; items carry disjoint offsets, so
// positioned writes need no locking.
type entryWriter struct {
	archive string
	chunk   int
	verbose io.Writer
	out     *os.File
	buf     []byte
}

func (w *entryWriter) open() error {
	if w.out != nil {
		return nil
	}
	out, err := os.OpenFile(w.archive, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("ptar: %w", err)
	}
	w.out = out
	w.buf = make([]byte, w.chunk)
	return nil
}

func (w *entryWriter) close() {
	if w.out != nil {
		w.out.Close()
	}
}

// write materializes one planned entry at its assigned offset.
func (w *entryWriter) write(item plan.Item) error {
	if err := w.open(); err != nil {
		return err
	}
	blk, err := item.Header.Encode()
	if err != nil {
		return fmt.Errorf("ptar: %s: %w", item.Header.Name, err)
	}
	if _, err := w.out.WriteAt(blk[:], int64(item.Offset)); err != nil {
		return fmt.Errorf("ptar: write header %s: %w", item.Header.Name, err)
	}
	if w.verbose != nil {
		fmt.Fprintln(w.verbose, item.Header.Name)
	}
	if item.Header.TypeFlag != tarblock.TypeReg {
		return nil
	}
	return w.writeContents(item)
}

// writeContents streams the source file into the archive directly after
// the header, then zero-pads to the block boundary.
func (w *entryWriter) writeContents(item plan.Item) error {
	src, err := os.Open(item.Path)
	if err != nil {
		return fmt.Errorf("ptar: %w", err)
	}
	defer src.Close()

	off := int64(item.Offset) + tarblock.BlockSize
	remaining := item.Header.Size
	for remaining > 0 {
		n := int64(len(w.buf))
		if remaining < n {
			n = remaining
		}
		if _, err := io.ReadFull(src, w.buf[:n]); err != nil {
			return fmt.Errorf("ptar: read %s: %w", item.Path, err)
		}
		if _, err := w.out.WriteAt(w.buf[:n], off); err != nil {
			return fmt.Errorf("ptar: write %s: %w", item.Header.Name, err)
		}
		off += n
		remaining -= n
	}

	if pad := tarblock.Padding(item.Header.Size); pad > 0 {
		zeros := make([]byte, pad)
		if _, err := w.out.WriteAt(zeros, off); err != nil {
			return fmt.Errorf("ptar: write %s: %w", item.Header.Name, err)
		}
	}
	return nil
}
