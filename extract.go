package ptar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/ptar/internal/tarblock"
	"github.com/meigma/ptar/internal/trailer"
)

// deferredLink records a link creation postponed until every regular
// entry exists on disk. Parallel extraction makes completion order
// nondeterministic, so links cannot be created inline.
type deferredLink struct {
	symbolic bool
	target   string
	path     string
}

// deferredDir records directory metadata applied after extraction, so
// later child writes inside the directory cannot clobber its mtime.
type deferredDir struct {
	path    string
	mode    fs.FileMode
	modTime time.Time
}

// Extract materializes archive under dest.
//
// The offset index trailer is decoded first; each indexed entry becomes
// an independent task, drained by parallel workers reading disjoint byte
// ranges through positioned reads. Hard and symbolic links are staged
// and created serially once the workers join, then directory modes and
// mtimes are restored deepest-first.
//
// Archives without the trailer magic return ErrNotPtarArchive; callers
// are expected to hand those to a standard tar reader. The first fatal
// error aborts every worker; a partial tree may remain under dest.
func Extract(ctx context.Context, archive, dest string, opts ...ExtractOption) error {
	cfg := extractConfig{workers: DefaultWorkers, blockingFactor: DefaultBlockingFactor}
	for _, opt := range opts {
		opt(&cfg)
	}

	in, err := os.Open(archive)
	if err != nil {
		return fmt.Errorf("ptar: %w", err)
	}
	defer in.Close()
	fi, err := in.Stat()
	if err != nil {
		return fmt.Errorf("ptar: %w", err)
	}
	offsets, err := trailer.Read(in, fi.Size())
	if err != nil {
		return err
	}

	tasks := make(chan uint64, cfg.workers*2)
	g, gctx := errgroup.WithContext(ctx)

	links := make([][]deferredLink, cfg.workers)
	dirs := make([][]deferredDir, cfg.workers)
	for i := 0; i < cfg.workers; i++ {
		i := i
		g.Go(func() error {
			w := extractWorker{
				in:      in,
				dest:    dest,
				chunk:   chunkSize(cfg.blockingFactor),
				verbose: cfg.verbose,
			}
			for off := range tasks {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := w.extract(off); err != nil {
					return err
				}
			}
			links[i] = w.links
			dirs[i] = w.dirs
			return nil
		})
	}

	g.Go(func() error {
		defer close(tasks)
		for _, off := range offsets {
			select {
			case tasks <- off:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	if err := applyLinks(dest, links); err != nil {
		return err
	}
	return applyDirMetadata(dirs)
}

// extractWorker materializes entries from the shared input. Positioned
// reads keep the shared handle race-free; the filesystem namespace is
// safe because stored paths are unique by construction.
type extractWorker struct {
	in      *os.File
	dest    string
	chunk   int
	verbose io.Writer
	buf     []byte
	links   []deferredLink
	dirs    []deferredDir
}

func (w *extractWorker) extract(offset uint64) error {
	var blk tarblock.Block
	if n, err := w.in.ReadAt(blk[:], int64(offset)); n != len(blk) {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("ptar: read header at offset %d: %w", offset, err)
	}
	hdr, err := tarblock.Decode(&blk)
	if err != nil {
		if errors.Is(err, tarblock.ErrChecksum) {
			return &CorruptHeaderError{Offset: offset}
		}
		return err
	}

	name := strings.TrimSuffix(hdr.Name, "/")
	path := filepath.Join(w.dest, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ptar: %w", err)
	}
	if w.verbose != nil {
		fmt.Fprintln(w.verbose, hdr.Name)
	}

	mode := fs.FileMode(hdr.Mode & 0o777)
	modTime := time.Unix(hdr.ModTime, 0)

	switch {
	case hdr.TypeFlag == tarblock.TypeDir || strings.HasSuffix(hdr.Name, "/"):
		// Force owner access until the metadata pass; the archived mode
		// may not permit writing the directory's children.
		if err := os.MkdirAll(path, mode|0o700); err != nil {
			return fmt.Errorf("ptar: %w", err)
		}
		w.dirs = append(w.dirs, deferredDir{path: path, mode: mode, modTime: modTime})
		return nil

	case hdr.TypeFlag == tarblock.TypeHardlink || hdr.TypeFlag == tarblock.TypeSymlink:
		w.links = append(w.links, deferredLink{
			symbolic: hdr.TypeFlag == tarblock.TypeSymlink,
			target:   hdr.LinkName,
			path:     path,
		})
		return nil

	default:
		return w.extractFile(hdr, offset, path, mode, modTime)
	}
}

// extractFile streams exactly hdr.Size bytes from the archive into path.
func (w *extractWorker) extractFile(hdr *tarblock.Header, offset uint64, path string, mode fs.FileMode, modTime time.Time) error {
	if w.buf == nil {
		w.buf = make([]byte, w.chunk)
	}
	out, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return fmt.Errorf("ptar: %w", err)
	}

	src := int64(offset) + tarblock.BlockSize
	remaining := hdr.Size
	for remaining > 0 {
		n := int64(len(w.buf))
		if remaining < n {
			n = remaining
		}
		if rn, err := w.in.ReadAt(w.buf[:n], src); int64(rn) != n {
			out.Close()
			if err == nil {
				err = io.ErrUnexpectedEOF
			}
			return fmt.Errorf("ptar: read %s: %w", hdr.Name, err)
		}
		if _, err := out.Write(w.buf[:n]); err != nil {
			out.Close()
			return fmt.Errorf("ptar: write %s: %w", path, err)
		}
		src += n
		remaining -= n
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("ptar: %w", err)
	}

	// The open mode is filtered through the umask; restore the archived
	// bits explicitly.
	if err := os.Chmod(path, mode); err != nil {
		return fmt.Errorf("ptar: %w", err)
	}
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		return fmt.Errorf("ptar: %w", err)
	}
	return nil
}

// applyLinks creates hard and symbolic links serially once every regular
// entry exists. Hard-link targets are stored names and resolve under
// dest; symlink targets are reproduced verbatim, never dereferenced.
func applyLinks(dest string, perWorker [][]deferredLink) error {
	for _, links := range perWorker {
		for _, l := range links {
			if l.symbolic {
				if err := os.Symlink(l.target, l.path); err != nil {
					return fmt.Errorf("ptar: %w", err)
				}
				continue
			}
			target := filepath.Join(dest, filepath.FromSlash(l.target))
			if err := os.Link(target, l.path); err != nil {
				return fmt.Errorf("ptar: %w", err)
			}
		}
	}
	return nil
}

// applyDirMetadata restores directory modes and mtimes, deepest paths
// first so parent updates land after all children are final.
func applyDirMetadata(perWorker [][]deferredDir) error {
	var dirs []deferredDir
	for _, d := range perWorker {
		dirs = append(dirs, d...)
	}
	slices.SortFunc(dirs, func(a, b deferredDir) int {
		return len(b.path) - len(a.path)
	})
	for _, d := range dirs {
		if err := os.Chmod(d.path, d.mode); err != nil {
			return fmt.Errorf("ptar: %w", err)
		}
		if err := os.Chtimes(d.path, d.modTime, d.modTime); err != nil {
			return fmt.Errorf("ptar: %w", err)
		}
	}
	return nil
}
