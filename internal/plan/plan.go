// Package plan walks input trees and assigns every entry its byte offset
// in the output archive.
//
// Offset assignment is strictly serial; writer workers rely on the
// resulting byte ranges being pairwise disjoint and never coordinate
// among themselves.
package plan

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/meigma/ptar/internal/platform"
	"github.com/meigma/ptar/internal/tarblock"
)

// ErrUnsupportedType reports a device, FIFO, or socket input, which the
// v7 header format cannot represent.
var ErrUnsupportedType = errors.New("plan: unsupported file type")

// Item is one unit of work for a writer worker: the filesystem path to
// read, the ready-to-encode header, and the archive offset it lands at.
//
// Each item is consumed by exactly one worker.
type Item struct {
	Path   string
	Header tarblock.Header
	Offset uint64
}

type linkKey struct {
	dev uint64
	ino uint64
}

// Planner tracks the running offset, the emission-order offset list that
// becomes the trailer, and the hard-link table.
type Planner struct {
	offset  uint64
	offsets []uint64
	links   map[linkKey]string
}

// New returns a planner with an empty link table.
func New() *Planner {
	return &Planner{links: make(map[linkKey]string)}
}

// Offsets returns the assigned header offsets in emission order.
func (p *Planner) Offsets() []uint64 {
	return p.offsets
}

// Walk visits every root and hands each planned entry to emit. File and
// symlink roots are emitted directly; directory roots are walked
// depth-first (lexical order, no working-directory changes), producing
// the root itself and everything below it.
//
// Any stat failure or format-limit violation aborts the walk.
func (p *Planner) Walk(roots []string, emit func(Item) error) error {
	for _, root := range roots {
		info, err := os.Lstat(root)
		if err != nil {
			return fmt.Errorf("plan: %w", err)
		}
		if !info.IsDir() {
			if err := p.emitEntry(root, info, emit); err != nil {
				return err
			}
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return fmt.Errorf("plan: %w", walkErr)
			}
			info, err := d.Info()
			if err != nil {
				return fmt.Errorf("plan: %w", err)
			}
			return p.emitEntry(path, info, emit)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// emitEntry builds the header, records the entry's offset, and advances
// the running offset by the entry's on-disk span.
func (p *Planner) emitEntry(path string, info fs.FileInfo, emit func(Item) error) error {
	hdr, err := p.header(path, info)
	if err != nil {
		return err
	}
	if err := hdr.Validate(); err != nil {
		return fmt.Errorf("plan: %s: %w", path, err)
	}

	item := Item{Path: path, Header: hdr, Offset: p.offset}
	p.offsets = append(p.offsets, p.offset)
	p.offset += tarblock.BlockSize
	if hdr.TypeFlag == tarblock.TypeReg {
		p.offset += uint64(hdr.Size + tarblock.Padding(hdr.Size))
	}
	return emit(item)
}

func (p *Planner) header(path string, info fs.FileInfo) (tarblock.Header, error) {
	uid, gid := platform.FileOwner(info)
	hdr := tarblock.Header{
		Name:    filepath.ToSlash(path),
		Mode:    int64(info.Mode().Perm()),
		UID:     uid,
		GID:     gid,
		ModTime: info.ModTime().Unix(),
	}

	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		target, err := os.Readlink(path)
		if err != nil {
			return tarblock.Header{}, fmt.Errorf("plan: %w", err)
		}
		hdr.TypeFlag = tarblock.TypeSymlink
		hdr.LinkName = target

	case info.IsDir():
		hdr.TypeFlag = tarblock.TypeDir
		hdr.Name += "/"

	case info.Mode().IsRegular():
		hdr.TypeFlag = tarblock.TypeReg
		hdr.Size = info.Size()
		// Only multiply-linked files can alias an inode already seen.
		if dev, ino, nlink := platform.FileID(info); nlink > 1 {
			key := linkKey{dev: dev, ino: ino}
			if first, ok := p.links[key]; ok {
				hdr.TypeFlag = tarblock.TypeHardlink
				hdr.LinkName = first
				hdr.Size = 0
			} else {
				p.links[key] = hdr.Name
			}
		}

	default:
		return tarblock.Header{}, fmt.Errorf("plan: %s: %w", path, ErrUnsupportedType)
	}
	return hdr, nil
}
