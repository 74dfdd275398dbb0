package ptar

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/meigma/ptar/internal/tarblock"
	"github.com/meigma/ptar/internal/trailer"
)

// List decodes every indexed header and returns the entries in planner
// emission order, without touching entry contents.
//
// Archives without the trailer magic return ErrNotPtarArchive.
func List(archive string) ([]Entry, error) {
	in, err := os.Open(archive)
	if err != nil {
		return nil, fmt.Errorf("ptar: %w", err)
	}
	defer in.Close()
	fi, err := in.Stat()
	if err != nil {
		return nil, fmt.Errorf("ptar: %w", err)
	}
	offsets, err := trailer.Read(in, fi.Size())
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(offsets))
	for _, off := range offsets {
		var blk tarblock.Block
		if n, err := in.ReadAt(blk[:], int64(off)); n != len(blk) {
			if err == nil {
				err = io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("ptar: read header at offset %d: %w", off, err)
		}
		hdr, err := tarblock.Decode(&blk)
		if err != nil {
			if errors.Is(err, tarblock.ErrChecksum) {
				return nil, &CorruptHeaderError{Offset: off}
			}
			return nil, err
		}
		entries = append(entries, Entry{
			Name:     hdr.Name,
			Mode:     fs.FileMode(hdr.Mode & 0o777),
			UID:      hdr.UID,
			GID:      hdr.GID,
			Size:     hdr.Size,
			ModTime:  time.Unix(hdr.ModTime, 0),
			Kind:     Kind(hdr.TypeFlag),
			LinkName: hdr.LinkName,
			Offset:   off,
		})
	}
	return entries, nil
}
