// Package trailer reads and writes the offset index appended after an
// archive's two end-of-archive zero blocks.
//
// The trailer is what lets extraction parallelize: it records every
// entry's header offset in planner emission order. Standard tar readers
// stop at the zero blocks and never see it.
package trailer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Magic identifies an archive that carries an offset index.
const Magic = "!!PTAR!!"

const (
	magicSize = 8
	countSize = 8
	fixedSize = magicSize + countSize
)

// ErrNoTrailer reports that the archive does not end with the magic and
// must be handled as a plain tar file.
var ErrNoTrailer = errors.New("trailer: ptar magic not found")

// Size returns the encoded trailer size for n entries.
func Size(n int) int64 {
	return int64(n)*8 + fixedSize
}

// Write appends the index: each offset big-endian, then the count, then
// the magic.
func Write(w io.Writer, offsets []uint64) error {
	buf := make([]byte, Size(len(offsets)))
	for i, off := range offsets {
		binary.BigEndian.PutUint64(buf[i*8:], off)
	}
	binary.BigEndian.PutUint64(buf[len(offsets)*8:], uint64(len(offsets)))
	copy(buf[len(offsets)*8+countSize:], Magic)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("trailer: %w", err)
	}
	return nil
}

// Read probes the tail of an archive of the given size for the magic and
// decodes the offset index. ErrNoTrailer means the archive predates the
// trailer protocol (or was made by another tool).
func Read(r io.ReaderAt, size int64) ([]uint64, error) {
	if size < fixedSize {
		return nil, ErrNoTrailer
	}

	var tail [fixedSize]byte
	if err := readFull(r, tail[:], size-fixedSize); err != nil {
		return nil, err
	}
	if string(tail[countSize:]) != Magic {
		return nil, ErrNoTrailer
	}

	count := binary.BigEndian.Uint64(tail[:countSize])
	if count > uint64(size-fixedSize)/8 {
		return nil, fmt.Errorf("trailer: impossible entry count %d", count)
	}

	buf := make([]byte, count*8)
	if err := readFull(r, buf, size-Size(int(count))); err != nil {
		return nil, err
	}
	offsets := make([]uint64, count)
	for i := range offsets {
		offsets[i] = binary.BigEndian.Uint64(buf[i*8:])
	}
	return offsets, nil
}

func readFull(r io.ReaderAt, buf []byte, off int64) error {
	n, err := r.ReadAt(buf, off)
	if n != len(buf) {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("trailer: %w", err)
	}
	return nil
}
