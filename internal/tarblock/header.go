// Package tarblock encodes and decodes pre-POSIX.1-1988 (v7) tar headers.
//
// The v7 format predates the ustar magic: a header is a bare 512-byte
// block with fixed-width octal fields and a byte-sum checksum. Names and
// link targets are limited to 100 bytes, sizes to 33 bits.
package tarblock

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// BlockSize is the size of every tar block, header or data.
const BlockSize = 512

const (
	nameSize = 100
	linkSize = 100

	// maxSize is the first size that no longer fits in the 11-octal-digit
	// size field.
	maxSize = int64(1) << 33
)

// Type flags stored in the header's type field.
const (
	TypeReg      byte = '0'
	TypeHardlink byte = '1'
	TypeSymlink  byte = '2'
	TypeDir      byte = '5'
)

var (
	// ErrNameTooLong is returned when a stored name (including the
	// trailing slash appended to directories) exceeds 100 bytes.
	ErrNameTooLong = errors.New("tarblock: name exceeds 100 bytes")

	// ErrLinkTooLong is returned when a link target exceeds 100 bytes.
	ErrLinkTooLong = errors.New("tarblock: link target exceeds 100 bytes")

	// ErrSizeOverflow is returned when a file size does not fit the
	// 11-octal-digit size field.
	ErrSizeOverflow = errors.New("tarblock: file size exceeds size field limit")

	// ErrChecksum is returned when a decoded header fails its checksum.
	ErrChecksum = errors.New("tarblock: header checksum mismatch")
)

// Block is one 512-byte tar block.
type Block [BlockSize]byte

// Field accessors, offsets per the v7 layout.
func (b *Block) name() []byte     { return b[0:][:nameSize] }
func (b *Block) mode() []byte     { return b[100:][:8] }
func (b *Block) uid() []byte      { return b[108:][:8] }
func (b *Block) gid() []byte      { return b[116:][:8] }
func (b *Block) size() []byte     { return b[124:][:12] }
func (b *Block) modTime() []byte  { return b[136:][:12] }
func (b *Block) checksum() []byte { return b[148:][:8] }
func (b *Block) typeFlag() []byte { return b[156:][:1] }
func (b *Block) linkName() []byte { return b[157:][:linkSize] }

// ComputeChecksum sums all 512 bytes as unsigned values with the checksum
// field itself taken as eight ASCII spaces.
func (b *Block) ComputeChecksum() int64 {
	var sum int64
	for i, c := range b {
		if i >= 148 && i < 156 {
			c = ' '
		}
		sum += int64(c)
	}
	return sum
}

func (b *Block) setChecksum() {
	// Six octal digits, NUL, space. The sum of 512 bytes never exceeds
	// six octal digits.
	s := fmt.Sprintf("%06o\x00 ", b.ComputeChecksum())
	copy(b.checksum(), s)
}

// IsZero reports whether the block is all zeros, i.e. end-of-archive filler.
func (b *Block) IsZero() bool {
	return *b == Block{}
}

// Header describes one archive entry in decoded form.
//
// Name carries the trailing slash for directories. Size is meaningful for
// regular entries only; the encoder stores 0 for every other kind.
type Header struct {
	Name     string
	Mode     int64
	UID      int
	GID      int
	Size     int64
	ModTime  int64
	TypeFlag byte
	LinkName string
}

// Validate checks the v7 field limits the format cannot represent beyond.
func (h *Header) Validate() error {
	if len(h.Name) > nameSize {
		return ErrNameTooLong
	}
	if len(h.LinkName) > linkSize {
		return ErrLinkTooLong
	}
	if h.Size < 0 || h.Size >= maxSize {
		return ErrSizeOverflow
	}
	return nil
}

// Encode renders the header as a 512-byte block with a valid checksum.
func (h *Header) Encode() (*Block, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}

	b := new(Block)
	copy(b.name(), h.Name)
	formatOctal(b.mode(), h.Mode&0o777)
	formatOctal(b.uid(), int64(h.UID))
	formatOctal(b.gid(), int64(h.GID))
	size := h.Size
	if h.TypeFlag != TypeReg {
		size = 0
	}
	formatOctal(b.size(), size)
	formatOctal(b.modTime(), h.ModTime)
	b.typeFlag()[0] = h.TypeFlag
	copy(b.linkName(), h.LinkName)
	b.setChecksum()
	return b, nil
}

// Decode parses a header block, verifying its checksum first.
func Decode(b *Block) (*Header, error) {
	stored, err := parseOctal(b.checksum())
	if err != nil || stored != b.ComputeChecksum() {
		return nil, ErrChecksum
	}

	h := &Header{
		Name:     cstring(b.name()),
		TypeFlag: b.typeFlag()[0],
		LinkName: cstring(b.linkName()),
	}
	fields := []struct {
		dst *int64
		src []byte
	}{
		{&h.Mode, b.mode()},
		{&h.Size, b.size()},
		{&h.ModTime, b.modTime()},
	}
	for _, f := range fields {
		if *f.dst, err = parseOctal(f.src); err != nil {
			return nil, fmt.Errorf("tarblock: %w", err)
		}
	}
	uid, err := parseOctal(b.uid())
	if err != nil {
		return nil, fmt.Errorf("tarblock: %w", err)
	}
	gid, err := parseOctal(b.gid())
	if err != nil {
		return nil, fmt.Errorf("tarblock: %w", err)
	}
	h.UID = int(uid)
	h.GID = int(gid)
	return h, nil
}

// Padding returns the zero bytes needed after size payload bytes to reach
// the next block boundary.
func Padding(size int64) int64 {
	return -size & (BlockSize - 1)
}

// formatOctal writes v as zero-padded octal digits filling the field up to
// a terminating NUL. Values too wide for the field (possible only for
// uid/gid, which v7 cannot represent past 7 digits) keep their low-order
// digits.
func formatOctal(field []byte, v int64) {
	s := strconv.FormatInt(v, 8)
	if len(s) > len(field)-1 {
		s = s[len(s)-len(field)+1:]
	}
	for i := 0; i < len(field)-1-len(s); i++ {
		field[i] = '0'
	}
	copy(field[len(field)-1-len(s):], s)
	field[len(field)-1] = 0
}

// parseOctal reads an octal field, tolerating leading/trailing NULs and
// spaces. An empty field decodes as zero.
func parseOctal(field []byte) (int64, error) {
	s := string(bytes.Trim(field, " \x00"))
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 8, 64)
}

// cstring strips everything from the first NUL on.
func cstring(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}
	return string(field)
}
