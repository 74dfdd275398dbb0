package ptar

import (
	"fmt"

	"github.com/meigma/ptar/internal/plan"
	"github.com/meigma/ptar/internal/tarblock"
	"github.com/meigma/ptar/internal/trailer"
)

// Errors re-exported from internal packages.
var (
	// ErrNameTooLong is returned during create when a stored name
	// (including the trailing slash appended to directories) exceeds the
	// 100-byte v7 field.
	ErrNameTooLong = tarblock.ErrNameTooLong

	// ErrLinkTooLong is returned during create when a link target exceeds
	// the 100-byte v7 field.
	ErrLinkTooLong = tarblock.ErrLinkTooLong

	// ErrSizeOverflow is returned during create when a file size does not
	// fit the 11-octal-digit size field.
	ErrSizeOverflow = tarblock.ErrSizeOverflow

	// ErrChecksum is returned when a header fails its checksum. Errors of
	// type CorruptHeaderError match it with errors.Is.
	ErrChecksum = tarblock.ErrChecksum

	// ErrUnsupportedType is returned during create for devices, FIFOs,
	// and sockets.
	ErrUnsupportedType = plan.ErrUnsupportedType

	// ErrNotPtarArchive is returned by Extract and List when the archive
	// lacks the trailer magic. It is not fatal: callers hand such
	// archives to a standard tar reader.
	ErrNotPtarArchive = trailer.ErrNoTrailer
)

// CorruptHeaderError reports a checksum mismatch at a header offset.
type CorruptHeaderError struct {
	Offset uint64
}

func (e *CorruptHeaderError) Error() string {
	return fmt.Sprintf("ptar: corrupt header at offset %d", e.Offset)
}

// Unwrap lets errors.Is match ErrChecksum.
func (e *CorruptHeaderError) Unwrap() error {
	return tarblock.ErrChecksum
}
