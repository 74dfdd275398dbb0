package ptar

import (
	"io/fs"
	"time"

	"github.com/meigma/ptar/internal/tarblock"
)

// Kind identifies what an archive entry describes. The values are the
// v7 header type digits.
type Kind byte

const (
	KindRegular  Kind = Kind(tarblock.TypeReg)
	KindHardlink Kind = Kind(tarblock.TypeHardlink)
	KindSymlink  Kind = Kind(tarblock.TypeSymlink)
	KindDir      Kind = Kind(tarblock.TypeDir)
)

func (k Kind) String() string {
	switch k {
	case KindRegular:
		return "regular"
	case KindHardlink:
		return "hardlink"
	case KindSymlink:
		return "symlink"
	case KindDir:
		return "directory"
	default:
		return "unknown"
	}
}

// Entry describes one archived filesystem object.
//
// Name is the stored name; directories carry their trailing slash.
// LinkName is set for hard and symbolic links only. Offset is the byte
// position of the entry's header within the archive.
type Entry struct {
	Name     string
	Mode     fs.FileMode
	UID      int
	GID      int
	Size     int64
	ModTime  time.Time
	Kind     Kind
	LinkName string
	Offset   uint64
}
