//go:build unix

package platform

import (
	"io/fs"
	"syscall"
)

// FileOwner extracts UID and GID from file info on Unix systems.
func FileOwner(info fs.FileInfo) (uid, gid int) {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return int(stat.Uid), int(stat.Gid)
	}
	return 0, 0
}

// FileID returns the (device, inode) identity of a file plus its
// hard-link count. Two paths sharing the same identity name one inode.
func FileID(info fs.FileInfo) (dev, ino, nlink uint64) {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		//nolint:unconvert // Dev and Nlink widths vary across Unix flavors
		return uint64(stat.Dev), uint64(stat.Ino), uint64(stat.Nlink)
	}
	return 0, 0, 1
}
