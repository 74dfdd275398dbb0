//go:build !unix

package platform

import "io/fs"

// FileOwner returns zero ownership on platforms without Unix stat data.
func FileOwner(info fs.FileInfo) (uid, gid int) {
	return 0, 0
}

// FileID returns a unit link count on platforms without Unix stat data,
// so hard-link detection degrades to archiving every path as a regular
// file.
func FileID(info fs.FileInfo) (dev, ino, nlink uint64) {
	return 0, 0, 1
}
