package ptar

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/meigma/ptar/internal/tarblock"
	"github.com/meigma/ptar/internal/trailer"
)

func TestCreateSingleFileLayout(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("abc"), 0o644))
	pinTimes(t, dir)
	archive := createArchive(t, dir, []string{"a.txt"})

	data, err := os.ReadFile(archive)
	require.NoError(t, err)

	// Header block, one padded data block, two zero blocks, trailer.
	require.Equal(t, int64(len(data)), 512+512+1024+trailer.Size(1))

	var blk tarblock.Block
	copy(blk[:], data[:512])
	hdr, err := tarblock.Decode(&blk)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", hdr.Name)
	assert.Equal(t, int64(3), hdr.Size)
	assert.Equal(t, int64(0o644), hdr.Mode)
	assert.Equal(t, testModTime.Unix(), hdr.ModTime)
	assert.Equal(t, tarblock.TypeReg, hdr.TypeFlag)

	assert.Equal(t, "abc", string(data[512:515]))
	assert.Equal(t, make([]byte, 509), data[515:1024], "content padding")
	assert.Equal(t, make([]byte, 1024), data[1024:2048], "end-of-archive blocks")

	offsets, err := trailer.Read(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, []uint64{0}, offsets)
}

func TestCreateEmptyDirLayout(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "d"), 0o755))
	pinTimes(t, dir)
	archive := createArchive(t, dir, []string{"d"})

	data, err := os.ReadFile(archive)
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), 512+1024+trailer.Size(1))

	var blk tarblock.Block
	copy(blk[:], data[:512])
	hdr, err := tarblock.Decode(&blk)
	require.NoError(t, err)
	assert.Equal(t, "d/", hdr.Name)
	assert.Equal(t, tarblock.TypeDir, hdr.TypeFlag)
	assert.Equal(t, int64(0), hdr.Size)
}

func TestCreateHardLinkLayout(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tree"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tree", "a"), []byte("shared"), 0o644))
	require.NoError(t, os.Link(filepath.Join(dir, "tree", "a"), filepath.Join(dir, "tree", "b")))
	pinTimes(t, dir)
	archive := createArchive(t, dir, []string{"tree"})

	entries, err := List(archive)
	require.NoError(t, err)
	byName := make(map[string]Entry)
	for _, e := range entries {
		byName[e.Name] = e
	}
	assert.Equal(t, KindRegular, byName["tree/a"].Kind)
	assert.Equal(t, KindHardlink, byName["tree/b"].Kind)
	assert.Equal(t, "tree/a", byName["tree/b"].LinkName)
}

func TestCreateSymlinkLayout(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Symlink("target.txt", filepath.Join(dir, "s")))
	archive := createArchive(t, dir, []string{"s"})

	entries, err := List(archive)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, KindSymlink, entries[0].Kind)
	assert.Equal(t, "target.txt", entries[0].LinkName)
	assert.Equal(t, int64(0), entries[0].Size)
}

func TestCreateNameTooLong(t *testing.T) {
	dir := t.TempDir()
	long := strings.Repeat("n", 101)
	require.NoError(t, os.WriteFile(filepath.Join(dir, long), nil, 0o644))
	testChdir(t, dir)

	err := Create(context.Background(), filepath.Join(t.TempDir(), "out.tar"), []string{long})
	require.ErrorIs(t, err, ErrNameTooLong)
}

func TestCreateUnsupportedType(t *testing.T) {
	dir := t.TempDir()
	fifo := filepath.Join(dir, "fifo")
	if err := unix.Mkfifo(fifo, 0o644); err != nil {
		t.Skipf("mkfifo: %v", err)
	}
	testChdir(t, dir)

	err := Create(context.Background(), filepath.Join(t.TempDir(), "out.tar"), []string{"fifo"})
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestCreateReplacesExistingArchive(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), []byte("x"), 0o644))
	pinTimes(t, dir)

	archive := filepath.Join(t.TempDir(), "out.tar")
	require.NoError(t, os.WriteFile(archive, make([]byte, 1<<20), 0o644))
	testChdir(t, dir)
	require.NoError(t, Create(context.Background(), archive, []string{"a"}))

	fi, err := os.Stat(archive)
	require.NoError(t, err)
	assert.Equal(t, 512+512+1024+trailer.Size(1), fi.Size())
}

func TestCreateVerbosePrintsEveryEntry(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"tree/a": "1",
		"tree/b": "2",
		"tree/c": "3",
	}
	writeTree(t, dir, files)

	var out syncBuffer
	createArchive(t, dir, []string{"tree"}, CreateWithVerbose(&out))

	// Worker interleaving makes line order meaningless; compare the set.
	got := strings.Fields(out.String())
	sort.Strings(got)
	assert.Equal(t, []string{"tree/", "tree/a", "tree/b", "tree/c"}, got)
}

func TestCreateManyWorkersLargeFiles(t *testing.T) {
	dir := t.TempDir()
	files := make(map[string]string)
	for i := 0; i < 40; i++ {
		files[filepath.Join("tree", string(rune('a'+i%26))+strings.Repeat("x", i))] = strings.Repeat("payload", i*97)
	}
	writeTree(t, dir, files)
	archive := createArchive(t, dir, []string{"tree"},
		CreateWithWorkers(8), CreateWithBlockingFactor(1))

	entries, err := List(archive)
	require.NoError(t, err)
	assert.Len(t, entries, len(files)+1) // +1 for the tree/ directory
}
