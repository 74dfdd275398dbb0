package tarblock

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	t.Parallel()

	in := Header{
		Name:     "dir/a.txt",
		Mode:     0o644,
		UID:      1000,
		GID:      100,
		Size:     3,
		ModTime:  1700000000,
		TypeFlag: TypeReg,
	}
	blk, err := in.Encode()
	require.NoError(t, err)

	out, err := Decode(blk)
	require.NoError(t, err)
	assert.Equal(t, &in, out)
}

func TestHeaderFieldLayout(t *testing.T) {
	t.Parallel()

	h := Header{
		Name:     "a.txt",
		Mode:     0o644,
		Size:     3,
		ModTime:  1700000000,
		TypeFlag: TypeReg,
	}
	blk, err := h.Encode()
	require.NoError(t, err)

	assert.Equal(t, "a.txt", string(blk[0:5]))
	assert.Equal(t, byte(0), blk[5], "name is NUL-terminated")
	assert.Equal(t, "0000644\x00", string(blk[100:108]))
	assert.Equal(t, "0000000\x00", string(blk[108:116]), "uid")
	assert.Equal(t, "00000000003\x00", string(blk[124:136]), "size")
	assert.Equal(t, byte('0'), blk[156])

	// Checksum field holds six octal digits, NUL, space.
	sum := blk[148:156]
	assert.Equal(t, byte(0), sum[6])
	assert.Equal(t, byte(' '), sum[7])
	stored, err := parseOctal(sum)
	require.NoError(t, err)
	assert.Equal(t, blk.ComputeChecksum(), stored)
}

func TestHeaderNonRegularSizeZero(t *testing.T) {
	t.Parallel()

	h := Header{
		Name:     "s",
		Mode:     0o777,
		Size:     12345, // ignored for non-regulars
		TypeFlag: TypeSymlink,
		LinkName: "target.txt",
	}
	blk, err := h.Encode()
	require.NoError(t, err)

	out, err := Decode(blk)
	require.NoError(t, err)
	assert.Equal(t, int64(0), out.Size)
	assert.Equal(t, "target.txt", out.LinkName)
	assert.Equal(t, TypeSymlink, out.TypeFlag)
}

func TestHeaderLimits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		hdr  Header
		want error
	}{
		{
			name: "name at limit",
			hdr:  Header{Name: strings.Repeat("n", 100), TypeFlag: TypeReg},
			want: nil,
		},
		{
			name: "name too long",
			hdr:  Header{Name: strings.Repeat("n", 101), TypeFlag: TypeReg},
			want: ErrNameTooLong,
		},
		{
			name: "link too long",
			hdr:  Header{Name: "l", TypeFlag: TypeSymlink, LinkName: strings.Repeat("t", 101)},
			want: ErrLinkTooLong,
		},
		{
			name: "size at limit",
			hdr:  Header{Name: "big", TypeFlag: TypeReg, Size: 1<<33 - 1},
			want: nil,
		},
		{
			name: "size overflow",
			hdr:  Header{Name: "big", TypeFlag: TypeReg, Size: 1 << 33},
			want: ErrSizeOverflow,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := tt.hdr.Encode()
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecodeChecksumGate(t *testing.T) {
	t.Parallel()

	h := Header{Name: "a.txt", Mode: 0o644, Size: 3, ModTime: 1700000000, TypeFlag: TypeReg}
	blk, err := h.Encode()
	require.NoError(t, err)

	// Flipping any single byte must fail the checksum.
	for _, pos := range []int{0, 42, 124, 150, 156, 200, 511} {
		corrupt := *blk
		corrupt[pos] ^= 0x01
		_, err := Decode(&corrupt)
		assert.ErrorIs(t, err, ErrChecksum, "flipped byte %d", pos)
	}
}

func TestPadding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		size int64
		want int64
	}{
		{0, 0},
		{1, 511},
		{3, 509},
		{511, 1},
		{512, 0},
		{513, 511},
		{1024, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Padding(tt.size), "size %d", tt.size)
	}
}

func TestIsZero(t *testing.T) {
	t.Parallel()

	var b Block
	assert.True(t, b.IsZero())
	b[511] = 1
	assert.False(t, b.IsZero())
}

func TestParseOctal(t *testing.T) {
	t.Parallel()

	got, err := parseOctal([]byte("0000644\x00"))
	require.NoError(t, err)
	assert.Equal(t, int64(0o644), got)

	got, err = parseOctal([]byte{0, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)

	_, err = parseOctal([]byte("notoctal"))
	require.Error(t, err)
}
