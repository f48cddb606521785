package file

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DandinPower/111-2-FileStorageSystem/bitmap"
	"github.com/DandinPower/111-2-FileStorageSystem/common"
	"github.com/DandinPower/111-2-FileStorageSystem/device"
	"github.com/DandinPower/111-2-FileStorageSystem/inode"
)

// newTestFile allocates a file of the given size on a fresh ramdisk.
func newTestFile(t *testing.T, size int) *File {
	t.Helper()
	dev, err := device.NewEmptyRamdiskDevice(common.NumSectors)
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })

	bm := bitmap.New(common.NumSectors)
	ino := new(inode.Inode)
	require.NoError(t, ino.Allocate(bm, size))
	return NewFile(dev, ino)
}

func pattern(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i % 251)
	}
	return buf
}

func TestWriteReadRoundTrip(t *testing.T) {
	const size = 5000 // spans a level-2 pointer tree
	f := newTestFile(t, size)

	data := pattern(size)
	n, err := f.WriteAt(data, 0)
	require.NoError(t, err)
	require.Equal(t, size, n)

	got := make([]byte, size)
	n, err = f.ReadAt(got, 0)
	require.NoError(t, err)
	require.Equal(t, size, n)
	assert.Equal(t, data, got)

	// Single byte at the very end.
	one := make([]byte, 1)
	n, err = f.ReadAt(one, size-1)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, data[size-1], one[0])
}

func TestUnalignedWrite(t *testing.T) {
	f := newTestFile(t, 600)
	require.Equal(t, 600, f.Size())

	full := pattern(600)
	_, err := f.WriteAt(full, 0)
	require.NoError(t, err)

	// Overwrite a span that starts and ends mid-sector.
	patch := make([]byte, 200)
	for i := range patch {
		patch[i] = 0xAB
	}
	n, err := f.WriteAt(patch, 100)
	require.NoError(t, err)
	require.Equal(t, 200, n)

	got := make([]byte, 600)
	_, err = f.ReadAt(got, 0)
	require.NoError(t, err)
	assert.Equal(t, full[:100], got[:100])
	assert.Equal(t, patch, got[100:300])
	assert.Equal(t, full[300:], got[300:])
}

func TestReadClamping(t *testing.T) {
	f := newTestFile(t, 100)
	_, err := f.WriteAt(pattern(100), 0)
	require.NoError(t, err)

	buf := make([]byte, 200)
	n, err := f.ReadAt(buf, 50)
	assert.Equal(t, 50, n)
	assert.ErrorIs(t, err, io.EOF)

	n, err = f.ReadAt(buf, 100)
	assert.Zero(t, n)
	assert.ErrorIs(t, err, io.EOF)

	n, err = f.ReadAt(buf, -1)
	assert.Zero(t, n)
	assert.ErrorIs(t, err, common.ERANGE)
}

func TestWriteClamping(t *testing.T) {
	f := newTestFile(t, 100)

	n, err := f.WriteAt(pattern(200), 50)
	assert.Equal(t, 50, n)
	assert.ErrorIs(t, err, common.ERANGE)

	// The clamped prefix must still have landed.
	got := make([]byte, 50)
	_, err = f.ReadAt(got, 50)
	require.NoError(t, err)
	assert.Equal(t, pattern(200)[:50], got)

	n, err = f.WriteAt([]byte{1}, 100)
	assert.Zero(t, n)
	assert.ErrorIs(t, err, common.ERANGE)
}

func TestPositionalReadWrite(t *testing.T) {
	f := newTestFile(t, 300)
	data := pattern(300)

	// Two sequential writes land back to back.
	n, err := f.Write(data[:120])
	require.NoError(t, err)
	require.Equal(t, 120, n)
	n, err = f.Write(data[120:])
	require.NoError(t, err)
	require.Equal(t, 180, n)

	pos, err := f.Seek(0, 0)
	require.NoError(t, err)
	require.Zero(t, pos)

	got := make([]byte, 300)
	n, err = f.Read(got)
	require.NoError(t, err)
	require.Equal(t, 300, n)
	assert.Equal(t, data, got)

	// Position is now at the end; further reads hit EOF.
	n, err = f.Read(got)
	assert.Zero(t, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestSeek(t *testing.T) {
	f := newTestFile(t, 300)
	_, err := f.WriteAt(pattern(300), 0)
	require.NoError(t, err)

	pos, err := f.Seek(100, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, pos)

	pos, err = f.Seek(50, 1)
	require.NoError(t, err)
	assert.Equal(t, 150, pos)

	one := make([]byte, 1)
	_, err = f.Read(one)
	require.NoError(t, err)
	assert.Equal(t, pattern(300)[150], one[0])

	_, err = f.Seek(-200, 1)
	assert.ErrorIs(t, err, common.ERANGE)
	_, err = f.Seek(0, 2)
	assert.ErrorIs(t, err, common.ERANGE)
}

func TestOpenRoundTrip(t *testing.T) {
	dev, err := device.NewEmptyRamdiskDevice(common.NumSectors)
	require.NoError(t, err)
	defer dev.Close()

	bm := bitmap.New(common.NumSectors)
	header := bm.FindAndSet()
	ino := new(inode.Inode)
	require.NoError(t, ino.Allocate(bm, 1000))
	require.NoError(t, ino.WriteBack(dev, header))

	data := pattern(1000)
	_, err = NewFile(dev, ino).WriteAt(data, 0)
	require.NoError(t, err)

	f, err := Open(dev, header)
	require.NoError(t, err)
	require.Equal(t, 1000, f.Size())

	got := make([]byte, 1000)
	_, err = f.ReadAt(got, 0)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}
