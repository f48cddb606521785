package dir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DandinPower/111-2-FileStorageSystem/bitmap"
	"github.com/DandinPower/111-2-FileStorageSystem/common"
	"github.com/DandinPower/111-2-FileStorageSystem/device"
	"github.com/DandinPower/111-2-FileStorageSystem/file"
	"github.com/DandinPower/111-2-FileStorageSystem/inode"
)

func TestAddFind(t *testing.T) {
	d := New()
	require.NoError(t, d.Add("file0", 17, common.TypeFile))
	require.NoError(t, d.Add("sub", 23, common.TypeDir))

	sector, err := d.Find("file0")
	require.NoError(t, err)
	assert.Equal(t, 17, sector)

	assert.False(t, d.IsDirectory("file0"))
	assert.True(t, d.IsDirectory("sub"))

	_, err = d.Find("missing")
	assert.ErrorIs(t, err, common.ENOENT)
	assert.False(t, d.IsDirectory("missing"))
}

func TestAddDuplicate(t *testing.T) {
	d := New()
	require.NoError(t, d.Add("twin", 5, common.TypeFile))
	// Same name is refused even with a different type or sector.
	assert.ErrorIs(t, d.Add("twin", 9, common.TypeDir), common.EEXIST)
}

func TestAddBadName(t *testing.T) {
	d := New()
	assert.ErrorIs(t, d.Add("", 5, common.TypeFile), common.EINVAL)
	assert.NoError(t, d.Add("ninechars", 5, common.TypeFile))
	assert.ErrorIs(t, d.Add("tencharsxx", 6, common.TypeFile), common.EINVAL)
}

func TestAddFullTable(t *testing.T) {
	d := New()
	for i := 0; i < common.NumDirEntries; i++ {
		require.NoError(t, d.Add(name(i), i, common.TypeFile))
	}
	assert.ErrorIs(t, d.Add("overflow", 999, common.TypeFile), common.ENOSPC)
}

func TestRemoveFreesSlot(t *testing.T) {
	d := New()
	for i := 0; i < common.NumDirEntries; i++ {
		require.NoError(t, d.Add(name(i), i, common.TypeFile))
	}

	require.NoError(t, d.Remove(name(3)))
	_, err := d.Find(name(3))
	assert.ErrorIs(t, err, common.ENOENT)

	// The freed slot makes room for a new name; the table never grows.
	require.NoError(t, d.Add("late", 101, common.TypeFile))
	assert.Equal(t, 3, d.FindIndex("late"))

	assert.ErrorIs(t, d.Remove(name(3)), common.ENOENT)
}

func TestPersistRoundTrip(t *testing.T) {
	dev, err := device.NewEmptyRamdiskDevice(common.NumSectors)
	require.NoError(t, err)
	defer dev.Close()

	bm := bitmap.New(common.NumSectors)
	ino := new(inode.Inode)
	require.NoError(t, ino.Allocate(bm, common.DirFileSize))
	f := file.NewFile(dev, ino)

	d := New()
	require.NoError(t, d.Add("alpha", 7, common.TypeFile))
	require.NoError(t, d.Add("beta", 11, common.TypeDir))
	require.NoError(t, d.Add("ninechars", 13, common.TypeFile))
	require.NoError(t, d.Remove("alpha"))
	require.NoError(t, d.WriteBack(f))

	got := New()
	require.NoError(t, got.FetchFrom(f))

	_, err = got.Find("alpha")
	assert.ErrorIs(t, err, common.ENOENT)

	sector, err := got.Find("beta")
	require.NoError(t, err)
	assert.Equal(t, 11, sector)
	assert.True(t, got.IsDirectory("beta"))

	sector, err = got.Find("ninechars")
	require.NoError(t, err)
	assert.Equal(t, 13, sector)
}

func TestRemoveRecursivePersistsProgress(t *testing.T) {
	dev, err := device.NewEmptyRamdiskDevice(common.NumSectors)
	require.NoError(t, err)
	defer dev.Close()
	bm := bitmap.New(common.NumSectors)

	dirIno := new(inode.Inode)
	require.NoError(t, dirIno.Allocate(bm, common.DirFileSize))
	dirFile := file.NewFile(dev, dirIno)

	newMember := func() int {
		header := bm.FindAndSet()
		ino := new(inode.Inode)
		require.NoError(t, ino.Allocate(bm, 300))
		require.NoError(t, ino.WriteBack(dev, header))
		return header
	}
	hdrA := newMember()
	hdrB := newMember()

	d := New()
	require.NoError(t, d.Add("aa", hdrA, common.TypeFile))
	require.NoError(t, d.Add("bb", hdrB, common.TypeFile))
	require.NoError(t, d.WriteBack(dirFile))

	// Corrupt the second member's header so its teardown fails after the
	// first member was already freed.
	garbage := make([]byte, common.SectorSize)
	for i := range garbage {
		garbage[i] = 0xff
	}
	require.NoError(t, dev.WriteSector(hdrB, garbage))

	before := bm.NumClear()
	require.Error(t, d.RemoveRecursive(dev, bm, dirFile))

	// Exactly the first member's storage came back.
	cost, err := inode.SectorsFor(300)
	require.NoError(t, err)
	assert.Equal(t, before+cost+1, bm.NumClear())

	// The cleared slot reached the device before the error surfaced, so
	// no persisted entry references a freed sector.
	got := New()
	require.NoError(t, got.FetchFrom(dirFile))
	_, err = got.Find("aa")
	assert.ErrorIs(t, err, common.ENOENT)
	sector, err := got.Find("bb")
	require.NoError(t, err)
	assert.Equal(t, hdrB, sector)
}

func TestList(t *testing.T) {
	d := New()
	require.NoError(t, d.Add("b", 2, common.TypeFile))
	require.NoError(t, d.Add("a", 1, common.TypeDir))
	require.NoError(t, d.Add("c", 3, common.TypeFile))
	require.NoError(t, d.Remove("a"))

	infos := d.List()
	require.Len(t, infos, 2)
	// Slot order, not name order.
	assert.Equal(t, "b", infos[0].Name)
	assert.Equal(t, "c", infos[1].Name)
	assert.Zero(t, infos[0].Depth)
}

func name(i int) string {
	return string([]byte{'e', byte('0' + i/10), byte('0' + i%10)})
}
