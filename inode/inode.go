// Package inode implements the on-disk file header and its variable-depth
// pointer tree, mapping logical byte offsets to physical sectors. A header
// occupies exactly one sector and addresses its data through one of four
// indirection levels, chosen from the file size at allocation time and
// recomputed, never stored, when the header is fetched back.
package inode

import (
	"fmt"

	"github.com/DandinPower/111-2-FileStorageSystem/bitmap"
	"github.com/DandinPower/111-2-FileStorageSystem/common"
)

const (
	Level1 = 1
	Level2 = 2
	Level3 = 3
	Level4 = 4
)

// SubtreeSectors returns how many data sectors a single pointer subtree of
// the given level covers: 1 for a leaf, multiplied by the child fan-out for
// each level above it.
func SubtreeSectors(level int) int {
	n := 1
	for l := Level2; l <= level; l++ {
		n *= common.MaxChildPointers
	}
	return n
}

// Capacity returns the number of data sectors addressable by a header of
// the given level.
func Capacity(level int) int {
	return common.MaxHeaderPointers * SubtreeSectors(level)
}

// MaxFileBytes is the largest representable file size.
var MaxFileBytes = Capacity(Level4) * common.SectorSize

// LevelFor returns the smallest indirection level whose capacity covers a
// file of the given byte length. Sizes above the level-4 capacity are not
// representable and fail with EFBIG no matter how much space is free.
func LevelFor(size int) (int, error) {
	if size < 0 {
		return 0, common.ERANGE
	}
	for level := Level1; level <= Level4; level++ {
		if size <= Capacity(level)*common.SectorSize {
			return level, nil
		}
	}
	return 0, common.EFBIG
}

// SectorsFor returns the total number of sectors Allocate will claim for a
// file of the given size: the data sectors plus every pointer-node sector,
// excluding the header sector itself.
func SectorsFor(size int) (int, error) {
	level, err := LevelFor(size)
	if err != nil {
		return 0, err
	}
	total := 0
	remain := ceilDiv(size, common.SectorSize)
	for remain > 0 {
		share := min(remain, SubtreeSectors(level))
		total += subtreeCost(level, share)
		remain -= share
	}
	return total, nil
}

// An Inode is the in-memory form of a file header: the file's byte length
// and the roots of its pointer subtrees, one per populated top-level
// pointer, each subtree root stored in its own sector.
type Inode struct {
	size     int
	level    int
	sectors  []int
	children []*node
}

// Size returns the file's byte length.
func (ino *Inode) Size() int {
	return ino.size
}

// Level returns the indirection level derived from the file's size.
func (ino *Inode) Level() int {
	return ino.level
}

// Allocate builds the pointer tree for a new file of the given size,
// claiming every pointer-node and data sector from the free map. The claim
// is all-or-nothing: if anything fails after the aggregate free-space
// check, every sector taken so far is released before the error is
// returned, so a half-built tree never reaches the caller or the map.
func (ino *Inode) Allocate(bm *bitmap.Bitmap, size int) error {
	level, err := LevelFor(size)
	if err != nil {
		return err
	}
	required, err := SectorsFor(size)
	if err != nil {
		return err
	}
	if bm.NumClear() < required {
		return common.ENOSPC
	}

	tx := &claim{bm: bm}
	ino.size = size
	ino.level = level
	ino.sectors = nil
	ino.children = nil

	remain := ceilDiv(size, common.SectorSize)
	for remain > 0 {
		share := min(remain, SubtreeSectors(level))
		sector, err := tx.take()
		if err != nil {
			tx.undo()
			return err
		}
		child, err := allocNode(tx, level, share)
		if err != nil {
			tx.undo()
			return err
		}
		ino.sectors = append(ino.sectors, sector)
		ino.children = append(ino.children, child)
		remain -= share
	}
	return nil
}

// Deallocate releases the whole pointer tree back to the free map,
// depth-first: every data sector, then every pointer-node sector. The
// header's own sector belongs to the caller and is not touched.
func (ino *Inode) Deallocate(bm *bitmap.Bitmap) {
	for i, child := range ino.children {
		child.deallocate(bm)
		bm.Clear(ino.sectors[i])
	}
	ino.sectors = nil
	ino.children = nil
}

// ByteToSector translates a byte offset within the file to the sector
// holding it, descending one pointer level at a time. Offsets at or beyond
// the file length, and offsets that would index past a node's populated
// pointers, fail with ERANGE.
func (ino *Inode) ByteToSector(offset int) (int, error) {
	if offset < 0 || offset >= ino.size {
		return 0, common.ERANGE
	}
	childBytes := SubtreeSectors(ino.level) * common.SectorSize
	idx := offset / childBytes
	rem := offset % childBytes
	if idx >= len(ino.children) {
		return 0, common.ERANGE
	}
	return ino.children[idx].byteToSector(rem)
}

// FetchFrom loads a header and its entire pointer tree from the device,
// starting at the header's sector. The indirection level is recomputed
// from the stored byte length.
func (ino *Inode) FetchFrom(dev common.BlockDevice, sector int) error {
	words, err := readWords(dev, sector)
	if err != nil {
		return err
	}
	size := int(words[0])
	nptr := int(words[1])
	if nptr < 0 || nptr > common.MaxHeaderPointers {
		return fmt.Errorf("inode: header in sector %d has %d pointers", sector, nptr)
	}
	level, err := LevelFor(size)
	if err != nil {
		return fmt.Errorf("inode: header in sector %d: %w", sector, err)
	}

	ino.size = size
	ino.level = level
	ino.sectors = make([]int, nptr)
	ino.children = make([]*node, nptr)
	for i := 0; i < nptr; i++ {
		ino.sectors[i] = int(words[2+i])
		if ino.sectors[i] < 0 {
			return fmt.Errorf("inode: header in sector %d has bad pointer %d", sector, i)
		}
		child, err := fetchNode(dev, level, ino.sectors[i])
		if err != nil {
			return err
		}
		ino.children[i] = child
	}
	return nil
}

// WriteBack persists the header and its pointer tree, children first so
// the header sector always points at fully written nodes.
func (ino *Inode) WriteBack(dev common.BlockDevice, sector int) error {
	for i, child := range ino.children {
		if err := child.writeBack(dev, ino.sectors[i]); err != nil {
			return err
		}
	}

	words := emptyWords()
	words[0] = int32(ino.size)
	words[1] = int32(len(ino.sectors))
	for i, s := range ino.sectors {
		words[2+i] = int32(s)
	}
	return writeWords(dev, sector, words)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
