package inode

import (
	"encoding/binary"
	"fmt"

	"github.com/DandinPower/111-2-FileStorageSystem/bitmap"
	"github.com/DandinPower/111-2-FileStorageSystem/common"
)

// A node is one sector of the pointer tree. Level 1 nodes are leaves and
// name exactly one data sector; higher levels hold the sectors of their
// child nodes, one level down, filled left to right so only the last child
// can be partial.
type node struct {
	level    int
	data     int   // level 1: the data sector
	sectors  []int // level >= 2: child node sectors
	children []*node
}

// subtreeCost returns the sectors consumed by a subtree of the given level
// covering nsectors of data: the data itself plus every node below the
// subtree's root, plus the root's own sector.
func subtreeCost(level, nsectors int) int {
	if level == Level1 {
		return 2 // the leaf node and its data sector
	}
	total := 1
	remain := nsectors
	for remain > 0 {
		share := min(remain, SubtreeSectors(level-1))
		total += subtreeCost(level-1, share)
		remain -= share
	}
	return total
}

// A claim records sectors taken from the free map during one allocation so
// they can all be released if a later step fails.
type claim struct {
	bm    *bitmap.Bitmap
	taken []int
}

func (tx *claim) take() (int, error) {
	s := tx.bm.FindAndSet()
	if s == bitmap.NoBit {
		return 0, common.ENOSPC
	}
	tx.taken = append(tx.taken, s)
	return s, nil
}

func (tx *claim) undo() {
	for i := len(tx.taken) - 1; i >= 0; i-- {
		tx.bm.Clear(tx.taken[i])
	}
	tx.taken = nil
}

// allocNode claims the contents of a subtree covering nsectors of data.
// The sector holding the node itself has already been claimed by the
// parent; failures propagate up to the root, which undoes the whole claim.
func allocNode(tx *claim, level, nsectors int) (*node, error) {
	if level == Level1 {
		if nsectors != 1 {
			return nil, fmt.Errorf("inode: leaf asked to cover %d sectors", nsectors)
		}
		data, err := tx.take()
		if err != nil {
			return nil, err
		}
		return &node{level: Level1, data: data}, nil
	}

	nd := &node{level: level}
	remain := nsectors
	for remain > 0 {
		share := min(remain, SubtreeSectors(level-1))
		sector, err := tx.take()
		if err != nil {
			return nil, err
		}
		child, err := allocNode(tx, level-1, share)
		if err != nil {
			return nil, err
		}
		nd.sectors = append(nd.sectors, sector)
		nd.children = append(nd.children, child)
		remain -= share
	}
	if len(nd.sectors) > common.MaxChildPointers {
		return nil, fmt.Errorf("inode: node overflows %d pointers", common.MaxChildPointers)
	}
	return nd, nil
}

func (nd *node) deallocate(bm *bitmap.Bitmap) {
	if nd.level == Level1 {
		bm.Clear(nd.data)
		return
	}
	for i, child := range nd.children {
		child.deallocate(bm)
		bm.Clear(nd.sectors[i])
	}
}

func (nd *node) byteToSector(offset int) (int, error) {
	if nd.level == Level1 {
		if offset >= common.SectorSize {
			return 0, common.ERANGE
		}
		return nd.data, nil
	}
	childBytes := SubtreeSectors(nd.level-1) * common.SectorSize
	idx := offset / childBytes
	rem := offset % childBytes
	if idx >= len(nd.children) {
		return 0, common.ERANGE
	}
	return nd.children[idx].byteToSector(rem)
}

func fetchNode(dev common.BlockDevice, level, sector int) (*node, error) {
	words, err := readWords(dev, sector)
	if err != nil {
		return nil, err
	}

	if level == Level1 {
		data := int(words[0])
		if data < 0 {
			return nil, fmt.Errorf("inode: leaf in sector %d has no data sector", sector)
		}
		return &node{level: Level1, data: data}, nil
	}

	count := int(words[0])
	if count < 0 || count > common.MaxChildPointers {
		return nil, fmt.Errorf("inode: node in sector %d has %d pointers", sector, count)
	}
	nd := &node{
		level:    level,
		sectors:  make([]int, count),
		children: make([]*node, count),
	}
	for i := 0; i < count; i++ {
		nd.sectors[i] = int(words[1+i])
		if nd.sectors[i] < 0 {
			return nil, fmt.Errorf("inode: node in sector %d has bad pointer %d", sector, i)
		}
		child, err := fetchNode(dev, level-1, nd.sectors[i])
		if err != nil {
			return nil, err
		}
		nd.children[i] = child
	}
	return nd, nil
}

func (nd *node) writeBack(dev common.BlockDevice, sector int) error {
	words := emptyWords()
	if nd.level == Level1 {
		words[0] = int32(nd.data)
		return writeWords(dev, sector, words)
	}

	for i, child := range nd.children {
		if err := child.writeBack(dev, nd.sectors[i]); err != nil {
			return err
		}
	}
	words[0] = int32(len(nd.sectors))
	for i, s := range nd.sectors {
		words[1+i] = int32(s)
	}
	return writeWords(dev, sector, words)
}

// On disk every node is one sector of little-endian int32 words; unused
// slots hold -1.

func emptyWords() []int32 {
	words := make([]int32, common.WordsPerSector)
	for i := range words {
		words[i] = -1
	}
	return words
}

func readWords(dev common.BlockDevice, sector int) ([]int32, error) {
	buf := make([]byte, common.SectorSize)
	if err := dev.ReadSector(sector, buf); err != nil {
		return nil, err
	}
	words := make([]int32, common.WordsPerSector)
	for i := range words {
		words[i] = int32(binary.LittleEndian.Uint32(buf[i*common.IntSize:]))
	}
	return words, nil
}

func writeWords(dev common.BlockDevice, sector int, words []int32) error {
	buf := make([]byte, common.SectorSize)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*common.IntSize:], uint32(w))
	}
	return dev.WriteSector(sector, buf)
}
