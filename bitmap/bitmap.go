// Package bitmap tracks free and allocated sectors, one bit per sector.
// A set bit means the sector is owned by exactly one structure on disk: a
// header, a pointer node, or a data block. The map itself is persisted as
// the content of an ordinary file whose header sits in a well-known
// sector; (Un)marshal convert between the in-memory form and that flat
// byte buffer.
package bitmap

import (
	"fmt"

	"github.com/DandinPower/111-2-FileStorageSystem/common"
)

const bitsPerChunk = 8

// NoBit is returned by FindAndSet when every sector is taken.
const NoBit = -1

type Bitmap struct {
	bits   []byte
	nbits  int
	nclear int
	search int // start searching for free bits here
}

// New creates an empty bitmap covering nbits sectors.
func New(nbits int) *Bitmap {
	return &Bitmap{
		bits:   make([]byte, (nbits+bitsPerChunk-1)/bitsPerChunk),
		nbits:  nbits,
		nclear: nbits,
	}
}

// FindAndSet allocates the lowest-numbered free sector and returns its
// number, or NoBit if the map is full.
func (bm *Bitmap) FindAndSet() int {
	for i := bm.search; i < bm.nbits; i++ {
		if !bm.get(i) {
			bm.set(i)
			bm.search = i + 1
			return i
		}
	}
	return NoBit
}

// Mark claims a specific sector. Used when formatting, to reserve the
// well-known header sectors before general allocation starts.
func (bm *Bitmap) Mark(bit int) {
	bm.check(bit)
	if !bm.get(bit) {
		bm.set(bit)
	}
}

// Clear releases an allocated sector. Freeing a sector that is not
// allocated means an ownership invariant has already been broken
// somewhere, so it panics rather than papering over the corruption.
func (bm *Bitmap) Clear(bit int) {
	bm.check(bit)
	if !bm.get(bit) {
		panic(fmt.Sprintf("bitmap: attempt to free unused sector %d", bit))
	}
	bm.bits[bit/bitsPerChunk] &^= 1 << uint(bit%bitsPerChunk)
	bm.nclear++
	if bit < bm.search {
		bm.search = bit
	}
}

// Test reports whether the given sector is allocated.
func (bm *Bitmap) Test(bit int) bool {
	bm.check(bit)
	return bm.get(bit)
}

// NumClear returns the number of free sectors. Callers use it as a
// pre-flight check before multi-sector reservations; passing the check
// does not remove the need to unwind partial claims on a later failure.
func (bm *Bitmap) NumClear() int {
	return bm.nclear
}

// NumBits returns the total number of sectors covered by the map.
func (bm *Bitmap) NumBits() int {
	return bm.nbits
}

// Marshal returns the packed on-disk form of the map. The buffer is
// written back wholesale; there is no incremental update.
func (bm *Bitmap) Marshal() []byte {
	buf := make([]byte, len(bm.bits))
	copy(buf, bm.bits)
	return buf
}

// Unmarshal rebuilds a bitmap of nbits sectors from its packed form.
func Unmarshal(buf []byte, nbits int) (*Bitmap, error) {
	if len(buf)*bitsPerChunk < nbits {
		return nil, fmt.Errorf("bitmap: %d bytes cannot cover %d bits: %w",
			len(buf), nbits, common.ERANGE)
	}
	bm := New(nbits)
	copy(bm.bits, buf)
	bm.nclear = 0
	for i := 0; i < nbits; i++ {
		if !bm.get(i) {
			bm.nclear++
		}
	}
	return bm, nil
}

func (bm *Bitmap) get(bit int) bool {
	return bm.bits[bit/bitsPerChunk]&(1<<uint(bit%bitsPerChunk)) != 0
}

func (bm *Bitmap) set(bit int) {
	bm.bits[bit/bitsPerChunk] |= 1 << uint(bit%bitsPerChunk)
	bm.nclear--
}

func (bm *Bitmap) check(bit int) {
	if bit < 0 || bit >= bm.nbits {
		panic(fmt.Sprintf("bitmap: sector %d out of range [0, %d)", bit, bm.nbits))
	}
}
