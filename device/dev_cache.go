package device

import (
	"container/list"
	"sync"

	"github.com/DandinPower/111-2-FileStorageSystem/common"
)

// A write-through LRU sector cache in front of another device. Reads of
// cached sectors never touch the backing device; writes always go through
// to it, so the backing store is current at all times and Close has
// nothing to flush.
type cacheDevice struct {
	dev   common.BlockDevice
	slots int

	entries map[int]*list.Element
	lru     *list.List // front is most recently used
	m       sync.Mutex
}

type cacheEntry struct {
	sector int
	data   []byte
}

// NewCacheDevice wraps a device with an LRU cache of the given number of
// sector slots.
func NewCacheDevice(dev common.BlockDevice, slots int) (common.BlockDevice, error) {
	if slots <= 0 {
		return nil, ErrBadBuffer
	}
	return &cacheDevice{
		dev:     dev,
		slots:   slots,
		entries: make(map[int]*list.Element),
		lru:     list.New(),
	}, nil
}

func (dev *cacheDevice) ReadSector(sector int, buf []byte) error {
	if len(buf) != common.SectorSize {
		return ErrBadBuffer
	}

	dev.m.Lock()
	defer dev.m.Unlock()

	if el, ok := dev.entries[sector]; ok {
		dev.lru.MoveToFront(el)
		copy(buf, el.Value.(*cacheEntry).data)
		return nil
	}

	if err := dev.dev.ReadSector(sector, buf); err != nil {
		return err
	}
	dev.insert(sector, buf)
	return nil
}

func (dev *cacheDevice) WriteSector(sector int, buf []byte) error {
	if len(buf) != common.SectorSize {
		return ErrBadBuffer
	}

	dev.m.Lock()
	defer dev.m.Unlock()

	if err := dev.dev.WriteSector(sector, buf); err != nil {
		return err
	}
	if el, ok := dev.entries[sector]; ok {
		dev.lru.MoveToFront(el)
		copy(el.Value.(*cacheEntry).data, buf)
		return nil
	}
	dev.insert(sector, buf)
	return nil
}

func (dev *cacheDevice) Close() error {
	dev.m.Lock()
	defer dev.m.Unlock()

	dev.entries = nil
	dev.lru.Init()
	return dev.dev.Close()
}

// insert caches a sector's content, evicting the least recently used
// entry when every slot is taken. Caller holds the lock.
func (dev *cacheDevice) insert(sector int, buf []byte) {
	if dev.lru.Len() >= dev.slots {
		oldest := dev.lru.Back()
		dev.lru.Remove(oldest)
		delete(dev.entries, oldest.Value.(*cacheEntry).sector)
	}
	data := make([]byte, common.SectorSize)
	copy(data, buf)
	dev.entries[sector] = dev.lru.PushFront(&cacheEntry{sector: sector, data: data})
}
