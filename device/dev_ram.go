package device

import (
	"sync"

	"github.com/DandinPower/111-2-FileStorageSystem/common"
)

// A ramdisk device backed by a flat byte slice. Primarily used by tests,
// but also handy for building an image in memory before writing it out.
type ramdiskDevice struct {
	data   []byte
	closed bool
	m      sync.Mutex
}

// NewRamdiskDevice creates a device over an existing slice, which must
// hold a whole number of sectors.
func NewRamdiskDevice(data []byte) (common.BlockDevice, error) {
	if len(data)%common.SectorSize != 0 {
		return nil, ErrBadBuffer
	}
	return &ramdiskDevice{data: data}, nil
}

// NewEmptyRamdiskDevice creates a zero-filled device of the given size.
func NewEmptyRamdiskDevice(sectors int) (common.BlockDevice, error) {
	return NewRamdiskDevice(make([]byte, sectors*common.SectorSize))
}

func (dev *ramdiskDevice) check(sector int, buf []byte) error {
	if dev.closed {
		return ErrClosed
	}
	if sector < 0 || (sector+1)*common.SectorSize > len(dev.data) {
		return ErrBadSector
	}
	if len(buf) != common.SectorSize {
		return ErrBadBuffer
	}
	return nil
}

func (dev *ramdiskDevice) ReadSector(sector int, buf []byte) error {
	dev.m.Lock()
	defer dev.m.Unlock()

	if err := dev.check(sector, buf); err != nil {
		return err
	}
	copy(buf, dev.data[sector*common.SectorSize:])
	return nil
}

func (dev *ramdiskDevice) WriteSector(sector int, buf []byte) error {
	dev.m.Lock()
	defer dev.m.Unlock()

	if err := dev.check(sector, buf); err != nil {
		return err
	}
	copy(dev.data[sector*common.SectorSize:], buf)
	return nil
}

func (dev *ramdiskDevice) Close() error {
	dev.m.Lock()
	defer dev.m.Unlock()

	dev.closed = true
	return nil
}
