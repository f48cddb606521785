package device

import (
	"os"
	"sync"

	"github.com/DandinPower/111-2-FileStorageSystem/common"
)

type fileDevice struct {
	file    *os.File
	sectors int
	m       sync.Mutex
}

// NewFileDevice opens an existing disk image as a block device. The image
// must hold a whole number of sectors.
func NewFileDevice(filename string) (common.BlockDevice, error) {
	file, err := os.OpenFile(filename, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}

	fi, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if fi.Size()%common.SectorSize != 0 {
		file.Close()
		return nil, ErrBadBuffer
	}

	return &fileDevice{
		file:    file,
		sectors: int(fi.Size() / common.SectorSize),
	}, nil
}

// CreateFileDevice creates a zero-filled disk image of the given size and
// opens it as a block device.
func CreateFileDevice(filename string, sectors int) (common.BlockDevice, error) {
	file, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	if err := file.Truncate(int64(sectors) * common.SectorSize); err != nil {
		file.Close()
		return nil, err
	}

	return &fileDevice{
		file:    file,
		sectors: sectors,
	}, nil
}

func (dev *fileDevice) check(sector int, buf []byte) error {
	if dev.file == nil {
		return ErrClosed
	}
	if sector < 0 || sector >= dev.sectors {
		return ErrBadSector
	}
	if len(buf) != common.SectorSize {
		return ErrBadBuffer
	}
	return nil
}

func (dev *fileDevice) ReadSector(sector int, buf []byte) error {
	dev.m.Lock()
	defer dev.m.Unlock()

	if err := dev.check(sector, buf); err != nil {
		return err
	}
	_, err := dev.file.ReadAt(buf, int64(sector)*common.SectorSize)
	return err
}

func (dev *fileDevice) WriteSector(sector int, buf []byte) error {
	dev.m.Lock()
	defer dev.m.Unlock()

	if err := dev.check(sector, buf); err != nil {
		return err
	}
	_, err := dev.file.WriteAt(buf, int64(sector)*common.SectorSize)
	return err
}

func (dev *fileDevice) Close() error {
	dev.m.Lock()
	defer dev.m.Unlock()

	if dev.file == nil {
		return ErrClosed
	}
	err := dev.file.Close()
	dev.file = nil
	return err
}
