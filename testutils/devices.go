package testutils

import (
	"testing"

	"github.com/DandinPower/111-2-FileStorageSystem/common"
	"github.com/DandinPower/111-2-FileStorageSystem/device"
)

// NewTestDevice returns a zero-filled ramdisk of the given sector count.
func NewTestDevice(test *testing.T, sectors int) common.BlockDevice {
	dev, err := device.NewEmptyRamdiskDevice(sectors)
	if err != nil {
		FatalHere(test, "Failed when creating ramdisk device: %s", err)
	}
	return dev
}

// NewFullSizeTestDevice returns a ramdisk of the standard device geometry.
func NewFullSizeTestDevice(test *testing.T) common.BlockDevice {
	return NewTestDevice(test, common.NumSectors)
}
