// This command creates a disk image and formats an empty filesystem onto
// it: a free map covering every sector and an empty root directory, with
// their headers in the well-known sectors.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/DandinPower/111-2-FileStorageSystem/common"
	"github.com/DandinPower/111-2-FileStorageSystem/device"
	"github.com/DandinPower/111-2-FileStorageSystem/fs"
)

func main() {
	var help bool
	pflag.BoolVarP(&help, "help", "h", false, "display the usage for this command")
	pflag.Parse()

	if help || pflag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s <image>\n", os.Args[0])
		pflag.PrintDefaults()
		os.Exit(1)
	}
	filename := pflag.Arg(0)

	dev, err := device.CreateFileDevice(filename, common.NumSectors)
	if err != nil {
		log.Fatalf("Unable to create disk image: %s", err)
	}

	fsys, err := fs.Format(dev)
	if err != nil {
		log.Fatalf("Unable to format disk image: %s", err)
	}
	if err := fsys.Close(); err != nil {
		log.Fatalf("Unable to close filesystem: %s", err)
	}

	fmt.Printf("Formatted %s: %d sectors of %d bytes\n",
		filename, common.NumSectors, common.SectorSize)
}
