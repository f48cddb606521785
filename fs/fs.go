// Package fs coordinates the allocator, headers and directory tables into
// a filesystem: it formats and mounts devices, resolves absolute paths,
// and exposes create/open/remove/list over descriptor-style handles.
package fs

import (
	"fmt"
	"log"
	"sync"

	"github.com/DandinPower/111-2-FileStorageSystem/bitmap"
	"github.com/DandinPower/111-2-FileStorageSystem/common"
	"github.com/DandinPower/111-2-FileStorageSystem/dir"
	"github.com/DandinPower/111-2-FileStorageSystem/file"
	"github.com/DandinPower/111-2-FileStorageSystem/inode"
)

// FileSystem is the coordinator. Two standing files, whose headers live in
// the well-known sectors, stay open for the lifetime of the filesystem:
// the free map and the root directory. Every operation runs under one
// filesystem-wide lock; whatever it touches of {free map, header,
// directory entry} is serialized as a single logical unit.
type FileSystem struct {
	dev common.BlockDevice

	freeMap     *bitmap.Bitmap
	freeMapFile *file.File
	rootFile    *file.File

	filps  map[int]*filp
	nextfd int

	m sync.Mutex
}

// A filp is one open-handle table slot. Every Open gets its own slot and
// its own File, so two opens of the same path never alias: they carry
// independent positions over the same on-disk state.
type filp struct {
	sector int
	file   *file.File
}

// Format initializes an empty filesystem on the device: the free map and
// an empty root directory, each a regular file with its header in a
// well-known sector. The headers are written to the backing store first;
// opening the standing files looks them up by sector, so they must exist
// on disk before that point.
func Format(dev common.BlockDevice) (*FileSystem, error) {
	registerMetrics()

	freeMap := bitmap.New(common.NumSectors)
	freeMap.Mark(common.FreeMapSector)
	freeMap.Mark(common.RootDirSector)

	mapHdr := new(inode.Inode)
	if err := mapHdr.Allocate(freeMap, common.FreeMapFileSize); err != nil {
		return nil, fmt.Errorf("fs: allocate free map: %w", err)
	}
	dirHdr := new(inode.Inode)
	if err := dirHdr.Allocate(freeMap, common.DirFileSize); err != nil {
		return nil, fmt.Errorf("fs: allocate root directory: %w", err)
	}

	if err := mapHdr.WriteBack(dev, common.FreeMapSector); err != nil {
		return nil, err
	}
	if err := dirHdr.WriteBack(dev, common.RootDirSector); err != nil {
		return nil, err
	}

	fs, err := open(dev)
	if err != nil {
		return nil, err
	}
	fs.freeMap = freeMap

	if err := dir.New().WriteBack(fs.rootFile); err != nil {
		return nil, err
	}
	if err := fs.flushFreeMap(); err != nil {
		return nil, err
	}
	log.Printf("fs: formatted device, %d of %d sectors free",
		freeMap.NumClear(), freeMap.NumBits())
	return fs, nil
}

// Mount opens an already formatted device, loading the free map and root
// directory through their well-known header sectors.
func Mount(dev common.BlockDevice) (*FileSystem, error) {
	registerMetrics()

	fs, err := open(dev)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, common.FreeMapFileSize)
	if _, err := fs.freeMapFile.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("fs: read free map: %w", err)
	}
	fs.freeMap, err = bitmap.Unmarshal(buf, common.NumSectors)
	if err != nil {
		return nil, err
	}
	return fs, nil
}

// open binds the two standing files by their well-known sectors.
func open(dev common.BlockDevice) (*FileSystem, error) {
	freeMapFile, err := file.Open(dev, common.FreeMapSector)
	if err != nil {
		return nil, fmt.Errorf("fs: open free map file: %w", err)
	}
	rootFile, err := file.Open(dev, common.RootDirSector)
	if err != nil {
		return nil, fmt.Errorf("fs: open root directory file: %w", err)
	}

	return &FileSystem{
		dev:         dev,
		freeMapFile: freeMapFile,
		rootFile:    rootFile,
		filps:       make(map[int]*filp),
	}, nil
}

// Close flushes the free map and closes the device. Open handles are
// dropped; their descriptors become invalid.
func (fs *FileSystem) Close() error {
	fs.m.Lock()
	defer fs.m.Unlock()

	for fd := range fs.filps {
		delete(fs.filps, fd)
		fsOpenHandles.Dec()
	}
	if err := fs.flushFreeMap(); err != nil {
		return err
	}
	return fs.dev.Close()
}

// flushFreeMap overwrites the persisted map wholesale with the in-memory
// state. Called after every committed mutation.
func (fs *FileSystem) flushFreeMap() error {
	if _, err := fs.freeMapFile.WriteAt(fs.freeMap.Marshal(), 0); err != nil {
		return fmt.Errorf("fs: flush free map: %w", err)
	}
	return nil
}
