// Package file provides byte-addressed access to a file's content on top
// of the header's offset-to-sector translation. All transfers against the
// device are whole sectors; partial reads and writes at the edges of a
// request go through a one-sector staging buffer.
package file

import (
	"io"
	"sync"

	"github.com/DandinPower/111-2-FileStorageSystem/common"
	"github.com/DandinPower/111-2-FileStorageSystem/inode"
)

// A File binds an open header to its device and adds a read/write
// position. Each call to the coordinator's Open produces its own File, so
// two opens of the same path track independent positions over the same
// on-disk state.
type File struct {
	dev common.BlockDevice
	ino *inode.Inode
	pos int
	m   sync.Mutex
}

// NewFile wraps an already fetched header.
func NewFile(dev common.BlockDevice, ino *inode.Inode) *File {
	return &File{dev: dev, ino: ino}
}

// Open fetches the header in the given sector and wraps it.
func Open(dev common.BlockDevice, sector int) (*File, error) {
	ino := new(inode.Inode)
	if err := ino.FetchFrom(dev, sector); err != nil {
		return nil, err
	}
	return &File{dev: dev, ino: ino}, nil
}

// Inode returns the header backing this file.
func (f *File) Inode() *inode.Inode {
	return f.ino
}

// Size returns the file's byte length.
func (f *File) Size() int {
	return f.ino.Size()
}

// ReadAt reads up to len(buf) bytes starting at the given offset,
// independent of the file position. Reads are clamped at the file length;
// a read starting at or past it returns 0, io.EOF.
func (f *File) ReadAt(buf []byte, offset int) (int, error) {
	if offset < 0 {
		return 0, common.ERANGE
	}
	if offset >= f.ino.Size() {
		return 0, io.EOF
	}

	n := min(len(buf), f.ino.Size()-offset)
	read := 0
	sbuf := make([]byte, common.SectorSize)
	for read < n {
		pos := offset + read
		sector, err := f.ino.ByteToSector(pos)
		if err != nil {
			return read, err
		}
		if err := f.dev.ReadSector(sector, sbuf); err != nil {
			return read, err
		}
		soff := pos % common.SectorSize
		read += copy(buf[read:n], sbuf[soff:])
	}

	if n < len(buf) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt writes up to len(buf) bytes starting at the given offset. Files
// do not grow after creation, so writes are clamped at the file length; a
// write starting at or past it writes nothing and returns ERANGE.
func (f *File) WriteAt(buf []byte, offset int) (int, error) {
	if offset < 0 || offset >= f.ino.Size() {
		return 0, common.ERANGE
	}

	n := min(len(buf), f.ino.Size()-offset)
	written := 0
	sbuf := make([]byte, common.SectorSize)
	for written < n {
		pos := offset + written
		sector, err := f.ino.ByteToSector(pos)
		if err != nil {
			return written, err
		}

		soff := pos % common.SectorSize
		count := min(n-written, common.SectorSize-soff)

		// Read-modify-write unless the request covers the whole sector.
		if soff != 0 || count < common.SectorSize {
			if err := f.dev.ReadSector(sector, sbuf); err != nil {
				return written, err
			}
		}
		copy(sbuf[soff:], buf[written:written+count])
		if err := f.dev.WriteSector(sector, sbuf); err != nil {
			return written, err
		}
		written += count
	}

	if n < len(buf) {
		return n, common.ERANGE
	}
	return n, nil
}

// Read reads from the current position and advances it.
func (f *File) Read(buf []byte) (int, error) {
	f.m.Lock()
	defer f.m.Unlock()

	n, err := f.ReadAt(buf, f.pos)
	f.pos += n
	return n, err
}

// Write writes at the current position and advances it.
func (f *File) Write(buf []byte) (int, error) {
	f.m.Lock()
	defer f.m.Unlock()

	n, err := f.WriteAt(buf, f.pos)
	f.pos += n
	return n, err
}

// Seek sets the position relative to the start (whence 0) or the current
// position (whence 1).
func (f *File) Seek(offset, whence int) (int, error) {
	f.m.Lock()
	defer f.m.Unlock()

	var pos int
	switch whence {
	case 0:
		pos = offset
	case 1:
		pos = f.pos + offset
	default:
		return f.pos, common.ERANGE
	}
	if pos < 0 {
		return f.pos, common.ERANGE
	}
	f.pos = pos
	return pos, nil
}
