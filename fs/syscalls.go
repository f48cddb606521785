package fs

import (
	"errors"

	"github.com/DandinPower/111-2-FileStorageSystem/bitmap"
	"github.com/DandinPower/111-2-FileStorageSystem/common"
	"github.com/DandinPower/111-2-FileStorageSystem/dir"
	"github.com/DandinPower/111-2-FileStorageSystem/file"
	"github.com/DandinPower/111-2-FileStorageSystem/inode"
)

// Create makes a new file of the given size under the path's parent
// directory. Files do not grow afterwards, so the size fixes the pointer
// tree once and for all.
func (fs *FileSystem) Create(path string, size int) error {
	fs.m.Lock()
	defer fs.m.Unlock()

	err := fs.createNode(path, size, common.TypeFile)
	countOp("create", err)
	return err
}

// CreateDirectory makes a new empty subdirectory.
func (fs *FileSystem) CreateDirectory(path string) error {
	fs.m.Lock()
	defer fs.m.Unlock()

	err := fs.createNode(path, common.DirFileSize, common.TypeDir)
	countOp("mkdir", err)
	return err
}

// createNode is the shared create path. The commit is all-or-nothing from
// the caller's view: the header sector, the pointer tree and the directory
// entry are claimed in that order, and any failure unwinds every claim
// made so far. Nothing is written to the device until all claims held.
func (fs *FileSystem) createNode(path string, size int, typ common.EntryType) error {
	d, df, leaf, err := fs.lastDir(path)
	if err != nil {
		return err
	}
	if leaf == "" {
		return common.EINVAL
	}
	if d.FindIndex(leaf) != -1 {
		return common.EEXIST
	}

	hdrSector := fs.freeMap.FindAndSet()
	if hdrSector == bitmap.NoBit {
		return common.ENOSPC
	}

	ino := new(inode.Inode)
	if err := ino.Allocate(fs.freeMap, size); err != nil {
		fs.freeMap.Clear(hdrSector)
		return err
	}
	if err := d.Add(leaf, hdrSector, typ); err != nil {
		ino.Deallocate(fs.freeMap)
		fs.freeMap.Clear(hdrSector)
		return err
	}

	if err := fs.writeNode(ino, hdrSector, typ, d, df); err != nil {
		// The entry never became reachable, so the claims unwind the
		// same way an allocation failure does.
		d.Remove(leaf)
		ino.Deallocate(fs.freeMap)
		fs.freeMap.Clear(hdrSector)
		return err
	}
	return fs.flushFreeMap()
}

// writeNode persists a freshly created node: its header, an empty table
// when it is a directory, and the parent entry that makes it reachable.
func (fs *FileSystem) writeNode(ino *inode.Inode, hdrSector int, typ common.EntryType, d *dir.Directory, df *file.File) error {
	if err := ino.WriteBack(fs.dev, hdrSector); err != nil {
		return err
	}
	if typ == common.TypeDir {
		// A fresh directory must read as empty before anyone opens it.
		if err := dir.New().WriteBack(file.NewFile(fs.dev, ino)); err != nil {
			return err
		}
	}
	return d.WriteBack(df)
}

// Open resolves a path and binds a new descriptor to its header sector.
// Content transfer happens through Read and Write on the descriptor; Open
// itself moves no data.
func (fs *FileSystem) Open(path string) (int, error) {
	fs.m.Lock()
	defer fs.m.Unlock()

	fd, err := fs.doOpen(path)
	countOp("open", err)
	return fd, err
}

func (fs *FileSystem) doOpen(path string) (int, error) {
	d, _, leaf, err := fs.lastDir(path)
	if err != nil {
		return 0, err
	}
	sector, err := d.Find(leaf)
	if err != nil {
		return 0, err
	}

	f, err := file.Open(fs.dev, sector)
	if err != nil {
		return 0, err
	}

	fd := fs.nextfd
	fs.nextfd++
	fs.filps[fd] = &filp{sector: sector, file: f}
	fsOpenHandles.Inc()
	return fd, nil
}

// Read transfers bytes from the descriptor's current position.
func (fs *FileSystem) Read(fd int, buf []byte) (int, error) {
	fs.m.Lock()
	defer fs.m.Unlock()

	fi, ok := fs.filps[fd]
	if !ok {
		return 0, common.EBADF
	}
	return fi.file.Read(buf)
}

// Write transfers bytes at the descriptor's current position.
func (fs *FileSystem) Write(fd int, buf []byte) (int, error) {
	fs.m.Lock()
	defer fs.m.Unlock()

	fi, ok := fs.filps[fd]
	if !ok {
		return 0, common.EBADF
	}
	return fi.file.Write(buf)
}

// Seek repositions the descriptor.
func (fs *FileSystem) Seek(fd, offset, whence int) (int, error) {
	fs.m.Lock()
	defer fs.m.Unlock()

	fi, ok := fs.filps[fd]
	if !ok {
		return 0, common.EBADF
	}
	return fi.file.Seek(offset, whence)
}

// CloseFile releases a descriptor.
func (fs *FileSystem) CloseFile(fd int) error {
	fs.m.Lock()
	defer fs.m.Unlock()

	if _, ok := fs.filps[fd]; !ok {
		return common.EBADF
	}
	delete(fs.filps, fd)
	fsOpenHandles.Dec()
	return nil
}

// Remove deletes the file or directory at the path. Directories are
// emptied recursively first. The root cannot be removed.
func (fs *FileSystem) Remove(path string) error {
	fs.m.Lock()
	defer fs.m.Unlock()

	err := fs.doRemove(path)
	countOp("remove", err)
	return err
}

func (fs *FileSystem) doRemove(path string) error {
	d, df, leaf, err := fs.lastDir(path)
	if err != nil {
		return err
	}
	if leaf == "" {
		return common.EPERM // the root directory stays
	}
	i := d.FindIndex(leaf)
	if i == -1 {
		return common.ENOENT
	}
	e, _ := d.Get(i)

	if e.Type == common.TypeDir {
		subFile, err := file.Open(fs.dev, e.Sector)
		if err != nil {
			return err
		}
		sub := dir.New()
		if err := sub.FetchFrom(subFile); err != nil {
			return err
		}
		if err := sub.RemoveRecursive(fs.dev, fs.freeMap, subFile); err != nil {
			// Siblings freed before the failure stay freed; persist
			// that so the map never disagrees with the tree.
			fs.flushFreeMap()
			return err
		}
		subFile.Inode().Deallocate(fs.freeMap)
	} else {
		ino := new(inode.Inode)
		if err := ino.FetchFrom(fs.dev, e.Sector); err != nil {
			return err
		}
		ino.Deallocate(fs.freeMap)
	}

	fs.freeMap.Clear(e.Sector)
	d.RemoveAt(i)
	if err := d.WriteBack(df); err != nil {
		return err
	}
	return fs.flushFreeMap()
}

// List returns the entries of the directory at the path.
func (fs *FileSystem) List(path string) ([]dir.Info, error) {
	fs.m.Lock()
	defer fs.m.Unlock()

	d, _, err := fs.targetDir(path)
	if err != nil {
		countOp("list", err)
		return nil, err
	}
	countOp("list", nil)
	return d.List(), nil
}

// ListRecursive returns the whole tree under the directory at the path,
// depth-first, with Depth counting levels below it.
func (fs *FileSystem) ListRecursive(path string) ([]dir.Info, error) {
	fs.m.Lock()
	defer fs.m.Unlock()

	d, _, err := fs.targetDir(path)
	if err != nil {
		countOp("list", err)
		return nil, err
	}

	var out []dir.Info
	for info := range d.ListRecursive(fs.dev) {
		out = append(out, info)
	}
	countOp("list", nil)
	return out, nil
}

// NumClear reports how many sectors are free. Diagnostic.
func (fs *FileSystem) NumClear() int {
	fs.m.Lock()
	defer fs.m.Unlock()

	return fs.freeMap.NumClear()
}

// errClass maps an operation error onto the label used by the operations
// counter.
func errClass(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ENOENT):
		return "not_found"
	case errors.Is(err, common.EEXIST):
		return "exists"
	case errors.Is(err, common.ENOSPC):
		return "no_space"
	case errors.Is(err, common.EFBIG):
		return "too_large"
	case errors.Is(err, common.EINVAL), errors.Is(err, common.ENOTDIR):
		return "bad_path"
	case errors.Is(err, common.EPERM):
		return "not_allowed"
	case errors.Is(err, common.EBADF):
		return "bad_fd"
	case errors.Is(err, common.ERANGE):
		return "out_of_range"
	}
	return "io_error"
}
