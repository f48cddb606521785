package dir

import (
	"fmt"

	"github.com/DandinPower/111-2-FileStorageSystem/bitmap"
	"github.com/DandinPower/111-2-FileStorageSystem/common"
	"github.com/DandinPower/111-2-FileStorageSystem/file"
	"github.com/DandinPower/111-2-FileStorageSystem/inode"
)

// RemoveRecursive empties the directory, releasing the header, pointer
// tree and data of every entry; subdirectories are emptied depth-first
// before their own storage is freed. self is the file backing this table.
//
// Deletion only releases resources, so a failure partway through the
// fan-out does not restore siblings that were already freed. What it must
// never do is leave a freed sector referenced by a surviving entry: each
// slot is cleared as soon as its subtree is gone, and on error the
// half-cleared table is written back before the error surfaces.
func (d *Directory) RemoveRecursive(dev common.BlockDevice, bm *bitmap.Bitmap, self *file.File) error {
	for i := range d.table {
		if !d.table[i].InUse {
			continue
		}
		if err := d.removeEntry(dev, bm, i); err != nil {
			if self != nil {
				// Keep freed sectors unreferenced on the device.
				if werr := d.WriteBack(self); werr != nil {
					return fmt.Errorf("dir: persist cleared entries: %v: %w", werr, err)
				}
			}
			return err
		}
		d.table[i] = Entry{}
	}
	return nil
}

// removeEntry frees everything reachable from one slot: for a directory,
// first its contents, then in either case the entry's pointer tree and
// header sector.
func (d *Directory) removeEntry(dev common.BlockDevice, bm *bitmap.Bitmap, index int) error {
	e := &d.table[index]

	if e.Type == common.TypeDir {
		subFile, err := file.Open(dev, e.Sector)
		if err != nil {
			return fmt.Errorf("dir: open %q: %w", e.Name, err)
		}
		sub := New()
		if err := sub.FetchFrom(subFile); err != nil {
			return fmt.Errorf("dir: fetch %q: %w", e.Name, err)
		}
		if err := sub.RemoveRecursive(dev, bm, subFile); err != nil {
			return err
		}
		subFile.Inode().Deallocate(bm)
		bm.Clear(e.Sector)
		return nil
	}

	ino := new(inode.Inode)
	if err := ino.FetchFrom(dev, e.Sector); err != nil {
		return fmt.Errorf("dir: fetch %q: %w", e.Name, err)
	}
	ino.Deallocate(bm)
	bm.Clear(e.Sector)
	return nil
}
