package dir

import (
	"iter"

	"github.com/DandinPower/111-2-FileStorageSystem/common"
	"github.com/DandinPower/111-2-FileStorageSystem/file"
)

// Info is one row of a listing.
type Info struct {
	Name  string
	Type  common.EntryType
	Depth int
}

// List returns the in-use entries of this table, in slot order.
func (d *Directory) List() []Info {
	var out []Info
	for i := range d.table {
		if d.table[i].InUse {
			out = append(out, Info{Name: d.table[i].Name, Type: d.table[i].Type})
		}
	}
	return out
}

// ListRecursive walks the tree under this directory depth-first and yields
// one Info per entry, with Depth counting levels below the receiver. The
// sequence is lazy and restartable; it is diagnostic only and has no
// effect on the structure. A subdirectory that cannot be read is yielded
// but not descended into.
func (d *Directory) ListRecursive(dev common.BlockDevice) iter.Seq[Info] {
	return func(yield func(Info) bool) {
		d.walk(dev, 0, yield)
	}
}

func (d *Directory) walk(dev common.BlockDevice, depth int, yield func(Info) bool) bool {
	for i := range d.table {
		e := &d.table[i]
		if !e.InUse {
			continue
		}
		if !yield(Info{Name: e.Name, Type: e.Type, Depth: depth}) {
			return false
		}
		if e.Type != common.TypeDir {
			continue
		}
		subFile, err := file.Open(dev, e.Sector)
		if err != nil {
			continue
		}
		sub := New()
		if err := sub.FetchFrom(subFile); err != nil {
			continue
		}
		if !sub.walk(dev, depth+1, yield) {
			return false
		}
	}
	return true
}
