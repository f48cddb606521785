// Package dir implements the fixed-capacity directory table: a flat array
// of (name, type, header sector) entries persisted as ordinary file
// content through the directory's own header. Tables never grow; removal
// clears a slot in place and a later add may reuse it.
package dir

import (
	"encoding/binary"

	"github.com/DandinPower/111-2-FileStorageSystem/common"
	"github.com/DandinPower/111-2-FileStorageSystem/file"
)

// An Entry names one file or subdirectory and the sector of its header.
type Entry struct {
	InUse  bool
	Type   common.EntryType
	Sector int
	Name   string
}

type Directory struct {
	table [common.NumDirEntries]Entry
}

// New returns an empty directory table.
func New() *Directory {
	return new(Directory)
}

// FetchFrom reads the table from the directory's file content.
func (d *Directory) FetchFrom(f *file.File) error {
	buf := make([]byte, common.DirFileSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return err
	}
	for i := range d.table {
		d.table[i] = decodeEntry(buf[i*common.DirEntrySize:])
	}
	return nil
}

// WriteBack writes the table into the directory's file content.
func (d *Directory) WriteBack(f *file.File) error {
	buf := make([]byte, common.DirFileSize)
	for i := range d.table {
		encodeEntry(buf[i*common.DirEntrySize:], &d.table[i])
	}
	_, err := f.WriteAt(buf, 0)
	return err
}

// FindIndex returns the slot holding the named entry, or -1.
func (d *Directory) FindIndex(name string) int {
	for i := range d.table {
		if d.table[i].InUse && d.table[i].Name == name {
			return i
		}
	}
	return -1
}

// Find returns the header sector for the named entry.
func (d *Directory) Find(name string) (int, error) {
	i := d.FindIndex(name)
	if i == -1 {
		return 0, common.ENOENT
	}
	return d.table[i].Sector, nil
}

// Get returns the entry in the given slot; ok is false for a free slot.
func (d *Directory) Get(index int) (Entry, bool) {
	if index < 0 || index >= len(d.table) || !d.table[index].InUse {
		return Entry{}, false
	}
	return d.table[index], true
}

// IsDirectory reports whether the named entry exists and is a directory.
func (d *Directory) IsDirectory(name string) bool {
	i := d.FindIndex(name)
	return i != -1 && d.table[i].Type == common.TypeDir
}

// Add enters a name into the first free slot. It fails with EEXIST if the
// name is already present and ENOSPC if every slot is taken; the table
// never grows.
func (d *Directory) Add(name string, sector int, typ common.EntryType) error {
	if name == "" || len(name) > common.NameMaxLen {
		return common.EINVAL
	}
	if d.FindIndex(name) != -1 {
		return common.EEXIST
	}
	for i := range d.table {
		if !d.table[i].InUse {
			d.table[i] = Entry{InUse: true, Type: typ, Sector: sector, Name: name}
			return nil
		}
	}
	return common.ENOSPC
}

// Remove clears the named entry without compacting the table.
func (d *Directory) Remove(name string) error {
	i := d.FindIndex(name)
	if i == -1 {
		return common.ENOENT
	}
	d.table[i] = Entry{}
	return nil
}

// RemoveAt clears the entry in the given slot.
func (d *Directory) RemoveAt(index int) error {
	if index < 0 || index >= len(d.table) || !d.table[index].InUse {
		return common.ENOENT
	}
	d.table[index] = Entry{}
	return nil
}

func decodeEntry(buf []byte) Entry {
	if buf[0] == 0 {
		return Entry{}
	}
	name := buf[8 : 8+common.NameMaxLen+1]
	n := 0
	for n < len(name) && name[n] != 0 {
		n++
	}
	return Entry{
		InUse:  true,
		Type:   common.EntryType(buf[1]),
		Sector: int(int32(binary.LittleEndian.Uint32(buf[4:]))),
		Name:   string(name[:n]),
	}
}

func encodeEntry(buf []byte, e *Entry) {
	for i := 0; i < common.DirEntrySize; i++ {
		buf[i] = 0
	}
	if !e.InUse {
		return
	}
	buf[0] = 1
	buf[1] = byte(e.Type)
	binary.LittleEndian.PutUint32(buf[4:], uint32(int32(e.Sector)))
	copy(buf[8:8+common.NameMaxLen], e.Name)
}
