package common

// Device geometry and on-disk layout constants. These are build-time
// constants: every structure below is sized so that one node of the
// pointer tree, or one chunk of the free map, fits exactly one sector.

const (
	SectorSize = 128  // bytes per sector
	NumSectors = 1024 // sectors on the device

	IntSize           = 4                       // on-disk integers are int32
	WordsPerSector    = SectorSize / IntSize    // 32
	MaxHeaderPointers = WordsPerSector - 2      // top-level pointers in a header sector
	MaxChildPointers  = WordsPerSector - 1      // child pointers in an indirect node

	// The headers for the free map and the root directory live in fixed
	// sectors so they can be located at mount time.
	FreeMapSector = 0
	RootDirSector = 1

	NameMaxLen    = 9  // directory entry name length, excluding NUL padding
	NumDirEntries = 64 // slots per directory table; directories never grow
	DirEntrySize  = 20 // encoded bytes per entry

	DirFileSize     = NumDirEntries * DirEntrySize
	FreeMapFileSize = NumSectors / 8

	PathDepth  = 25 // maximum components in an absolute path
	PathMaxLen = PathDepth*NameMaxLen + PathDepth
)

// EntryType distinguishes the two kinds of directory entries.
type EntryType uint8

const (
	TypeFile EntryType = 1
	TypeDir  EntryType = 2
)

func (t EntryType) String() string {
	switch t {
	case TypeFile:
		return "F"
	case TypeDir:
		return "D"
	}
	return "?"
}
