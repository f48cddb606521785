package common

// BlockDevice is the raw sector-addressed device the filesystem sits on.
// Buffers passed to ReadSector and WriteSector must be exactly SectorSize
// bytes; transfers are whole sectors only.
type BlockDevice interface {
	ReadSector(sector int, buf []byte) error
	WriteSector(sector int, buf []byte) error
	Close() error
}
