package device

import "errors"

var (
	ErrBadSector = errors.New("sector number out of range")
	ErrBadBuffer = errors.New("buffer is not exactly one sector")
	ErrClosed    = errors.New("device is closed")
)
