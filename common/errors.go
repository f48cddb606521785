package common

import "errors"

// Error values returned by the filesystem layers. The names follow the
// usual errno mnemonics so call sites read like the system calls they
// back; callers compare with errors.Is.

var (
	EBADF   = errors.New("bad file descriptor")
	EEXIST  = errors.New("file exists")
	EFBIG   = errors.New("file too large")
	EINVAL  = errors.New("invalid path")
	ENOENT  = errors.New("no such file or directory")
	ENOSPC  = errors.New("no space left on device")
	ENOTDIR = errors.New("not a directory")
	EPERM   = errors.New("operation not permitted")
	ERANGE  = errors.New("offset out of range")
)
