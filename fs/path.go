package fs

import (
	"strings"

	"github.com/DandinPower/111-2-FileStorageSystem/common"
	"github.com/DandinPower/111-2-FileStorageSystem/dir"
	"github.com/DandinPower/111-2-FileStorageSystem/file"
)

// splitPath validates an absolute path and returns its components. Paths
// must start with '/', stay within the fixed depth, and every component
// must fit a directory entry name. Repeated separators are collapsed.
func splitPath(path string) ([]string, error) {
	if path == "" || path[0] != '/' {
		return nil, common.EINVAL
	}
	if len(path) > common.PathMaxLen {
		return nil, common.EINVAL
	}

	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p == "" {
			continue
		}
		if len(p) > common.NameMaxLen {
			return nil, common.EINVAL
		}
		parts = append(parts, p)
	}
	if len(parts) > common.PathDepth {
		return nil, common.EINVAL
	}
	return parts, nil
}

// lastDir resolves the directory containing the path's final component and
// returns it, its backing file, and the final component itself (empty for
// the root path). There is no directory cursor: resolution always starts
// from the root and the caller receives the resolved directory as a value.
func (fs *FileSystem) lastDir(path string) (*dir.Directory, *file.File, string, error) {
	parts, err := splitPath(path)
	if err != nil {
		return nil, nil, "", err
	}

	leaf := ""
	if len(parts) > 0 {
		leaf = parts[len(parts)-1]
		parts = parts[:len(parts)-1]
	}

	d, df, err := fs.walkDir(parts)
	if err != nil {
		return nil, nil, "", err
	}
	return d, df, leaf, nil
}

// walkDir descends the given components from the root, failing with ENOENT
// for a missing component and ENOTDIR when an intermediate component is a
// file.
func (fs *FileSystem) walkDir(parts []string) (*dir.Directory, *file.File, error) {
	df := fs.rootFile
	d := dir.New()
	if err := d.FetchFrom(df); err != nil {
		return nil, nil, err
	}

	for _, name := range parts {
		i := d.FindIndex(name)
		if i == -1 {
			return nil, nil, common.ENOENT
		}
		e, _ := d.Get(i)
		if e.Type != common.TypeDir {
			return nil, nil, common.ENOTDIR
		}

		sub, err := file.Open(fs.dev, e.Sector)
		if err != nil {
			return nil, nil, err
		}
		df = sub
		d = dir.New()
		if err := d.FetchFrom(df); err != nil {
			return nil, nil, err
		}
	}
	return d, df, nil
}

// targetDir resolves a path all the way to a directory: the root for "/",
// otherwise the named subdirectory of its parent.
func (fs *FileSystem) targetDir(path string) (*dir.Directory, *file.File, error) {
	parts, err := splitPath(path)
	if err != nil {
		return nil, nil, err
	}
	return fs.walkDir(parts)
}
