// Package localfs implements the vfs contract on the host file system.
// Paths are native absolute paths, so a single localfs instance can span
// unrelated directory trees such as a restore destination and its source.
package localfs

import (
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"tractor.dev/restorefs/vfs"
)

type FS struct {
	log *slog.Logger
}

func New() *FS {
	return &FS{log: slog.Default()}
}

// NewWithLogger returns a localfs that logs operations to log.
func NewWithLogger(log *slog.Logger) *FS {
	return &FS{log: log}
}

func (fsys *FS) OpenFile(name string, ftype vfs.FileType, flag vfs.OpenFlag) (vfs.File, error) {
	if ftype == vfs.TypeDirectory {
		return nil, &fs.PathError{Op: "open", Path: name, Err: vfs.ErrNotSupported}
	}

	oflag := os.O_RDWR
	if flag&vfs.OpenReadOnly != 0 {
		oflag = os.O_RDONLY
	}
	created := false
	if flag&vfs.OpenCreate != 0 {
		oflag |= os.O_CREATE
		if _, err := os.Lstat(name); err != nil {
			created = true
		}
	}
	if flag&vfs.OpenExclusive != 0 {
		oflag |= os.O_EXCL
	}

	f, err := os.OpenFile(name, oflag, 0o644)
	if err != nil {
		return nil, err
	}
	fsys.log.Debug("open", "name", name, "flag", flag)

	lf := &file{f: f, name: name}
	if created && flag&vfs.OpenDurable != 0 {
		// Make the create itself durable before handing the file out.
		if err := lf.syncParentDir(); err != nil {
			f.Close()
			return nil, err
		}
	}
	return lf, nil
}

func (fsys *FS) ReadDir(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if prefix == "" || strings.HasPrefix(e.Name(), prefix) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (fsys *FS) Exists(name string) (bool, error) {
	if _, err := os.Lstat(name); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (fsys *FS) Remove(name string) error {
	fsys.log.Debug("remove", "name", name)
	return os.Remove(name)
}

func (fsys *FS) Rename(oldname, newname string) error {
	fsys.log.Debug("rename", "from", oldname, "to", newname)
	return os.Rename(oldname, newname)
}

func (fsys *FS) Size(name string) (int64, error) {
	fi, err := os.Stat(name)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

type file struct {
	f    *os.File
	name string
}

func (f *file) Close() error { return f.f.Close() }

func (f *file) ReadAt(p []byte, off int64) (int, error) {
	return f.f.ReadAt(p, off)
}

func (f *file) WriteAt(p []byte, off int64) (int, error) {
	return f.f.WriteAt(p, off)
}

func (f *file) Size() (int64, error) {
	fi, err := f.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (f *file) Sync() error { return f.f.Sync() }

func (f *file) Truncate(size int64) error { return f.f.Truncate(size) }

func (f *file) syncParentDir() error {
	dir := f.name
	if i := strings.LastIndexByte(dir, os.PathSeparator); i > 0 {
		dir = dir[:i]
	} else {
		dir = "."
	}
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
