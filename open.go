package restorefs

import (
	"io/fs"

	"tractor.dev/restorefs/vfs"
)

// OpenFile opens a live restore file. The destination backing file is
// created if it does not exist yet. If the source holds the file and no
// tombstone hides it, the source is opened too and the hole list describes
// everything still to be copied; otherwise the destination is complete from
// the start.
//
// Directories are not opened through the layered file system; asking for
// one reports ErrNotSupported.
func (fsys *FS) OpenFile(name string, ftype vfs.FileType, flag vfs.OpenFlag) (vfs.File, error) {
	if ftype == vfs.TypeDirectory {
		return nil, &fs.PathError{Op: "open", Path: name, Err: vfs.ErrNotSupported}
	}
	fsys.log.Debug("open", "name", name, "type", ftype, "flag", flag)

	f := &File{fsys: fsys, name: name, ftype: ftype}

	destExists, err := fsys.hasFile(&fsys.dest, name)
	if err != nil {
		return nil, err
	}
	if err := fsys.openInDestination(f, flag, !destExists); err != nil {
		return nil, err
	}

	// From here on the destination handle is open; unwind it on failure.
	if err := fsys.finishOpen(f, name, flag, destExists); err != nil {
		f.release()
		return nil, err
	}
	return f, nil
}

func (fsys *FS) finishOpen(f *File, name string, flag vfs.OpenFlag, destExists bool) error {
	destPath := fsys.backingPath(&fsys.dest, name)
	dead, err := fsys.hasTombstone(destPath)
	if err != nil {
		return err
	}
	if dead {
		// A tombstone means the source must never be consulted, so
		// the destination is complete by definition.
		f.complete = true
		f.holes.clear()
		return nil
	}

	sourceExists, err := fsys.hasFile(&fsys.source, name)
	if err != nil {
		return err
	}
	if !sourceExists {
		// Nothing to migrate from.
		f.complete = true
		return fsys.verifyHoles(f, name)
	}

	if err := fsys.openInSource(f, flag); err != nil {
		return err
	}

	if !destExists {
		// A fresh destination file backing a source file. Give it the
		// source's length up front and mark the whole range as one
		// hole to copy.
		sourceSize, err := f.source.Size()
		if err != nil {
			return err
		}
		fsys.log.Debug("backing new destination file", "name", name, "source_size", sourceSize)

		// Extend directly on the destination handle; going through
		// the layer would try to update the hole list.
		if err := f.dest.Truncate(sourceSize); err != nil {
			return err
		}
		if sourceSize > 0 {
			f.holes.head = &hole{off: 0, len: sourceSize}
		}
	}

	return fsys.verifyHoles(f, name)
}

// openInDestination opens the backing destination file, creating it when the
// destination does not have it yet, and reconstructs the hole list from the
// file's sparse layout.
func (fsys *FS) openInDestination(f *File, flag vfs.OpenFlag, create bool) error {
	if create {
		flag |= vfs.OpenCreate
	}
	// Promotion writes through the destination handle even when the
	// caller only reads, so the destination always opens read-write.
	flag &^= vfs.OpenReadOnly
	df, err := fsys.os.OpenFile(fsys.backingPath(&fsys.dest, f.name), f.ftype, flag)
	if err != nil {
		return err
	}
	f.dest = df

	if err := f.discoverHoles(); err != nil {
		df.Close()
		f.dest = nil
		return err
	}
	return nil
}

// openInSource opens the backing source file read-only.
func (fsys *FS) openInSource(f *File, flag vfs.OpenFlag) error {
	// The create flag comes from up the stack, which has no concept of
	// layers. It never applies to the read-only source.
	flag &^= vfs.OpenCreate | vfs.OpenExclusive
	flag |= vfs.OpenReadOnly

	sf, err := fsys.os.OpenFile(fsys.backingPath(&fsys.source, f.name), f.ftype, flag)
	if err != nil {
		return err
	}
	f.source = sf
	return nil
}
