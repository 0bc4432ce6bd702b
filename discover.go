package restorefs

import (
	"errors"
	"io"
	"io/fs"

	"tractor.dev/restorefs/vfs"
)

// discoverHoles reconstructs the hole list of an existing destination file
// from its sparse layout. The file starts as one big hole; each data range
// the scan reports is subtracted, leaving exactly the ranges that still need
// copying from the source.
func (f *File) discoverHoles() error {
	size, err := f.dest.Size()
	if err != nil {
		return err
	}
	if size > 0 {
		f.holes.head = &hole{off: 0, len: size}
	}

	for pos := int64(0); ; {
		start, end, err := vfs.NextData(f.dest, pos)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		f.fsys.log.Debug("discovered data", "name", f.name, "start", start, "end", end)
		f.holes.removeRange(start, end-start)
		pos = end
	}
	return nil
}

// verifyHoles checks the discovered list against the source file. A hole
// at or past the end of the source would read undefined bytes and copy them
// into the destination, so it fails the open instead.
func (fsys *FS) verifyHoles(f *File, name string) error {
	if f.holes.empty() {
		return nil
	}

	ok, err := fsys.hasFile(&fsys.source, name)
	if err != nil {
		return err
	}
	if !ok {
		// Holes with no source to fill them from. The destination
		// file is corrupt or the source was detached too early.
		return &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	sourceSize, err := fsys.os.Size(fsys.backingPath(&fsys.source, name))
	if err != nil {
		return err
	}
	if last := f.holes.last(); last.end() >= sourceSize {
		fsys.log.Error("hole list extends past end of source file",
			"name", name, "hole_end", last.end(), "source_size", sourceSize)
		return &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	return nil
}
