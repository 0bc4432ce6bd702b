package restorefs

import "tractor.dev/restorefs/vfs"

// A tombstone is a zero-byte sibling of a destination file, named by
// appending a fixed suffix. Its existence asserts that the source's
// same-named file must be treated as nonexistent. There is no in-memory
// index: the markers live on disk only, so they survive crashes for free
// and a restart recovers them by simply looking for the suffix.
const tombstoneSuffix = ".deleted"

func tombstonePath(destPath string) string {
	return destPath + tombstoneSuffix
}

// createTombstone writes the marker for the logical name. A durable open
// flag from the caller carries through to the marker create.
func (fsys *FS) createTombstone(name string, flag vfs.OpenFlag) error {
	marker := tombstonePath(fsys.backingPath(&fsys.dest, name))

	open := vfs.OpenCreate
	if flag&vfs.OpenDurable != 0 {
		open |= vfs.OpenDurable
	}
	f, err := fsys.os.OpenFile(marker, vfs.TypeRegular, open)
	if err != nil {
		return err
	}
	fsys.log.Debug("creating tombstone", "marker", marker)
	return f.Close()
}

// hasTombstone reports whether a marker exists for the given
// destination-side path.
func (fsys *FS) hasTombstone(destPath string) (bool, error) {
	return fsys.os.Exists(tombstonePath(destPath))
}
