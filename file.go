package restorefs

import (
	"context"
	"sync"

	"tractor.dev/restorefs/vfs"
)

// File is an open live restore file. It wraps a destination handle and,
// while un-migrated ranges remain, a source handle. Writes always land in
// the destination; reads are serviced from the destination when possible
// and otherwise from the source, with the bytes promoted into the
// destination so the range never has to be fetched again.
//
// A single mutex serializes reads, writes, truncates and every access to the
// hole list, covering their destination I/O and the list update together: a
// reader that finds a range serviceable must never observe bytes older than
// the write that made it so. Size, Sync and Lock go straight to the
// destination handle without taking it.
type File struct {
	fsys  *FS
	name  string
	ftype vfs.FileType

	mu       sync.Mutex
	dest     vfs.File
	source   vfs.File // nil when the source never had the file
	holes    extentList
	complete bool
}

// Name returns the logical name the file was opened with.
func (f *File) Name() string { return f.name }

// Complete reports whether the source is known to be unnecessary for this
// file.
func (f *File) Complete() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.complete
}

// Holes returns the ranges still to be migrated from the source.
func (f *File) Holes() []Extent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.holes.extents()
}

// WriteAt writes to the destination. The data is made durable before the
// hole list records the range as present: after a crash the worst case is a
// hole that was already filled, never a filled range whose bytes are not on
// disk.
func (f *File) WriteAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeLocked(p, off)
}

func (f *File) writeLocked(p []byte, off int64) (int, error) {
	f.fsys.log.Debug("write", "name", f.name, "off", off, "len", len(p))
	n, err := f.dest.WriteAt(p, off)
	if err != nil {
		return n, err
	}
	if err := f.dest.Sync(); err != nil {
		return n, err
	}
	f.holes.removeRange(off, int64(len(p)))
	return n, nil
}

// ReadAt reads len(p) bytes at off. If the range has been migrated (or the
// file never had a source) the destination services it; otherwise the bytes
// come from the source and are promoted into the destination on the way
// through.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.complete || f.source == nil || f.holes.canService(off, int64(len(p))) {
		f.fsys.log.Debug("read", "name", f.name, "off", off, "len", len(p), "layer", LayerDestination)
		return f.dest.ReadAt(p, off)
	}

	f.fsys.log.Debug("read", "name", f.name, "off", off, "len", len(p), "layer", LayerSource)
	n, err := f.source.ReadAt(p, off)
	if err != nil {
		return n, err
	}
	// Promote the read so the destination can service it next time.
	if _, err := f.writeLocked(p[:n], off); err != nil {
		return n, err
	}
	return n, nil
}

// Truncate changes the length of the destination file. Whether shortening
// or extending, the affected range will never need to be read from the
// source: shortened bytes are gone and extended bytes read as zeros from
// the destination.
func (f *File) Truncate(size int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	old, err := f.dest.Size()
	if err != nil {
		return err
	}
	if old == size {
		// Some callers truncate without changing the length.
		return nil
	}
	f.fsys.log.Debug("truncate", "name", f.name, "from", old, "to", size)

	lo, hi := size, old
	if old < size {
		lo, hi = old, size
	}
	f.holes.removeRange(lo, hi-lo)

	return f.dest.Truncate(size)
}

// Size returns the destination size, which is authoritative.
func (f *File) Size() (int64, error) {
	return f.dest.Size()
}

// Sync syncs the destination. The source is read-only.
func (f *File) Sync() error {
	return f.dest.Sync()
}

// Lock locks or unlocks the destination file.
func (f *File) Lock(lock bool) error {
	return f.dest.Lock(lock)
}

// Close releases the handle and its hole list. With FillHolesOnClose set on
// the mount, every remaining hole is migrated first.
func (f *File) Close() error {
	f.fsys.log.Debug("close", "name", f.name)

	if f.fsys.fillOnClose {
		if err := f.FillHoles(context.Background()); err != nil {
			return err
		}
	}
	return f.release()
}

// release closes both handles and drops the hole list without any
// fill-on-close pass. Used by Close and by open failing partway through.
func (f *File) release() error {
	err := f.dest.Close()

	f.mu.Lock()
	f.holes.clear()
	src := f.source
	f.source = nil
	f.mu.Unlock()

	if src != nil {
		if cerr := src.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
