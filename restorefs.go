// Package restorefs implements a layered "live restore" file system. It
// presents a single logical directory tree in which every file appears to
// live in a writable destination directory, while data is progressively
// migrated from a read-only source directory. Reads of ranges not yet
// migrated are serviced from the source and written back to the destination,
// and each open file tracks the ranges still to copy as holes in an extent
// list. Once every hole has been filled the destination is self-sufficient
// and the source can be detached.
//
// Deletions are recorded as tombstones: zero-byte marker files in the
// destination whose presence says the source's same-named file must be
// ignored. Tombstones and the sparse layout of destination files are the
// only persisted state, so recovery after a crash is a matter of rescanning
// the destination.
package restorefs

import (
	"fmt"
	"io/fs"
	"log/slog"

	"tractor.dev/restorefs/vfs"
	"tractor.dev/restorefs/vfs/localfs"
)

// Options configures a live restore file system.
type Options struct {
	// SourcePath is the absolute path of the read-only source directory.
	// Must be set.
	SourcePath string

	// Threads caps the number of concurrent background fill workers used
	// by Migrate. Values below one are treated as one.
	Threads int

	// FillHolesOnClose forces every remaining hole of a file to be filled
	// when the file is closed. Debug aid: it makes close O(file size).
	FillHolesOnClose bool

	// FS is the backing file system holding both layers. Defaults to the
	// host file system.
	FS vfs.FS

	Logger *slog.Logger
}

// FS is a live restore file system rooted at a destination home directory.
// It implements vfs.FS so it can be handed to the storage engine in place of
// the host file system.
type FS struct {
	os     vfs.FS
	dest   layer
	source layer

	threads     int
	fillOnClose bool
	log         *slog.Logger
}

// New mounts a live restore file system with home as the writable
// destination. The source directory named in opts must exist.
func New(home string, opts *Options) (*FS, error) {
	if opts == nil || opts.SourcePath == "" {
		return nil, fmt.Errorf("restorefs: no source path configured")
	}
	fsys := &FS{
		os:          opts.FS,
		dest:        layer{home: home, kind: LayerDestination},
		source:      layer{home: opts.SourcePath, kind: LayerSource},
		threads:     opts.Threads,
		fillOnClose: opts.FillHolesOnClose,
		log:         opts.Logger,
	}
	if fsys.os == nil {
		fsys.os = localfs.New()
	}
	if fsys.threads < 1 {
		fsys.threads = 1
	}
	if fsys.log == nil {
		fsys.log = slog.Default()
	}

	// The source must be openable at mount time. What it contains is not
	// validated here.
	ok, err := fsys.os.Exists(fsys.source.home)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &fs.PathError{Op: "mount", Path: fsys.source.home, Err: fs.ErrNotExist}
	}

	fsys.log.Debug("live restore mounted", "source", fsys.source.home, "destination", home)
	return fsys, nil
}

// Home returns the destination home directory.
func (fsys *FS) Home() string { return fsys.dest.home }

// Exists reports whether name is visible in either layer. A source file
// hidden by a tombstone is not visible.
func (fsys *FS) Exists(name string) (bool, error) {
	which, ok, err := fsys.findLayer(name)
	if err != nil || !ok {
		return ok, err
	}
	if which == LayerSource {
		dead, err := fsys.hasTombstone(fsys.backingPath(&fsys.dest, name))
		if err != nil {
			return false, err
		}
		return !dead, nil
	}
	return true, nil
}

// Remove deletes name from the destination if present there and records a
// tombstone so the source copy, if any, stays hidden. Removing a name that
// exists in neither layer is a no-op.
func (fsys *FS) Remove(name string) error {
	which, ok, err := fsys.findLayer(name)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	// The name may only exist in the source; then there is nothing to
	// delete and only the tombstone is needed.
	if which == LayerDestination {
		if err := fsys.os.Remove(fsys.backingPath(&fsys.dest, name)); err != nil {
			return err
		}
	}

	// The tombstone also covers the create/remove/create-again sequence:
	// it records that the source must never be consulted for this name
	// again.
	return fsys.createTombstone(name, 0)
}

// Rename renames from to to. The backing rename happens in the destination
// only; tombstones for both names keep the source copies hidden.
func (fsys *FS) Rename(from, to string) error {
	fsys.log.Debug("rename", "from", from, "to", to)

	which, ok, err := fsys.findLayer(from)
	if err != nil {
		return err
	}
	if !ok {
		return &fs.PathError{Op: "rename", Path: from, Err: fs.ErrNotExist}
	}

	if which == LayerDestination {
		pathFrom := fsys.backingPath(&fsys.dest, from)
		pathTo := fsys.backingPath(&fsys.dest, to)
		if err := fsys.os.Rename(pathFrom, pathTo); err != nil {
			return err
		}
	}

	// Even when no backing file moves the markers must be updated.
	if err := fsys.createTombstone(to, 0); err != nil {
		return err
	}
	return fsys.createTombstone(from, 0)
}

// Size returns the size of name. The destination is authoritative: a file
// that has not been opened, and so exists only in the source, reports
// fs.ErrNotExist.
func (fsys *FS) Size(name string) (int64, error) {
	_, ok, err := fsys.findLayer(name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, &fs.PathError{Op: "size", Path: name, Err: fs.ErrNotExist}
	}
	return fsys.os.Size(fsys.backingPath(&fsys.dest, name))
}

// Close tears down the backing file system. Open files must be closed
// first.
func (fsys *FS) Close() error {
	return vfs.Terminate(fsys.os)
}
