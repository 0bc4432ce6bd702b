// Package vfs defines the file system contract consumed by the live restore
// layer and by the storage engine above it. It is a narrow, random-access
// shape: files are addressed by full native paths and read or written at
// explicit offsets. Implementations provide the concrete behavior; optional
// capabilities (sparse scans, teardown) are discovered through interface
// assertions with helpers that fall back to ErrNotSupported, so callers never
// need to know which implementation they hold.
package vfs

import (
	"errors"
	"io"
	"io/fs"
)

var (
	ErrNotSupported = errors.New("operation not supported")

	// Re-exported for callers matching errors from any implementation.
	ErrNotExist = fs.ErrNotExist
	ErrExist    = fs.ErrExist
	ErrInvalid  = fs.ErrInvalid
)

// FileType describes what a file is used for. Implementations may ignore it,
// but layered file systems use it to route directory opens differently.
type FileType int

const (
	TypeData FileType = iota
	TypeLog
	TypeRegular
	TypeDirectory
)

// OpenFlag modifies OpenFile behavior.
type OpenFlag uint32

const (
	OpenCreate OpenFlag = 1 << iota
	OpenReadOnly
	// OpenDurable requests that the create of the file itself is durable
	// before OpenFile returns.
	OpenDurable
	OpenExclusive
)

// FS is a file system addressed by native paths.
type FS interface {
	OpenFile(name string, ftype FileType, flag OpenFlag) (File, error)

	// ReadDir lists the base names of entries in dir that begin with
	// prefix. An empty prefix matches everything.
	ReadDir(dir, prefix string) ([]string, error)

	Exists(name string) (bool, error)
	Remove(name string) error
	Rename(oldname, newname string) error

	// Size reports the size of the named file in bytes.
	Size(name string) (int64, error)
}

// File is an open random-access file. Memory mapping, preallocation, and
// advisory hints are deliberately absent from the contract; callers that
// probe for them get nothing to probe.
type File interface {
	io.Closer
	io.ReaderAt
	io.WriterAt

	Size() (int64, error)
	Sync() error
	Truncate(size int64) error

	// Lock acquires (true) or releases (false) an exclusive lock on the
	// file.
	Lock(lock bool) error
}

// SparseFile is implemented by files that can report their data/hole layout.
type SparseFile interface {
	File

	// NextData returns the next range [start, end) at or after off that
	// contains data. It returns io.EOF when no data remains at or after
	// off.
	NextData(off int64) (start, end int64, err error)
}

// NextData locates the next data range of f if it supports sparse scans.
func NextData(f File, off int64) (start, end int64, err error) {
	if sf, ok := f.(SparseFile); ok {
		return sf.NextData(off)
	}
	return 0, 0, ErrNotSupported
}

// Terminator is implemented by file systems that hold releasable resources.
type Terminator interface {
	Terminate() error
}

// Terminate tears down fsys if it supports it.
func Terminate(fsys FS) error {
	if t, ok := fsys.(Terminator); ok {
		return t.Terminate()
	}
	return nil
}
