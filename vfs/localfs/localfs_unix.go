//go:build unix

package localfs

import (
	"io"

	"golang.org/x/sys/unix"
)

// NextData reports the next data range at or after off using the
// SEEK_DATA/SEEK_HOLE protocol. On file systems that do not track holes the
// kernel reports the whole file as one data range.
func (f *file) NextData(off int64) (start, end int64, err error) {
	fd := int(f.f.Fd())
	start, err = unix.Seek(fd, off, unix.SEEK_DATA)
	if err != nil {
		if err == unix.ENXIO {
			// No data at or after off.
			return 0, 0, io.EOF
		}
		return 0, 0, err
	}
	// All data is followed by a hole, implicit or real, so SEEK_HOLE
	// cannot fail with ENXIO here.
	end, err = unix.Seek(fd, start, unix.SEEK_HOLE)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func (f *file) Lock(lock bool) error {
	how := unix.LOCK_EX
	if !lock {
		how = unix.LOCK_UN
	}
	return unix.Flock(int(f.f.Fd()), how)
}
