package fusekit

import (
	"errors"
	"io/fs"
	"os"
	"syscall"

	"tractor.dev/restorefs/vfs"
)

func sysErrno(err error) syscall.Errno {
	if err == nil {
		return syscall.Errno(0)
	}

	if errors.Is(err, vfs.ErrNotSupported) {
		return syscall.EOPNOTSUPP
	}
	if errors.Is(err, fs.ErrExist) {
		return syscall.EEXIST
	}
	if errors.Is(err, fs.ErrNotExist) {
		return syscall.ENOENT
	}
	if errors.Is(err, fs.ErrInvalid) {
		return syscall.EINVAL
	}
	if errors.Is(err, fs.ErrPermission) {
		return syscall.EPERM
	}
	if errors.Is(err, os.ErrClosed) {
		return syscall.EBADF
	}

	switch t := err.(type) {
	case syscall.Errno:
		return t
	case *os.SyscallError:
		if errno, ok := t.Err.(syscall.Errno); ok {
			return errno
		}
		return syscall.EIO
	case *os.PathError:
		return sysErrno(t.Err)
	default:
		return syscall.EIO
	}
}
