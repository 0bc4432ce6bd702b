// Package fusekit exposes a live restore namespace as a FUSE mount, so
// ordinary tools can browse and modify the merged tree while migration runs
// underneath. The storage engine's home directories are flat, and the mount
// mirrors that: a single root directory of regular files.
package fusekit

import (
	"context"
	"io"
	"path/filepath"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"tractor.dev/restorefs"
	"tractor.dev/restorefs/vfs"
)

type root struct {
	fs.Inode
	fsys *restorefs.FS
}

// logical builds the logical name the restore layer expects for a root
// entry.
func (r *root) logical(name string) string {
	return filepath.Join(r.fsys.Home(), name)
}

var _ = (fs.NodeGetattrer)((*root)(nil))

func (r *root) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = fuse.S_IFDIR | 0o755
	return 0
}

var _ = (fs.NodeReaddirer)((*root)(nil))

func (r *root) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	names, err := r.fsys.ReadDir(r.fsys.Home(), "")
	if err != nil {
		return nil, sysErrno(err)
	}
	entries := make([]fuse.DirEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, fuse.DirEntry{Name: name, Mode: fuse.S_IFREG})
	}
	return fs.NewListDirStream(entries), 0
}

var _ = (fs.NodeLookuper)((*root)(nil))

func (r *root) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	logical := r.logical(name)
	ok, err := r.fsys.Exists(logical)
	if err != nil {
		return nil, sysErrno(err)
	}
	if !ok {
		return nil, syscall.ENOENT
	}

	child := &node{fsys: r.fsys, name: logical}
	out.Mode = fuse.S_IFREG | 0o644
	if size, err := r.fsys.Size(logical); err == nil {
		out.Size = uint64(size)
	}
	return r.NewInode(ctx, child, fs.StableAttr{Mode: fuse.S_IFREG}), 0
}

var _ = (fs.NodeCreater)((*root)(nil))

func (r *root) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	logical := r.logical(name)
	f, err := r.fsys.OpenFile(logical, vfs.TypeData, vfs.OpenCreate)
	if err != nil {
		return nil, nil, 0, sysErrno(err)
	}

	child := &node{fsys: r.fsys, name: logical}
	out.Mode = fuse.S_IFREG | 0o644
	inode := r.NewInode(ctx, child, fs.StableAttr{Mode: fuse.S_IFREG})
	return inode, &handle{file: f}, fuse.FOPEN_DIRECT_IO, 0
}

var _ = (fs.NodeUnlinker)((*root)(nil))

func (r *root) Unlink(ctx context.Context, name string) syscall.Errno {
	return sysErrno(r.fsys.Remove(r.logical(name)))
}

var _ = (fs.NodeRenamer)((*root)(nil))

func (r *root) Rename(ctx context.Context, name string, newParent fs.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	// The namespace is flat, so the new parent is always this root.
	return sysErrno(r.fsys.Rename(r.logical(name), r.logical(newName)))
}

type node struct {
	fs.Inode
	fsys *restorefs.FS
	name string
}

var _ = (fs.NodeGetattrer)((*node)(nil))

func (n *node) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	size, err := n.fsys.Size(n.name)
	if err != nil {
		return sysErrno(err)
	}
	out.Mode = fuse.S_IFREG | 0o644
	out.Size = uint64(size)
	return 0
}

var _ = (fs.NodeOpener)((*node)(nil))

func (n *node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	var flag vfs.OpenFlag
	if flags&uint32(syscall.O_ACCMODE) == syscall.O_RDONLY {
		flag |= vfs.OpenReadOnly
	}
	f, err := n.fsys.OpenFile(n.name, vfs.TypeData, flag)
	if err != nil {
		return nil, 0, sysErrno(err)
	}
	return &handle{file: f}, fuse.FOPEN_DIRECT_IO, 0
}

var _ = (fs.NodeSetattrer)((*node)(nil))

func (n *node) Setattr(ctx context.Context, fh fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if in.Valid&fuse.FATTR_SIZE != 0 {
		if h, ok := fh.(*handle); ok && h.file != nil {
			if err := h.file.Truncate(int64(in.Size)); err != nil {
				return sysErrno(err)
			}
		} else {
			f, err := n.fsys.OpenFile(n.name, vfs.TypeData, 0)
			if err != nil {
				return sysErrno(err)
			}
			terr := f.Truncate(int64(in.Size))
			if cerr := f.Close(); terr == nil {
				terr = cerr
			}
			if terr != nil {
				return sysErrno(terr)
			}
		}
	}
	return n.Getattr(ctx, fh, out)
}

type handle struct {
	file vfs.File
}

var _ = (fs.FileReader)((*handle)(nil))

func (h *handle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	n, err := h.file.ReadAt(dest, off)
	if err != nil && err != io.EOF {
		return nil, sysErrno(err)
	}
	return fuse.ReadResultData(dest[:n]), 0
}

var _ = (fs.FileWriter)((*handle)(nil))

func (h *handle) Write(ctx context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	n, err := h.file.WriteAt(data, off)
	if err != nil {
		return 0, sysErrno(err)
	}
	return uint32(n), 0
}

var _ = (fs.FileFsyncer)((*handle)(nil))

func (h *handle) Fsync(ctx context.Context, flags uint32) syscall.Errno {
	return sysErrno(h.file.Sync())
}

var _ = (fs.FileReleaser)((*handle)(nil))

func (h *handle) Release(ctx context.Context) syscall.Errno {
	return sysErrno(h.file.Close())
}

var _ = (fs.FileGetattrer)((*handle)(nil))

func (h *handle) Getattr(ctx context.Context, out *fuse.AttrOut) syscall.Errno {
	size, err := h.file.Size()
	if err != nil {
		return sysErrno(err)
	}
	out.Mode = fuse.S_IFREG | 0o644
	out.Size = uint64(size)
	return 0
}
