package fusekit

import (
	"io"
	"os"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"tractor.dev/restorefs"
)

type mount struct {
	path string
	*fuse.Server
}

func (m *mount) Close() error {
	return m.Server.Unmount()
}

// Mount exposes fsys at path and returns a closer that unmounts it.
func Mount(fsys *restorefs.FS, path string) (io.Closer, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}

	opts := &fs.Options{
		UID: uint32(os.Getuid()),
		GID: uint32(os.Getgid()),
	}

	server, err := fs.Mount(path, &root{fsys: fsys}, opts)
	if err != nil {
		return nil, err
	}
	return &mount{Server: server, path: path}, nil
}
