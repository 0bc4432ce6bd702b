// Package memfs implements an in-memory vfs for tests. Unlike a plain byte
// buffer it tracks which ranges of each file hold data, so sparse scans
// (NextData) reproduce the holes left by offset writes and extending
// truncates the same way a POSIX file system would.
package memfs

import (
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"tractor.dev/restorefs/vfs"
)

type FS struct {
	mu    sync.Mutex
	files map[string]*memFile
	dirs  map[string]bool
}

func New() *FS {
	return &FS{
		files: make(map[string]*memFile),
		dirs:  map[string]bool{"/": true},
	}
}

// MkdirAll registers dir and all of its parents.
func (fsys *FS) MkdirAll(dir string) {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	for d := path.Clean(dir); ; d = path.Dir(d) {
		fsys.dirs[d] = true
		if d == "/" || d == "." {
			break
		}
	}
}

func (fsys *FS) OpenFile(name string, ftype vfs.FileType, flag vfs.OpenFlag) (vfs.File, error) {
	if ftype == vfs.TypeDirectory {
		return nil, &fs.PathError{Op: "open", Path: name, Err: vfs.ErrNotSupported}
	}
	name = path.Clean(name)

	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	f, ok := fsys.files[name]
	if !ok {
		if flag&vfs.OpenCreate == 0 {
			return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
		}
		if !fsys.dirs[path.Dir(name)] {
			return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
		}
		f = &memFile{}
		fsys.files[name] = f
	} else if flag&vfs.OpenCreate != 0 && flag&vfs.OpenExclusive != 0 {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrExist}
	}
	return &handle{f: f, readonly: flag&vfs.OpenReadOnly != 0, name: name}, nil
}

func (fsys *FS) ReadDir(dir, prefix string) ([]string, error) {
	dir = path.Clean(dir)
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	if !fsys.dirs[dir] {
		return nil, &fs.PathError{Op: "readdir", Path: dir, Err: fs.ErrNotExist}
	}
	var names []string
	for name := range fsys.files {
		if path.Dir(name) != dir {
			continue
		}
		base := path.Base(name)
		if prefix == "" || strings.HasPrefix(base, prefix) {
			names = append(names, base)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (fsys *FS) Exists(name string) (bool, error) {
	name = path.Clean(name)
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	if _, ok := fsys.files[name]; ok {
		return true, nil
	}
	return fsys.dirs[name], nil
}

func (fsys *FS) Remove(name string) error {
	name = path.Clean(name)
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	if _, ok := fsys.files[name]; !ok {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrNotExist}
	}
	delete(fsys.files, name)
	return nil
}

func (fsys *FS) Rename(oldname, newname string) error {
	oldname, newname = path.Clean(oldname), path.Clean(newname)
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	f, ok := fsys.files[oldname]
	if !ok {
		return &fs.PathError{Op: "rename", Path: oldname, Err: fs.ErrNotExist}
	}
	fsys.files[newname] = f
	delete(fsys.files, oldname)
	return nil
}

func (fsys *FS) Size(name string) (int64, error) {
	name = path.Clean(name)
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	f, ok := fsys.files[name]
	if !ok {
		return 0, &fs.PathError{Op: "size", Path: name, Err: fs.ErrNotExist}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size, nil
}

// span is a half-open data range [start, end).
type span struct {
	start, end int64
}

type memFile struct {
	mu    sync.Mutex
	data  []byte
	size  int64
	spans []span
	syncs int
}

// markData records [start, end) as containing data, merging adjacent and
// overlapping spans to keep the slice sorted and disjoint.
func (f *memFile) markData(start, end int64) {
	if end <= start {
		return
	}
	spans := append(f.spans, span{start, end})
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	merged := spans[:1]
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.start <= last.end {
			if s.end > last.end {
				last.end = s.end
			}
		} else {
			merged = append(merged, s)
		}
	}
	f.spans = append([]span(nil), merged...)
}

// clipData drops data bookkeeping at and beyond size.
func (f *memFile) clipData(size int64) {
	var out []span
	for _, s := range f.spans {
		if s.start >= size {
			continue
		}
		if s.end > size {
			s.end = size
		}
		out = append(out, s)
	}
	f.spans = out
}

type handle struct {
	f        *memFile
	name     string
	readonly bool
	closed   bool
}

func (h *handle) Close() error {
	h.closed = true
	return nil
}

func (h *handle) ReadAt(p []byte, off int64) (int, error) {
	h.f.mu.Lock()
	defer h.f.mu.Unlock()
	if off >= h.f.size {
		return 0, io.EOF
	}
	n := len(p)
	if off+int64(n) > h.f.size {
		n = int(h.f.size - off)
	}
	for i := 0; i < n; i++ {
		pos := off + int64(i)
		if pos < int64(len(h.f.data)) {
			p[i] = h.f.data[pos]
		} else {
			p[i] = 0
		}
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (h *handle) WriteAt(p []byte, off int64) (int, error) {
	if h.readonly {
		return 0, &fs.PathError{Op: "write", Path: h.name, Err: fs.ErrPermission}
	}
	h.f.mu.Lock()
	defer h.f.mu.Unlock()
	end := off + int64(len(p))
	if end > int64(len(h.f.data)) {
		grown := make([]byte, end)
		copy(grown, h.f.data)
		h.f.data = grown
	}
	copy(h.f.data[off:end], p)
	if end > h.f.size {
		h.f.size = end
	}
	h.f.markData(off, end)
	return len(p), nil
}

func (h *handle) Size() (int64, error) {
	h.f.mu.Lock()
	defer h.f.mu.Unlock()
	return h.f.size, nil
}

func (h *handle) Sync() error {
	h.f.mu.Lock()
	defer h.f.mu.Unlock()
	h.f.syncs++
	return nil
}

// Syncs reports how many times the file has been synced, for tests that
// check durability ordering.
func (h *handle) Syncs() int {
	h.f.mu.Lock()
	defer h.f.mu.Unlock()
	return h.f.syncs
}

func (h *handle) Truncate(size int64) error {
	if h.readonly {
		return &fs.PathError{Op: "truncate", Path: h.name, Err: fs.ErrPermission}
	}
	h.f.mu.Lock()
	defer h.f.mu.Unlock()
	if size < int64(len(h.f.data)) {
		h.f.data = h.f.data[:size]
	}
	if size < h.f.size {
		h.f.clipData(size)
	}
	// Extending leaves [old size, size) as a hole: no data span is added.
	h.f.size = size
	return nil
}

func (h *handle) Lock(lock bool) error { return nil }

func (h *handle) NextData(off int64) (start, end int64, err error) {
	h.f.mu.Lock()
	defer h.f.mu.Unlock()
	if off >= h.f.size {
		return 0, 0, io.EOF
	}
	for _, s := range h.f.spans {
		if s.end <= off {
			continue
		}
		start = s.start
		if off > start {
			start = off
		}
		return start, s.end, nil
	}
	return 0, 0, io.EOF
}
