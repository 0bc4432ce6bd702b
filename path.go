package restorefs

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Logical names handed to the file system always begin with the destination
// home, whether relative or absolute: the storage engine above has no
// concept of layers and addresses everything as if it lived in the
// destination. backingPath maps a logical name to the path of the backing
// file inside a layer by swapping the destination home prefix for the
// layer's home.
func (fsys *FS) backingPath(l *layer, name string) string {
	if !strings.HasPrefix(name, fsys.dest.home) {
		panic(fmt.Sprintf("restorefs: name %q does not start with destination home %q", name, fsys.dest.home))
	}
	if l.kind == LayerDestination {
		return name
	}
	return l.home + name[len(fsys.dest.home):]
}

// join builds the logical name of a directory entry from its base name.
func join(dir, base string) string {
	return dir + string(filepath.Separator) + base
}
