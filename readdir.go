package restorefs

import (
	"errors"
	"io/fs"
	"strings"
)

// ReadDir lists a logical directory: destination entries minus tombstone
// markers, plus source entries that are neither already present in the
// destination nor tombstoned. A directory missing on either side
// contributes nothing.
func (fsys *FS) ReadDir(dir, prefix string) ([]string, error) {
	return fsys.readDir(dir, prefix, false)
}

// ReadDirSingle returns at most the first eligible entry of the merged
// listing. The result is deterministic only insofar as the backing file
// system lists deterministically.
func (fsys *FS) ReadDirSingle(dir, prefix string) ([]string, error) {
	return fsys.readDir(dir, prefix, true)
}

func (fsys *FS) readDir(dir, prefix string, single bool) ([]string, error) {
	fsys.log.Debug("directory list", "dir", dir, "prefix", prefix, "single", single)

	var entries []string

	destNames, err := fsys.os.ReadDir(fsys.backingPath(&fsys.dest, dir), prefix)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	for _, name := range destNames {
		if strings.HasSuffix(name, tombstoneSuffix) {
			continue
		}
		entries = append(entries, name)
		if single {
			return entries, nil
		}
	}

	srcNames, err := fsys.os.ReadDir(fsys.backingPath(&fsys.source, dir), prefix)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	for _, name := range srcNames {
		// The entry is visible only if the destination neither holds
		// its own copy nor a tombstone for it.
		destPath := fsys.backingPath(&fsys.dest, join(dir, name))
		exists, err := fsys.os.Exists(destPath)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}
		dead, err := fsys.hasTombstone(destPath)
		if err != nil {
			return nil, err
		}
		if dead {
			continue
		}
		entries = append(entries, name)
		if single {
			return entries, nil
		}
	}

	return entries, nil
}
