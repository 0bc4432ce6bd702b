package restorefs

// LayerKind identifies which layer of the file system owns a name.
type LayerKind int

const (
	LayerNone LayerKind = iota
	LayerDestination
	LayerSource
)

func (k LayerKind) String() string {
	switch k {
	case LayerDestination:
		return "destination"
	case LayerSource:
		return "source"
	}
	return "none"
}

// layer describes one side of the file system. Immutable after mount.
type layer struct {
	home string
	kind LayerKind
}

// hasFile reports whether the backing file for name exists in the layer.
func (fsys *FS) hasFile(l *layer, name string) (bool, error) {
	return fsys.os.Exists(fsys.backingPath(l, name))
}

// findLayer locates name, probing the destination before the source.
// Tombstones are deliberately not consulted here; callers that care about
// source visibility (directory listing, open, Exists) check them where the decision
// matters.
func (fsys *FS) findLayer(name string) (LayerKind, bool, error) {
	ok, err := fsys.hasFile(&fsys.dest, name)
	if err != nil {
		return LayerNone, false, err
	}
	if ok {
		return LayerDestination, true, nil
	}

	ok, err = fsys.hasFile(&fsys.source, name)
	if err != nil {
		return LayerNone, false, err
	}
	if ok {
		return LayerSource, true, nil
	}
	return LayerNone, false, nil
}
