//go:build !unix

package localfs

// Lock is a no-op on platforms without flock. The restore layer only locks
// the destination file, which it owns exclusively anyway.
func (f *file) Lock(lock bool) error { return nil }
