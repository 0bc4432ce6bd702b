package restorefs

import (
	"context"

	"golang.org/x/sync/errgroup"

	"tractor.dev/restorefs/vfs"
)

// Holes can be as large as an entire file, so the background fill reads
// them in small chunks.
const fillChunk = 4 * 1024

// FillHoles migrates every remaining hole of the file into the destination.
// Each iteration re-reads the head of the hole list because the promotion
// underneath shrinks it, and foreground writes may be removing holes
// concurrently. The context is polled between chunks so a dying connection
// stops the copy promptly.
func (f *File) FillHoles(ctx context.Context) error {
	buf := make([]byte, fillChunk)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		f.mu.Lock()
		h := f.holes.head
		if h == nil {
			f.mu.Unlock()
			return nil
		}
		off := h.off
		n := h.len
		if n > fillChunk {
			n = fillChunk
		}
		f.mu.Unlock()

		f.fsys.log.Debug("filling hole", "name", f.name, "off", off, "len", n)

		// Reading through the handle promotes the bytes and shrinks
		// the head hole beneath us.
		if _, err := f.ReadAt(buf[:n], off); err != nil {
			return err
		}
	}
}

// Migrate opens every file visible in the logical namespace and fills its
// holes, using at most the configured number of workers. When it returns
// without error the destination no longer depends on the source.
func (fsys *FS) Migrate(ctx context.Context) error {
	names, err := fsys.ReadDir(fsys.dest.home, "")
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fsys.threads)
	for _, name := range names {
		name := name
		g.Go(func() error {
			f, err := fsys.OpenFile(join(fsys.dest.home, name), vfs.TypeData, 0)
			if err != nil {
				return err
			}
			lf := f.(*File)
			if err := lf.FillHoles(ctx); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		})
	}
	return g.Wait()
}
