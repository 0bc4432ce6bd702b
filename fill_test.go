package restorefs

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"tractor.dev/restorefs/vfs"
)

func TestFillHoles(t *testing.T) {
	fsys, mfs := testFS(t, nil)
	// Deliberately not a multiple of the fill chunk.
	writeFile(t, mfs, "/src/a.dat", fill(0x41, 10000))

	f := openData(t, fsys, "/dest/a.dat", 0)
	defer f.Close()

	// Leave a split list behind before filling.
	if _, err := f.WriteAt(fill(0xEE, 4096), 4096); err != nil {
		t.Fatal(err)
	}

	if err := f.FillHoles(context.Background()); err != nil {
		t.Fatal(err)
	}
	assertHoles(t, f)

	if got := readRange(t, f, 0, 4096); !bytes.Equal(got, fill(0x41, 4096)) {
		t.Error("filled range mismatch")
	}
	if got := readRange(t, f, 4096, 4096); !bytes.Equal(got, fill(0xEE, 4096)) {
		t.Error("fill must not clobber foreground writes")
	}
	if got := readRange(t, f, 8192, 10000-8192); !bytes.Equal(got, fill(0x41, 10000-8192)) {
		t.Error("tail range mismatch")
	}
}

func TestFillHolesCanceled(t *testing.T) {
	fsys, mfs := testFS(t, nil)
	writeFile(t, mfs, "/src/a.dat", fill(0x41, 65536))

	f := openData(t, fsys, "/dest/a.dat", 0)
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := f.FillHoles(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(f.Holes()) == 0 {
		t.Error("canceled fill must leave holes behind")
	}
}

func TestFillHolesOnClose(t *testing.T) {
	fsys, mfs := testFS(t, &Options{FillHolesOnClose: true})
	writeFile(t, mfs, "/src/a.dat", fill(0x41, 8192))

	f := openData(t, fsys, "/dest/a.dat", 0)
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	// The destination must be fully populated without a single
	// foreground read.
	df, err := mfs.OpenFile("/dest/a.dat", vfs.TypeData, vfs.OpenReadOnly)
	if err != nil {
		t.Fatal(err)
	}
	defer df.Close()
	if got := readRange(t, df, 0, 8192); !bytes.Equal(got, fill(0x41, 8192)) {
		t.Error("destination incomplete after fill-on-close")
	}
}

func TestMigrate(t *testing.T) {
	fsys, mfs := testFS(t, &Options{Threads: 3})
	writeFile(t, mfs, "/src/a.dat", fill(0x41, 10000))
	writeFile(t, mfs, "/src/b.dat", fill(0x42, 4096))
	writeFile(t, mfs, "/dest/c.dat", fill(0x43, 100))
	writeFile(t, mfs, "/src/dead.dat", fill(0x44, 100))
	if err := fsys.Remove("/dest/dead.dat"); err != nil {
		t.Fatal(err)
	}

	if err := fsys.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}

	for name, want := range map[string][]byte{
		"/dest/a.dat": fill(0x41, 10000),
		"/dest/b.dat": fill(0x42, 4096),
		"/dest/c.dat": fill(0x43, 100),
	} {
		df, err := mfs.OpenFile(name, vfs.TypeData, vfs.OpenReadOnly)
		if err != nil {
			t.Fatal(err)
		}
		got := readRange(t, df, 0, len(want))
		df.Close()
		if !bytes.Equal(got, want) {
			t.Errorf("%s not fully migrated", name)
		}
	}

	// The tombstoned file stays untouched.
	if ok, _ := mfs.Exists("/dest/dead.dat"); ok {
		t.Error("migrate must not resurrect tombstoned files")
	}

	// After migration every file opens with an empty hole list.
	for _, name := range []string{"/dest/a.dat", "/dest/b.dat", "/dest/c.dat"} {
		f := openData(t, fsys, name, 0)
		assertHoles(t, f)
		f.Close()
	}
}

func TestMigrateCanceled(t *testing.T) {
	fsys, mfs := testFS(t, nil)
	writeFile(t, mfs, "/src/a.dat", fill(0x41, 65536))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := fsys.Migrate(ctx); err == nil {
		t.Error("expected error from canceled migrate")
	}
}

// Foreground writes racing the background fill must never corrupt the hole
// list or lose data.
func TestFillConcurrentWithWrites(t *testing.T) {
	fsys, mfs := testFS(t, nil)
	writeFile(t, mfs, "/src/a.dat", fill(0x41, 1<<20))

	f := openData(t, fsys, "/dest/a.dat", 0)
	defer f.Close()

	done := make(chan error, 1)
	go func() {
		done <- f.FillHoles(context.Background())
	}()

	// Overwrite aligned blocks while the fill runs.
	for off := int64(0); off < 1<<20; off += 64 * 1024 {
		if _, err := f.WriteAt(fill(0x99, 4096), off); err != nil {
			t.Error(err)
			break
		}
	}

	if err := <-done; err != nil {
		t.Fatal(err)
	}
	assertHoles(t, f)

	// Foreground writes win over background promotion.
	for off := int64(0); off < 1<<20; off += 64 * 1024 {
		if got := readRange(t, f, off, 4096); !bytes.Equal(got, fill(0x99, 4096)) {
			t.Errorf("write at %d lost to background fill", off)
			break
		}
	}
}

func TestMigrateIgnoresEmptySource(t *testing.T) {
	fsys, _ := testFS(t, nil)
	if err := fsys.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
}
