package restorefs

import (
	"math/rand"
	"testing"
)

// buildList creates an extent list from (offset, length) pairs.
func buildList(t *testing.T, ranges ...[2]int64) *extentList {
	t.Helper()
	l := &extentList{}
	var prev *hole
	for _, r := range ranges {
		h := &hole{off: r[0], len: r[1]}
		if prev == nil {
			l.head = h
		} else {
			prev.next = h
		}
		prev = h
	}
	checkListInvariants(t, l)
	return l
}

// checkListInvariants verifies ordering, separation, and positive lengths.
func checkListInvariants(t *testing.T, l *extentList) {
	t.Helper()
	var prev *hole
	for h := l.head; h != nil; h = h.next {
		if h.len <= 0 {
			t.Fatalf("hole %d-%d has non-positive length", h.off, h.end())
		}
		if prev != nil && prev.end() >= h.off {
			t.Fatalf("holes %d-%d and %d-%d overlap or touch", prev.off, prev.end(), h.off, h.end())
		}
		prev = h
	}
}

func assertExtents(t *testing.T, l *extentList, want ...[2]int64) {
	t.Helper()
	got := l.extents()
	if len(got) != len(want) {
		t.Fatalf("extents = %v, want %v", got, want)
	}
	for i, w := range want {
		if got[i].Offset != w[0] || got[i].Length != w[1] {
			t.Fatalf("extents = %v, want %v", got, want)
		}
	}
}

func TestRemoveRangeFullCover(t *testing.T) {
	l := buildList(t, [2]int64{0, 4096}, [2]int64{8192, 4096})
	l.removeRange(0, 4096)
	checkListInvariants(t, l)
	assertExtents(t, l, [2]int64{8192, 4096})

	l.removeRange(4096, 12288)
	checkListInvariants(t, l)
	if !l.empty() {
		t.Fatalf("extents = %v, want empty", l.extents())
	}
}

func TestRemoveRangeSplit(t *testing.T) {
	l := buildList(t, [2]int64{0, 16384})
	l.removeRange(4096, 4096)
	checkListInvariants(t, l)
	assertExtents(t, l, [2]int64{0, 4096}, [2]int64{8192, 8192})
}

func TestRemoveRangeLeftOverlap(t *testing.T) {
	l := buildList(t, [2]int64{4096, 8192})
	l.removeRange(0, 8192)
	checkListInvariants(t, l)
	assertExtents(t, l, [2]int64{8192, 4096})
}

func TestRemoveRangeRightOverlap(t *testing.T) {
	l := buildList(t, [2]int64{4096, 8192})
	l.removeRange(8192, 8192)
	checkListInvariants(t, l)
	assertExtents(t, l, [2]int64{4096, 4096})
}

func TestRemoveRangeDisjoint(t *testing.T) {
	l := buildList(t, [2]int64{4096, 4096})
	l.removeRange(0, 4096)
	l.removeRange(8192, 4096)
	checkListInvariants(t, l)
	assertExtents(t, l, [2]int64{4096, 4096})
}

func TestRemoveRangeSpansMultipleHoles(t *testing.T) {
	l := buildList(t, [2]int64{0, 1000}, [2]int64{2000, 1000}, [2]int64{4000, 1000})
	l.removeRange(500, 4000)
	checkListInvariants(t, l)
	assertExtents(t, l, [2]int64{0, 500}, [2]int64{4500, 500})
}

// The completeness property: subtracting a covering set of ranges leaves
// nothing.
func TestRemoveRangeCompleteness(t *testing.T) {
	l := buildList(t, [2]int64{0, 1 << 20})
	for off := int64(0); off < 1<<20; off += 4096 {
		l.removeRange(off, 4096)
	}
	if !l.empty() {
		t.Fatalf("extents = %v, want empty", l.extents())
	}
}

// Random subtractions against a bitmap model. The invariants must hold
// after every operation and the surviving holes must match the model.
func TestRemoveRangeRandomized(t *testing.T) {
	const size = 1 << 14
	rng := rand.New(rand.NewSource(1))

	for trial := 0; trial < 100; trial++ {
		l := buildList(t, [2]int64{0, size})
		model := make([]bool, size) // true = migrated

		for op := 0; op < 50; op++ {
			off := rng.Int63n(size)
			length := rng.Int63n(size-off) + 1
			l.removeRange(off, length)
			checkListInvariants(t, l)
			for i := off; i < off+length; i++ {
				model[i] = true
			}
		}

		// Rebuild the expected hole set from the model.
		var want [][2]int64
		for i := 0; i < size; {
			if model[i] {
				i++
				continue
			}
			j := i
			for j < size && !model[j] {
				j++
			}
			want = append(want, [2]int64{int64(i), int64(j - i)})
			i = j
		}
		assertExtents(t, l, want...)
	}
}

func TestCanService(t *testing.T) {
	l := buildList(t, [2]int64{4096, 4096}, [2]int64{12288, 4096})

	for _, tt := range []struct {
		off, len int64
		want     bool
	}{
		{0, 4096, true},
		{4096, 4096, false},
		{8192, 4096, true},
		{12288, 4096, false},
		{16384, 4096, true},
		{4096, 1, false},
		{8191, 1, false},
	} {
		if got := l.canService(tt.off, tt.len); got != tt.want {
			t.Errorf("canService(%d, %d) = %v, want %v", tt.off, tt.len, got, tt.want)
		}
	}

	empty := &extentList{}
	if !empty.canService(0, 1<<30) {
		t.Error("empty list must service everything")
	}
}

func TestCanServicePartialOverlapPanics(t *testing.T) {
	l := buildList(t, [2]int64{4096, 4096})
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on partial hole overlap")
		}
	}()
	l.canService(2048, 4096)
}
