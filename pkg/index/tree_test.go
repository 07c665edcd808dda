package index

import (
	"testing"

	"github.com/bobboyms/percolator/pkg/kv"
)

type intKey int

func (k intKey) Compare(other kv.Comparable) int {
	o := other.(intKey)
	switch {
	case k < o:
		return -1
	case k > o:
		return 1
	default:
		return 0
	}
}

func TestSetGetDelete(t *testing.T) {
	tr := New[string](3)
	tr.Set(intKey(1), "one")
	tr.Set(intKey(2), "two")
	tr.Set(intKey(3), "three")

	if v, ok := tr.Get(intKey(2)); !ok || v != "two" {
		t.Fatalf("Get(2) = %q, %v, want two, true", v, ok)
	}

	if !tr.Delete(intKey(2)) {
		t.Fatalf("Delete(2) should report true")
	}
	if _, ok := tr.Get(intKey(2)); ok {
		t.Fatalf("Get(2) after delete should be absent")
	}
}

func TestSetOverwritesExistingKey(t *testing.T) {
	tr := New[string](3)
	tr.Set(intKey(1), "a")
	tr.Set(intKey(1), "b")
	if v, ok := tr.Get(intKey(1)); !ok || v != "b" {
		t.Fatalf("Get(1) = %q, %v, want b, true", v, ok)
	}
}

func TestCursorWalksInOrder(t *testing.T) {
	tr := New[int](3)
	for i := 10; i >= 1; i-- {
		tr.Set(intKey(i), i*100)
	}

	cur := tr.Seek(nil)
	defer cur.Close()

	want := 1
	for cur.Valid() {
		k := cur.Key().(intKey)
		if int(k) != want {
			t.Fatalf("cursor key = %d, want %d", k, want)
		}
		if cur.Value() != want*100 {
			t.Fatalf("cursor value = %d, want %d", cur.Value(), want*100)
		}
		want++
		cur.Next()
	}
	if want != 11 {
		t.Fatalf("cursor visited %d entries, want 10", want-1)
	}
}

func TestCursorSeekSkipsEarlierKeys(t *testing.T) {
	tr := New[int](3)
	for i := 1; i <= 20; i++ {
		tr.Set(intKey(i), i)
	}

	cur := tr.Seek(intKey(15))
	defer cur.Close()

	if !cur.Valid() || cur.Key().(intKey) != 15 {
		t.Fatalf("Seek(15) landed on %v, want 15", cur.Key())
	}
}

func TestManyInsertionsSplitNodesAndStayQueryable(t *testing.T) {
	tr := New[int](3)
	const n = 500
	for i := 0; i < n; i++ {
		tr.Set(intKey(i), i)
	}
	for i := 0; i < n; i++ {
		v, ok := tr.Get(intKey(i))
		if !ok || v != i {
			t.Fatalf("Get(%d) = %d, %v, want %d, true", i, v, ok, i)
		}
	}
}
