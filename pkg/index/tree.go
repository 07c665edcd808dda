// Package index is a generic, concurrent B+ tree ordered index, adapted
// from the host storage engine's pkg/btree. The original tree stored an
// int64 heap-file offset per leaf key; this module generalizes the leaf
// payload to any value type via a Go type parameter, since the column store
// keeps the versioned cell value (kv.Value) directly in the index rather
// than pointing at a separate on-disk heap — §4.2 requires no persistence.
// Latch crabbing (lock the child before releasing the parent) is kept from
// the original: every column family is read and written by many concurrent
// client goroutines even though the Transaction Server additionally holds
// its own coarse-grained critical section around each handler (§5).
package index

import (
	"sort"
	"sync"

	"github.com/bobboyms/percolator/pkg/kv"
)

// Tree is a concurrent, unique-keyed B+ tree mapping kv.Comparable keys to
// values of type V. Leaves are linked left-to-right so range scans (used by
// the column store's floor-within-bound and whole-key scans) need only a
// single descent to the first leaf.
type Tree[V any] struct {
	t    int
	root *node[V]
	mu   sync.RWMutex
}

// New constructs an empty tree with minimum degree t (t>=2).
func New[V any](t int) *Tree[V] {
	return &Tree[V]{
		t:    t,
		root: newNode[V](t, true),
	}
}

// Upsert runs fn against the current value at key (or the zero value, with
// exists=false, if absent) and stores whatever fn returns. fn runs while the
// target leaf is latched, making read-modify-write atomic with respect to
// other Upsert/Get/Delete calls on the same leaf.
func (b *Tree[V]) Upsert(key kv.Comparable, fn func(old V, exists bool) (V, error)) error {
	b.mu.Lock()
	root := b.root
	root.Lock()

	if root.isFull() {
		newRoot := newNode[V](b.t, false)
		newRoot.children = append(newRoot.children, root)
		newRoot.splitChild(0)
		b.root = newRoot
		b.mu.Unlock()

		newRoot.Lock()
		root.Unlock()
		return b.upsertTopDown(newRoot, key, fn)
	}

	b.mu.Unlock()
	return b.upsertTopDown(root, key, fn)
}

func (b *Tree[V]) upsertTopDown(curr *node[V], key kv.Comparable, fn func(old V, exists bool) (V, error)) error {
	defer func() {
		if curr != nil {
			curr.Unlock()
		}
	}()

	for !curr.leaf {
		i := 0
		for i < curr.n && key.Compare(curr.keys[i]) >= 0 {
			i++
		}

		child := curr.children[i]
		child.Lock()

		if child.isFull() {
			curr.splitChild(i)
			if key.Compare(curr.keys[i]) >= 0 {
				child.Unlock()
				child = curr.children[i+1]
				child.Lock()
			}
		}

		curr.Unlock()
		curr = child
	}

	return curr.upsertNonFull(key, fn)
}

// Set unconditionally stores value at key, overwriting any prior value.
func (b *Tree[V]) Set(key kv.Comparable, value V) error {
	return b.Upsert(key, func(V, bool) (V, error) { return value, nil })
}

// Get returns the value at key and whether it was present.
func (b *Tree[V]) Get(key kv.Comparable) (V, bool) {
	var zero V
	if b == nil {
		return zero, false
	}
	b.mu.RLock()
	curr := b.root
	if curr == nil {
		b.mu.RUnlock()
		return zero, false
	}
	curr.RLock()
	b.mu.RUnlock()

	for !curr.leaf {
		i := 0
		for i < curr.n && key.Compare(curr.keys[i]) >= 0 {
			i++
		}
		child := curr.children[i]
		child.RLock()
		curr.RUnlock()
		curr = child
	}

	defer curr.RUnlock()
	for j := 0; j < curr.n; j++ {
		if key.Compare(curr.keys[j]) == 0 {
			return curr.values[j], true
		}
	}
	return zero, false
}

// Delete removes key if present, reporting whether it was present.
func (b *Tree[V]) Delete(key kv.Comparable) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.root.remove(key)
}

// seekLeaf descends to the leaf that would hold key (or the first leaf, if
// key is nil), returning it RLocked at the index of the first entry >= key.
// The caller must RUnlock the returned node.
func (b *Tree[V]) seekLeaf(key kv.Comparable) (*node[V], int) {
	b.mu.RLock()
	curr := b.root
	curr.RLock()
	b.mu.RUnlock()

	for !curr.leaf {
		var i int
		if key == nil {
			i = 0
		} else {
			i = sort.Search(curr.n, func(i int) bool {
				return curr.keys[i].Compare(key) >= 0
			})
		}
		child := curr.children[i]
		child.RLock()
		curr.RUnlock()
		curr = child
	}

	var idx int
	if key == nil {
		idx = 0
	} else {
		idx = sort.Search(curr.n, func(i int) bool {
			return curr.keys[i].Compare(key) >= 0
		})
	}
	return curr, idx
}

// Cursor is a forward-only, read-only iterator positioned at or after a
// lower bound key, walking the leaf linked list one entry at a time.
type Cursor[V any] struct {
	leaf *node[V]
	idx  int
	done bool
}

// Seek returns a Cursor positioned at the first entry >= lower (or at the
// very first entry, if lower is nil).
func (b *Tree[V]) Seek(lower kv.Comparable) *Cursor[V] {
	leaf, idx := b.seekLeaf(lower)
	c := &Cursor[V]{leaf: leaf, idx: idx}
	c.advanceToValid()
	return c
}

func (c *Cursor[V]) advanceToValid() {
	for c.leaf != nil && c.idx >= c.leaf.n {
		next := c.leaf.next
		c.leaf.RUnlock()
		c.leaf = next
		c.idx = 0
		if c.leaf != nil {
			c.leaf.RLock()
		}
	}
	if c.leaf == nil {
		c.done = true
	}
}

// Valid reports whether the cursor is positioned at an entry.
func (c *Cursor[V]) Valid() bool { return !c.done }

// Key returns the entry's key. Only valid while Valid() is true.
func (c *Cursor[V]) Key() kv.Comparable { return c.leaf.keys[c.idx] }

// Value returns the entry's value. Only valid while Valid() is true.
func (c *Cursor[V]) Value() V { return c.leaf.values[c.idx] }

// Next advances the cursor to the following entry.
func (c *Cursor[V]) Next() {
	if c.done {
		return
	}
	c.idx++
	c.advanceToValid()
}

// Close releases the leaf latch the cursor is holding. Safe to call
// multiple times; callers that exhaust the cursor via Valid()==false need
// not call it.
func (c *Cursor[V]) Close() {
	if !c.done && c.leaf != nil {
		c.leaf.RUnlock()
		c.done = true
	}
}
