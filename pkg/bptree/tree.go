package bptree

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// Tree is a concurrent FAST & FAIR B+-tree keyed by int64. The zero value is
// not usable; construct with NewTree or NewDefaultTree.
type Tree struct {
	cfg      Config
	fence    *fence
	capacity int

	root   atomic.Pointer[node]
	height atomic.Int32
	rootMu sync.Mutex // serializes root promotion; readers never take it

	inCompact atomic.Bool

	splitMu      sync.Mutex // guards pendingSplit
	pendingSplit []*node

	strings *stringMap
}

// NewTree builds an empty tree with the given tunables.
func NewTree(cfg Config) *Tree {
	t := &Tree{
		cfg:      cfg,
		fence:    newFence(cfg),
		capacity: cfg.capacity(),
		strings:  newStringMap(),
	}
	root := newNode(t.capacity, 0)
	t.root.Store(root)
	t.height.Store(1)
	return t
}

// NewDefaultTree builds an empty tree using DefaultConfig.
func NewDefaultTree() *Tree {
	return NewTree(DefaultConfig())
}

// Height reports the current number of levels, root inclusive.
func (t *Tree) Height() int { return int(t.height.Load()) }

func (t *Tree) isRoot(n *node) bool { return t.root.Load() == n }

// setNewRoot atomically swaps in a freshly promoted root and flushes the
// root pointer itself, mirroring Btree::setNewRoot's
// clflush(&root, sizeof(char*)).
func (t *Tree) setNewRoot(n *node) {
	t.rootMu.Lock()
	t.root.Store(n)
	t.fence.flush(unsafe.Pointer(&t.root), 8)
	t.height.Add(1)
	t.rootMu.Unlock()
}

func (t *Tree) descendToLeaf(key int64) *node {
	n := t.root.Load()
	for !n.isLeaf() {
		n = n.linearSearchInternal(key)
	}
	return n
}

// Search returns the value stored for key, or nil if absent.
func (t *Tree) Search(key int64) unsafe.Pointer {
	n := t.descendToLeaf(key)
	for {
		value, sib, found := n.linearSearchLeaf(key)
		if found {
			return value
		}
		if sib == nil {
			return nil
		}
		n = sib
	}
}

// Insert stores value under key, splitting or appending to the deferred
// extend chain as needed. A concurrent delete marking a node is the only
// source of a retry (spec.md §9's deleted-node-resurrection note); since
// this core never enables rebalancing, that path is exercised defensively
// but should not trigger in practice.
func (t *Tree) Insert(key int64, value unsafe.Pointer) {
	for {
		leaf := t.descendToLeaf(key)
		if res := leaf.store(t, key, value, nil); res.outcome == placedOutcome {
			return
		}
	}
}

// InsertString hashes s into an int64 key via the sidecar string map and
// inserts value under that key; GetMapping recovers the original bytes.
func (t *Tree) InsertString(s []byte, value unsafe.Pointer) int64 {
	key := hash64(s)
	t.strings.put(key, s)
	t.Insert(key, value)
	return key
}

// GetMapping recovers the original bytes passed to InsertString for key.
func (t *Tree) GetMapping(key int64) (string, bool) {
	return t.strings.get(key)
}

// internalInsert propagates a separator key and a newly split child up to
// the internal node at level (child.level+1), retrying the descent if the
// target node was concurrently deleted. Mirrors
// Btree::btree_insert_internal.
func (t *Tree) internalInsert(key int64, child *node, level uint32) {
	for {
		root := t.root.Load()
		if level > uint32(root.level) {
			// A concurrent promotion already raised the root past this
			// separator's level; nothing left to insert.
			return
		}
		n := root
		for n.level > level {
			n = n.linearSearchInternal(key)
		}
		if res := n.store(t, key, unsafe.Pointer(child), nil); res.outcome == placedOutcome {
			return
		}
	}
}

// Delete removes key if present and reports whether it was found. This
// core never rebalances after a delete (spec.md Non-goals): the leaf is
// simply shrunk in place, so tree shape never shrinks back down.
func (t *Tree) Delete(key int64) bool {
	leaf := t.descendToLeaf(key)
	for {
		_, sib, found := leaf.linearSearchLeaf(key)
		if found || sib == nil {
			break
		}
		leaf = sib
	}
	leaf.mu.Lock()
	ok := leaf.removeKey(key, t.fence)
	leaf.mu.Unlock()
	return ok
}

// Range appends every value with min < key < max, in ascending key order,
// to buf and returns the extended slice. Both bounds are strict.
func (t *Tree) Range(min, max int64, buf []unsafe.Pointer) []unsafe.Pointer {
	n := t.root.Load()
	for !n.isLeaf() {
		n = n.linearSearchInternal(min)
	}
	for n != nil {
		var stop bool
		buf, stop = n.collectRange(min, max, buf)
		if stop {
			break
		}
		n = n.sibling.Load()
	}
	return buf
}

// SetInCompact toggles deferred-split mode. Callers must hold off concurrent
// readers/writers other than the single bulk-load writer while this is set,
// and must call ResolveDeferredSplits before relying on point lookups again
// (spec.md §4.3).
func (t *Tree) SetInCompact(b bool) { t.inCompact.Store(b) }

// InCompact reports whether deferred-split mode is active.
func (t *Tree) InCompact() bool { return t.inCompact.Load() }

func (t *Tree) enqueuePendingSplit(n *node) {
	t.splitMu.Lock()
	t.pendingSplit = append(t.pendingSplit, n)
	t.splitMu.Unlock()
}

// NewIterator returns a cursor positioned at the first key.
func (t *Tree) NewIterator() *Iterator {
	it := &Iterator{tree: t}
	it.SeekToFirst()
	return it
}
