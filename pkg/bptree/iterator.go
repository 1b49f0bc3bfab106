package bptree

import "unsafe"

// Iterator is a forward-biased cursor over a Tree's leaves in ascending key
// order. It does not hold any node lock: Next/Prev/Key/Value read node slots
// directly, without Search's switch-counter retry, so a cursor can be
// invalidated by a concurrent split — callers that need a stable view should coordinate
// separately (spec.md has no snapshot isolation to offer here).
type Iterator struct {
	tree    *Tree
	curNode *node
	index   int
	valid   bool
	last    bool // true once Next has reached the last key; one more Next invalidates
}

// Valid reports whether Key/Value may be called.
func (it *Iterator) Valid() bool { return it.valid }

// SeekToFirst positions the cursor at the smallest key in the tree.
func (it *Iterator) SeekToFirst() {
	n := it.tree.root.Load()
	for n.leftmost.Load() != nil {
		n = n.leftmost.Load()
	}
	it.curNode = n
	it.index = 0
	it.valid = n.records[0].loadPtr() != nil
	it.last = false
	if it.valid && n.records[1].loadPtr() == nil && n.sibling.Load() == nil {
		it.last = true
	}
}

// SeekToLast positions the cursor at the largest key in the tree.
func (it *Iterator) SeekToLast() {
	n := it.tree.root.Load()
	for n.leftmost.Load() != nil {
		n = n.leftmost.Load()
	}
	for s := n.sibling.Load(); s != nil; s = n.sibling.Load() {
		n = s
	}
	it.curNode = n
	cnt := n.count()
	if cnt == 0 {
		it.valid = false
		it.last = true
		return
	}
	it.index = cnt - 1
	it.valid = true
	it.last = true
}

// Seek positions the cursor at the smallest key >= key, following the
// right-link chain if the target leaf found by descent doesn't hold it
// (the key may have moved right mid-split). Mirrors BtreeIterator::Seek,
// rewritten with an explicit loop and found-flag instead of the original's
// do-while keyed on "page != page->hdr.sibling_ptr".
func (it *Iterator) Seek(key int64) {
	n := it.tree.descendToLeaf(key)
	found := false
	for n != nil {
		if idx, ok := n.seekWithinLeaf(key); ok {
			it.curNode = n
			it.index = idx
			found = true
			break
		}
		n = n.sibling.Load()
	}
	it.valid = found
	it.last = false
	if found {
		if it.curNode.records[it.index+1].loadPtr() == nil && it.curNode.sibling.Load() == nil {
			it.last = true
		}
	}
}

// Next advances the cursor to the next key in ascending order. Once the
// cursor has reached the last key, one further call invalidates it.
func (it *Iterator) Next() {
	if it.last {
		it.valid = false
		return
	}
	if it.curNode.records[it.index+1].loadPtr() != nil {
		it.index++
	} else if sib := it.curNode.sibling.Load(); sib != nil {
		it.curNode = sib
		it.index = 0
	}
	if it.curNode.records[it.index+1].loadPtr() == nil && it.curNode.sibling.Load() == nil {
		it.last = true
	}
}

// Prev steps the cursor back one position within the current leaf. It does
// not cross a leaf boundary backward — a documented limitation inherited
// from the original (no parent/previous-leaf pointers to walk).
func (it *Iterator) Prev() {
	if it.index == 0 {
		return
	}
	it.index--
}

// Key returns the key at the cursor. Valid must be true.
func (it *Iterator) Key() int64 { return it.curNode.records[it.index].key.Load() }

// Value returns the value at the cursor. Valid must be true.
func (it *Iterator) Value() unsafe.Pointer { return it.curNode.records[it.index].loadPtr() }
