package bptree

import (
	"sort"
	"unsafe"
)

// deferredInsert appends (key, ptr) to the tail of n's extend chain,
// allocating a new extend node if the tail is full, and marks n's chain as
// pending resolution. Called from node.store while n.mu is held. Mirrors
// Page::store's getInCompact() branch in the original.
func (n *node) deferredInsert(tree *Tree, key int64, ptr unsafe.Pointer) *node {
	tail := n
	for next := tail.extend.Load(); next != nil; next = tail.extend.Load() {
		tail = next
	}

	if tail.count() >= tail.capacity-1 {
		next := newNode(tail.capacity, tail.level)
		tail.extend.Store(next)
		tree.fence.flushHeader(tail)
		tail = next
	}

	tail.insertKey(key, ptr, tail.count(), tree.fence, true)

	if !n.queuedForSplit {
		n.queuedForSplit = true
		tree.enqueuePendingSplit(n)
	}
	return tail
}

// splitResult is one separator produced while draining an extend chain.
type splitResult struct {
	sepKey  int64
	sibling *node
}

// chainEntry is one (key, ptr) pulled off an extend chain node, pending
// re-sort before repacking.
type chainEntry struct {
	key int64
	ptr unsafe.Pointer
}

// ResolveDeferredSplits turns every extend chain queued since the last call
// (or since in_compact was enabled) into real, right-linked leaves and
// propagates their separators upward. Must be called with no concurrent
// writers active (spec.md §4.3): it walks and mutates chain heads without
// taking the tree-wide lock a normal store() would coordinate through.
//
// spec.md §4.3 notes that keys are sorted within each chain node but *not*
// across chain nodes. A naive per-node FAIR split (splitting each chain
// link in place) would leave the real sibling chain skipping over every
// node but the head and the head's own split sibling — the bulk of a
// chain's entries would never be spliced into the tree's right-link list
// and so would be unreachable by Search/Range/Iterator even though they
// were "inserted". Resolving must instead pull every entry off the whole
// chain, sort them back into global key order, and repack them into a run
// of capacity-bounded leaves linked in by sibling pointer.
func (t *Tree) ResolveDeferredSplits() {
	t.splitMu.Lock()
	heads := t.pendingSplit
	t.pendingSplit = nil
	t.splitMu.Unlock()

	for _, head := range heads {
		head.mu.Lock()
		results := head.drainExtendChain(t)
		wasRoot := t.isRoot(head)
		head.mu.Unlock()

		if len(results) == 0 {
			continue
		}

		if wasRoot {
			first := results[0]
			newRoot := newInternalSplit(head, first.sepKey, first.sibling, head.level+1, head.capacity, t.fence)
			t.setNewRoot(newRoot)
			for _, r := range results[1:] {
				t.internalInsert(r.sepKey, r.sibling, head.level+1)
			}
		} else {
			for _, r := range results {
				t.internalInsert(r.sepKey, r.sibling, head.level+1)
			}
		}
	}
}

// drainExtendChain gathers every entry reachable from n (n itself plus its
// whole extend chain), sorts them into ascending key order, and repacks
// them as a sequence of ordinary leaves: n keeps the first chunk (so its
// identity — and whatever parent pointer already refers to it — stays
// valid), and one freshly allocated node holds each subsequent chunk. The
// repacked leaves are linked by sibling pointer in order, with the last
// chunk pointing at n's original (pre-compaction) sibling. Must be called
// with n.mu held; returns one splitResult per newly created leaf so the
// caller can propagate separators upward exactly like a FAIR split.
func (n *node) drainExtendChain(tree *Tree) []splitResult {
	var all []chainEntry
	for cur := n; cur != nil; cur = cur.extend.Load() {
		cnt := cur.count()
		for i := 0; i < cnt; i++ {
			all = append(all, chainEntry{key: cur.records[i].key.Load(), ptr: cur.records[i].loadPtr()})
		}
	}

	n.queuedForSplit = false
	n.extend.Store(nil)

	if len(all) == 0 {
		return nil
	}

	sort.Slice(all, func(i, j int) bool { return all[i].key < all[j].key })

	chunkSize := n.capacity - 1
	if chunkSize < 1 {
		chunkSize = 1
	}
	numChunks := (len(all) + chunkSize - 1) / chunkSize

	leaves := make([]*node, numChunks)
	leaves[0] = n
	for i := 1; i < numChunks; i++ {
		leaves[i] = newNode(n.capacity, n.level)
	}

	for ci, leaf := range leaves {
		start := ci * chunkSize
		end := start + chunkSize
		if end > len(all) {
			end = len(all)
		}
		for i, e := range all[start:end] {
			leaf.insertKey(e.key, e.ptr, i, tree.fence, false)
		}
	}

	originalSibling := n.sibling.Load()
	for i, leaf := range leaves {
		leaf.extend.Store(nil)
		if i+1 < numChunks {
			leaf.sibling.Store(leaves[i+1])
		} else {
			leaf.sibling.Store(originalSibling)
		}
		tree.fence.flushPage(leaf)
	}

	results := make([]splitResult, 0, numChunks-1)
	for i := 1; i < numChunks; i++ {
		results = append(results, splitResult{sepKey: leaves[i].firstKey(), sibling: leaves[i]})
	}
	return results
}
