package bptree

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// entry is one (key, ptr) slot. ptr is either a value handle (leaf) or a
// child *node (internal), stored as unsafe.Pointer the same way the
// original's Entry stores both under a single char*. key and ptr are
// accessed with atomics so the lock-free reader protocol (R1-R3 in
// spec.md §4.1) is race-detector-clean: Go's memory model has no implicit-
// volatile equivalent for the plain field accesses the original relies on.
type entry struct {
	key atomic.Int64
	ptr unsafe.Pointer
}

func (e *entry) loadPtr() unsafe.Pointer    { return atomic.LoadPointer(&e.ptr) }
func (e *entry) storePtr(p unsafe.Pointer)  { atomic.StorePointer(&e.ptr, p) }

// node is the single fixed-capacity page type for both leaves and internal
// nodes; leftmost == nil is the leaf discriminator, exactly as the original
// uses a null leftmost_ptr. There are no parent pointers: top-down
// re-descent plus the sibling right-link is how the tree finds its way back
// up after a concurrent split (spec.md §9).
type node struct {
	mu sync.Mutex // writer latch; readers never take it

	leftmost atomic.Pointer[node] // internal: child for keys < records[0].key. leaf: always nil.
	sibling  atomic.Pointer[node] // right neighbor at the same level
	extend   atomic.Pointer[node] // extend chain, only under in_compact; not persistent

	level uint32 // immutable after construction

	switchCounter  atomic.Uint32 // parity: even = forward scan, odd = backward
	isDeleted      atomic.Bool
	lastIndex      atomic.Int32
	queuedForSplit bool // guarded by mu; true once this chain head is pending

	capacity int // immutable; max live entries = capacity-1 fast-path slots
	records  []entry
}

func isForward(c uint32) bool { return c%2 == 0 }

func newNode(capacity int, level uint32) *node {
	n := &node{
		capacity: capacity,
		level:    level,
		records:  make([]entry, capacity+1),
	}
	n.lastIndex.Store(-1)
	return n
}

// newInternalSplit builds the two-child internal node created either when
// the tree's root splits or, once, at tree construction. Mirrors
// Page(Page *left, entry_key_t key, Page *right, uint32_t level).
func newInternalSplit(left *node, key int64, right *node, level uint32, capacity int, fn *fence) *node {
	n := newNode(capacity, level)
	n.leftmost.Store(left)
	n.records[0].key.Store(key)
	n.records[0].storePtr(unsafe.Pointer(right))
	n.records[1].storePtr(nil)
	n.lastIndex.Store(0)
	fn.flushPage(n)
	return n
}

func (n *node) isLeaf() bool { return n.leftmost.Load() == nil }

func (n *node) firstKey() int64 { return n.records[0].key.Load() }

// count is the lock-free, double-sampled entry tally. Mirrors Page::count().
func (n *node) count() int {
	var result int
	for attempt := 0; attempt < 2; attempt++ {
		c0 := n.switchCounter.Load()
		cnt := int(n.lastIndex.Load()) + 1
		for cnt >= 0 && n.records[cnt].loadPtr() != nil {
			if isForward(c0) {
				cnt++
			} else {
				cnt--
			}
		}
		if cnt < 0 {
			cnt = 0
			for n.records[cnt].loadPtr() != nil {
				cnt++
			}
		}
		result = cnt
		if n.switchCounter.Load() == c0 {
			return result
		}
	}
	// Bounded-retry exhausted (spec.md §8 property 8 bounds restarts to 2);
	// accept the last snapshot rather than spin indefinitely under a
	// writer that never converges (spec.md §7: a non-converging retry
	// means the writer crashed, and recovery is external).
	return result
}

// removeKey performs the in-place left shift used by tombstone-only delete.
// Mirrors Page::remove_key(); must be called with mu held.
func (n *node) removeKey(key int64, fn *fence) bool {
	if isForward(n.switchCounter.Load()) {
		n.switchCounter.Add(1)
	}

	shift := false
	for i := 0; n.records[i].loadPtr() != nil; i++ {
		if !shift && n.records[i].key.Load() == key {
			var prevPtr unsafe.Pointer
			if i == 0 {
				prevPtr = unsafe.Pointer(n.leftmost.Load())
			} else {
				prevPtr = n.records[i-1].loadPtr()
			}
			n.records[i].storePtr(prevPtr)
			shift = true
		}
		if shift {
			n.records[i].key.Store(n.records[i+1].key.Load())
			n.records[i].storePtr(n.records[i+1].loadPtr())
			fn.flushEntry(&n.records[i])
		}
	}

	if shift {
		n.lastIndex.Add(-1)
	}
	return shift
}

// insertKey is the FAST single-node write: R1 (sentinel extended first),
// R2 (ptr, then key, then ptr — never a null hole for a reader), R3
// (switch_counter toggled to the forward parity before mutating). Mirrors
// Page::insert_key. numEntries is the caller's pre-insert count (from
// count()); the post-insert count is numEntries+1.
func (n *node) insertKey(key int64, ptr unsafe.Pointer, numEntries int, fn *fence, doFlush bool) {
	if !isForward(n.switchCounter.Load()) {
		n.switchCounter.Add(1)
	}

	if numEntries == 0 {
		n.records[0].key.Store(key)
		n.records[0].storePtr(ptr)
		n.records[1].storePtr(nil)
		if doFlush {
			fn.flushEntry(&n.records[0])
		}
	} else {
		// R1: extend the null sentinel one slot right. records[numEntries+1]
		// was already nil and stays nil; this is a cache-line-valid store a
		// reader tolerates, not a logical change.
		n.records[numEntries+1].storePtr(n.records[numEntries].loadPtr())
		if doFlush {
			fn.flushEntry(&n.records[numEntries+1])
		}

		inserted := false
		i := numEntries - 1
		for ; i >= 0; i-- {
			if key < n.records[i].key.Load() {
				n.records[i+1].storePtr(n.records[i].loadPtr())
				n.records[i+1].key.Store(n.records[i].key.Load())
				if doFlush {
					fn.flushEntry(&n.records[i+1])
				}
			} else {
				// R2: ptr first (duplicate, tolerated), key, then the real ptr.
				n.records[i+1].storePtr(n.records[i].loadPtr())
				n.records[i+1].key.Store(key)
				n.records[i+1].storePtr(ptr)
				if doFlush {
					fn.flushEntry(&n.records[i+1])
				}
				inserted = true
				break
			}
		}
		if !inserted {
			n.records[0].storePtr(unsafe.Pointer(n.leftmost.Load()))
			n.records[0].key.Store(key)
			n.records[0].storePtr(ptr)
			if doFlush {
				fn.flushEntry(&n.records[0])
			}
		}
	}

	n.lastIndex.Store(int32(numEntries))
}

// storeOutcome tags the result of a store attempt in place of the original's
// null-return retry signal (spec.md §9 design note: model as a tagged
// result, not a null sentinel).
type storeOutcome int

const (
	placedOutcome storeOutcome = iota
	retryOutcome
)

type storeResult struct {
	outcome storeOutcome
	node    *node
}

// store is the FAST-and-FAIR entry point: right-link redirect, FAST
// in-place insert, FAIR split, or (under in_compact) a deferred extend-chain
// append. Mirrors Page::store.
func (n *node) store(tree *Tree, key int64, ptr unsafe.Pointer, invalidSibling *node) storeResult {
	n.mu.Lock()

	if n.isDeleted.Load() {
		n.mu.Unlock()
		return storeResult{outcome: retryOutcome}
	}

	if sib := n.sibling.Load(); sib != nil && sib != invalidSibling {
		if key > sib.firstKey() {
			n.mu.Unlock()
			return sib.store(tree, key, ptr, invalidSibling)
		}
	}

	numEntries := n.count()

	// FAST
	if numEntries < n.capacity-1 {
		n.insertKey(key, ptr, numEntries, tree.fence, true)
		n.mu.Unlock()
		return storeResult{outcome: placedOutcome, node: n}
	}

	// Overflow. Under in_compact, postpone restructuring via the extend
	// chain instead of splitting (deferred.go).
	if tree.InCompact() {
		placed := n.deferredInsert(tree, key, ptr)
		n.mu.Unlock()
		return storeResult{outcome: placedOutcome, node: placed}
	}

	// FAIR split.
	sibling, splitKey := n.fairSplit(tree)

	var placed *node
	if key < splitKey {
		placed = n
		n.insertKey(key, ptr, n.count(), tree.fence, true)
	} else {
		placed = sibling
		sibling.insertKey(key, ptr, sibling.count(), tree.fence, true)
	}

	wasRoot := tree.isRoot(n)
	n.mu.Unlock()

	if wasRoot {
		newRoot := newInternalSplit(n, splitKey, sibling, n.level+1, n.capacity, tree.fence)
		tree.setNewRoot(newRoot)
	} else {
		tree.internalInsert(splitKey, sibling, n.level+1)
	}

	return storeResult{outcome: placedOutcome, node: placed}
}

// fairSplit performs steps 1-4 of the FAIR split (spec.md §4.1): allocate a
// same-level sibling, migrate the upper half of entries, link the sibling
// into the right-link chain, and truncate this node. It does not decide
// root-promotion vs. internal-insert — store() makes that call itself after
// invoking it. ResolveDeferredSplits (deferred.go) does not call fairSplit:
// draining a chain needs a global re-sort across every chain node rather
// than a single node's own entries, so it repacks directly instead. Must be
// called with n.mu held.
func (n *node) fairSplit(tree *Tree) (*node, int64) {
	numEntries := n.count()
	m := (numEntries + 1) / 2 // ceil(numEntries/2)

	sibling := newNode(n.capacity, n.level)
	splitKey := n.records[m].key.Load()

	if n.isLeaf() {
		sc := 0
		for i := m; i < numEntries; i++ {
			sibling.insertKey(n.records[i].key.Load(), n.records[i].loadPtr(), sc, tree.fence, false)
			sc++
		}
	} else {
		sibling.leftmost.Store((*node)(n.records[m].loadPtr()))
		sc := 0
		for i := m + 1; i < numEntries; i++ {
			sibling.insertKey(n.records[i].key.Load(), n.records[i].loadPtr(), sc, tree.fence, false)
			sc++
		}
	}

	sibling.sibling.Store(n.sibling.Load())
	tree.fence.flushPage(sibling)

	n.sibling.Store(sibling)
	tree.fence.flushHeader(n)

	if isForward(n.switchCounter.Load()) {
		n.switchCounter.Add(2)
	} else {
		n.switchCounter.Add(1)
	}
	n.records[m].storePtr(nil)
	tree.fence.flushEntry(&n.records[m])

	n.lastIndex.Store(int32(m - 1))
	tree.fence.flushHeader(n)

	return sibling, splitKey
}

// --- lock-free reader protocol -------------------------------------------------

// linearSearchLeaf performs a point lookup on a leaf, returning the value if
// found, or the sibling to continue the search on if this key may have
// moved right during a concurrent split (spec.md §4.1 reader protocol).
func (n *node) linearSearchLeaf(key int64) (value unsafe.Pointer, sib *node, found bool) {
	var ret unsafe.Pointer
	var ok bool
	for attempt := 0; attempt < 2; attempt++ {
		c0 := n.switchCounter.Load()
		ret, ok = n.scanLeafOnce(key, c0)
		if n.switchCounter.Load() == c0 {
			if ok {
				return ret, nil, true
			}
			if s := n.sibling.Load(); s != nil && key >= s.firstKey() {
				return nil, s, false
			}
			return nil, nil, false
		}
	}
	if ok {
		return ret, nil, true
	}
	if s := n.sibling.Load(); s != nil && key >= s.firstKey() {
		return nil, s, false
	}
	return nil, nil, false
}

func (n *node) scanLeafOnce(key int64, c0 uint32) (unsafe.Pointer, bool) {
	if isForward(c0) {
		if k := n.records[0].key.Load(); k == key {
			if t := n.records[0].loadPtr(); t != nil {
				return t, true
			}
		}
		for i := 1; n.records[i].loadPtr() != nil; i++ {
			if k := n.records[i].key.Load(); k == key {
				t := n.records[i].loadPtr()
				if n.records[i-1].loadPtr() != t {
					return t, true
				}
			}
		}
		return nil, false
	}

	cnt := n.count()
	for i := cnt - 1; i > 0; i-- {
		if k := n.records[i].key.Load(); k == key {
			t := n.records[i].loadPtr()
			if n.records[i-1].loadPtr() != t && t != nil {
				return t, true
			}
		}
	}
	if k := n.records[0].key.Load(); k == key {
		if t := n.records[0].loadPtr(); t != nil {
			return t, true
		}
	}
	return nil, false
}

// linearSearchInternal routes a search through an internal node, returning
// the child (or sibling, if the key moved right under a concurrent split)
// to descend into next. Mirrors the internal-node branch of
// Page::linear_search.
func (n *node) linearSearchInternal(key int64) *node {
	var ret *node
	for attempt := 0; attempt < 2; attempt++ {
		c0 := n.switchCounter.Load()
		r := n.scanInternalOnce(key, c0)
		if n.switchCounter.Load() == c0 {
			ret = r
			break
		}
		ret = r
	}

	if sib := n.sibling.Load(); sib != nil && key >= sib.firstKey() {
		return sib
	}
	if ret != nil {
		return ret
	}
	return n.leftmost.Load()
}

func (n *node) scanInternalOnce(key int64, c0 uint32) *node {
	if isForward(c0) {
		// Mirrors Page::linear_search's "if (key < records[0].key) { ...;
		// ret = t; continue; }": the original's continue jumps straight to
		// the enclosing loop's exit check, skipping the entries loop below
		// entirely for this pass. Only the duplicate-in-flight case (t
		// equal to records[0].ptr, a transient R2 write) falls through to
		// scan the remaining entries instead.
		if k := n.records[0].key.Load(); key < k {
			if t := unsafe.Pointer(n.leftmost.Load()); t != n.records[0].loadPtr() {
				return (*node)(t)
			}
		}

		var ret unsafe.Pointer
		i := 1
		for ; n.records[i].loadPtr() != nil; i++ {
			if k := n.records[i].key.Load(); key < k {
				if t := n.records[i-1].loadPtr(); t != n.records[i].loadPtr() {
					ret = t
					break
				}
			}
		}
		if ret == nil {
			ret = n.records[i-1].loadPtr()
		}
		return (*node)(ret)
	}

	cnt := n.count()
	for i := cnt - 1; i >= 0; i-- {
		if k := n.records[i].key.Load(); key >= k {
			if i == 0 {
				if t := unsafe.Pointer(n.leftmost.Load()); t != n.records[i].loadPtr() {
					return (*node)(t)
				}
			} else if t := n.records[i-1].loadPtr(); t != n.records[i].loadPtr() {
				return (*node)(t)
			}
		}
	}
	return nil
}

// collectRange appends every value in (min, max) found in this node to buf,
// returning whether the caller should stop walking the sibling chain
// (the scan has passed max). Mirrors Page::linear_search_range.
func (n *node) collectRange(min, max int64, buf []unsafe.Pointer) ([]unsafe.Pointer, bool) {
	for attempt := 0; attempt < 2; attempt++ {
		c0 := n.switchCounter.Load()
		var out []unsafe.Pointer
		var stop bool
		if isForward(c0) {
			out, stop = n.scanRangeForward(min, max)
		} else {
			out, stop = n.scanRangeBackward(min, max)
		}
		if n.switchCounter.Load() == c0 {
			return append(buf, out...), stop
		}
	}
	out, stop := n.scanRangeForward(min, max)
	return append(buf, out...), stop
}

func (n *node) scanRangeForward(min, max int64) ([]unsafe.Pointer, bool) {
	var out []unsafe.Pointer
	if k := n.records[0].key.Load(); k > min {
		if k >= max {
			return out, true
		}
		if t := n.records[0].loadPtr(); t != nil {
			out = append(out, t)
		}
	}
	for i := 1; n.records[i].loadPtr() != nil; i++ {
		k := n.records[i].key.Load()
		if k <= min {
			continue
		}
		if k >= max {
			return out, true
		}
		if t := n.records[i].loadPtr(); t != n.records[i-1].loadPtr() {
			out = append(out, t)
		}
	}
	return out, false
}

func (n *node) scanRangeBackward(min, max int64) ([]unsafe.Pointer, bool) {
	var out []unsafe.Pointer
	cnt := n.count()
	stop := false
	for i := cnt - 1; i > 0; i-- {
		k := n.records[i].key.Load()
		if k <= min {
			continue
		}
		if k >= max {
			stop = true
			continue
		}
		if t := n.records[i].loadPtr(); t != n.records[i-1].loadPtr() {
			out = append([]unsafe.Pointer{t}, out...)
		}
	}
	if k := n.records[0].key.Load(); k > min && k < max {
		if t := n.records[0].loadPtr(); t != nil {
			out = append([]unsafe.Pointer{t}, out...)
		}
	}
	return out, stop
}

// seekWithinLeaf finds the smallest index whose key is >= key (spec.md
// §4.4 seek semantics), independent of scan direction: since entries are
// sorted ascending, once a right-to-left scan finds a key below the target
// every remaining (smaller) index also falls below it.
func (n *node) seekWithinLeaf(key int64) (int, bool) {
	for attempt := 0; attempt < 2; attempt++ {
		c0 := n.switchCounter.Load()
		cnt := n.count()
		idx := -1
		if isForward(c0) {
			for i := 0; i < cnt; i++ {
				if n.records[i].key.Load() >= key && n.records[i].loadPtr() != nil {
					idx = i
					break
				}
			}
		} else {
			for i := cnt - 1; i >= 0; i-- {
				if n.records[i].key.Load() < key {
					break
				}
				if n.records[i].loadPtr() != nil {
					idx = i
				}
			}
		}
		if n.switchCounter.Load() == c0 {
			return idx, idx >= 0
		}
	}
	return -1, false
}
