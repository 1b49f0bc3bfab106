// Package bptree implements a concurrent, persistent-memory-style B+-tree
// used as the indexing substrate for FreyjaDB's in-memory/persistent table
// tier. Keys are fixed-width int64 values; values are opaque, pointer-sized
// handles to records stored elsewhere (the caller's arena/log, not this
// package).
//
// The tree follows the FAST & FAIR design: writers hold a per-node mutex and
// order their stores so that lock-free readers, racing a concurrent split or
// insert, always observe either the old state or the new state and never a
// torn entry. A per-node switch counter lets readers detect and retry across
// an in-flight mutation; a right-link (sibling) chain lets readers that
// started a scan before a split still find a key that moved into a new
// sibling mid-scan.
//
// A second mode, entered via SetInCompact, defers leaf splits during a bulk
// load: overflowing leaves chain extra entries through an extend pointer
// instead of restructuring the tree, and ResolveDeferredSplits later turns
// every chain into real siblings in one pass. Callers must not rely on point
// lookups while in_compact is active; only ResolveDeferredSplits restores
// the tree's read invariants.
package bptree
