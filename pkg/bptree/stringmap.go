package bptree

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// stringMap is the sidecar recovering the original bytes behind a key
// produced by InsertString. The original hashed decimal-looking string keys
// by parsing their digits (Btree::Insert(char*, char*) /
// Btree::getMapping); this stands in a real hash function since the source
// bytes here are arbitrary, not decimal strings.
type stringMap struct {
	mu sync.RWMutex
	m  map[int64]string
}

func newStringMap() *stringMap {
	return &stringMap{m: make(map[int64]string)}
}

// hash64 derives the int64 tree key InsertString indexes by.
func hash64(s []byte) int64 {
	return int64(xxhash.Sum64(s))
}

// HashKey exposes hash64 so callers that inserted via InsertString can
// later compute the same int64 key from the original bytes, e.g. to call
// Delete directly without re-walking the sidecar map.
func HashKey(s []byte) int64 {
	return hash64(s)
}

func (sm *stringMap) put(key int64, original []byte) {
	sm.mu.Lock()
	sm.m[key] = string(original)
	sm.mu.Unlock()
}

func (sm *stringMap) get(key int64) (string, bool) {
	sm.mu.RLock()
	s, ok := sm.m[key]
	sm.mu.RUnlock()
	return s, ok
}
