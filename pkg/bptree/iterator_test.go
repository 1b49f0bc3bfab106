package bptree

import "testing"

func TestIteratorSeekToFirstAndLast(t *testing.T) {
	tr := NewTree(Config{PageSize: 512})
	for k := int64(1); k <= 100; k++ {
		tr.Insert(k, ptrOf(k))
	}

	it := tr.NewIterator()
	if !it.Valid() || it.Key() != 1 {
		t.Fatalf("SeekToFirst: key = %v valid=%v, want 1", it.Key(), it.Valid())
	}

	it.SeekToLast()
	if !it.Valid() || it.Key() != 100 {
		t.Fatalf("SeekToLast: key = %v valid=%v, want 100", it.Key(), it.Valid())
	}
}

func TestIteratorSeek(t *testing.T) {
	tr := NewTree(Config{PageSize: 512})
	for k := int64(1); k <= 60; k += 2 { // odd keys only: 1,3,5,...,59
		tr.Insert(k, ptrOf(k))
	}

	it := tr.NewIterator()
	it.Seek(30) // no exact match; smallest key >= 30 is 31
	if !it.Valid() || it.Key() != 31 {
		t.Fatalf("Seek(30): key = %v valid=%v, want 31", it.Key(), it.Valid())
	}

	it.Seek(31) // exact match
	if !it.Valid() || it.Key() != 31 {
		t.Fatalf("Seek(31): key = %v valid=%v, want 31", it.Key(), it.Valid())
	}

	it.Seek(1000) // past every key
	if it.Valid() {
		t.Fatalf("Seek(1000): valid = true, want false (no key >= 1000)")
	}
}

func TestIteratorNextInvalidatesPastLast(t *testing.T) {
	tr := NewDefaultTree()
	tr.Insert(1, ptrOf(1))
	tr.Insert(2, ptrOf(2))

	it := tr.NewIterator()
	if it.Key() != 1 {
		t.Fatalf("first key = %d, want 1", it.Key())
	}
	it.Next()
	if !it.Valid() || it.Key() != 2 {
		t.Fatalf("second key = %v valid=%v, want 2", it.Key(), it.Valid())
	}
	it.Next()
	if it.Valid() {
		t.Fatalf("iterator valid past the last key")
	}
}

func TestIteratorPrevDoesNotCrossLeaves(t *testing.T) {
	tr := NewTree(Config{PageSize: 512})
	for k := int64(1); k <= 30; k++ { // forces exactly one split, per S1
		tr.Insert(k, ptrOf(k))
	}

	it := tr.NewIterator()
	it.Seek(16) // first key of the right-hand leaf
	if !it.Valid() || it.Key() != 16 {
		t.Fatalf("Seek(16): key = %v valid=%v, want 16", it.Key(), it.Valid())
	}
	it.Prev() // documented limitation: stays put, does not walk back into the left leaf
	if it.Key() != 16 {
		t.Fatalf("Prev() at a leaf's first entry moved to %d, want to stay at 16", it.Key())
	}
}

func TestIteratorOnEmptyTree(t *testing.T) {
	tr := NewDefaultTree()
	it := tr.NewIterator()
	if it.Valid() {
		t.Fatalf("iterator on empty tree is valid")
	}
}
