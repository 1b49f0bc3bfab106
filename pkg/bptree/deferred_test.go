package bptree

import "testing"

// TestDeferredSplitEquivalence covers scenario S4: bulk-loading under
// in_compact and resolving afterward must produce the same (k, v) pairs a
// normal split-as-you-go insert sequence would, queryable by point lookup
// and by a full ascending iterator walk.
func TestDeferredSplitEquivalence(t *testing.T) {
	tr := NewTree(Config{PageSize: 512})
	tr.SetInCompact(true)
	for k := int64(1); k <= 200; k++ {
		tr.Insert(k, ptrOf(k))
	}
	tr.ResolveDeferredSplits()
	tr.SetInCompact(false)

	for k := int64(1); k <= 200; k++ {
		v := tr.Search(k)
		if v == nil || derefInt64(v) != k {
			t.Fatalf("search(%d) = %v, want %d", k, v, k)
		}
	}

	it := tr.NewIterator()
	var got []int64
	for it.Valid() {
		got = append(got, it.Key())
		it.Next()
	}
	if len(got) != 200 {
		t.Fatalf("iterator walk produced %d keys, want 200", len(got))
	}
	for i, k := range got {
		if want := int64(i + 1); k != want {
			t.Fatalf("iterator walk[%d] = %d, want %d", i, k, want)
		}
	}
}

// TestDeferredSplitMatchesDirectInsert covers property 7: for the same
// insert stream, deferred and direct insertion produce the same value
// multiset (tree shape may differ, values must not).
func TestDeferredSplitMatchesDirectInsert(t *testing.T) {
	keys := make([]int64, 0, 150)
	for k := int64(1); k <= 150; k++ {
		keys = append(keys, k)
	}

	direct := NewTree(Config{PageSize: 512})
	for _, k := range keys {
		direct.Insert(k, ptrOf(k))
	}

	deferred := NewTree(Config{PageSize: 512})
	deferred.SetInCompact(true)
	for _, k := range keys {
		deferred.Insert(k, ptrOf(k))
	}
	deferred.ResolveDeferredSplits()
	deferred.SetInCompact(false)

	for _, k := range keys {
		dv := direct.Search(k)
		fv := deferred.Search(k)
		if dv == nil || fv == nil {
			t.Fatalf("search(%d): direct=%v deferred=%v, want both present", k, dv, fv)
		}
		if derefInt64(dv) != derefInt64(fv) {
			t.Fatalf("search(%d): direct=%d deferred=%d, want equal", k, derefInt64(dv), derefInt64(fv))
		}
	}
}

// TestResolveDeferredSplitsIsIdempotentOnEmptyQueue ensures calling resolve
// with nothing pending is a no-op, not a panic.
func TestResolveDeferredSplitsIsIdempotentOnEmptyQueue(t *testing.T) {
	tr := NewDefaultTree()
	tr.ResolveDeferredSplits()
	tr.Insert(1, ptrOf(1))
	tr.ResolveDeferredSplits()
	if v := tr.Search(1); v == nil || derefInt64(v) != 1 {
		t.Fatalf("search(1) = %v, want 1", v)
	}
}
