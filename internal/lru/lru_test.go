package lru

import "testing"

func TestGetAllocatesOnMiss(t *testing.T) {
	c := New[string, int](2)
	calls := 0
	alloc := func() int { calls++; return 42 }

	if v := c.Get("a", alloc); v != 42 {
		t.Errorf("Get = %d, want 42", v)
	}
	if v := c.Get("a", alloc); v != 42 {
		t.Errorf("second Get = %d, want 42", v)
	}
	if calls != 1 {
		t.Errorf("allocate called %d times, want 1", calls)
	}
}

func TestInsertEvictsLowestScore(t *testing.T) {
	c := New[string, int](2)
	c.Insert("a", 1)
	c.Insert("b", 2)
	// Touch "a" so "b" becomes the least recently used.
	if _, ok := c.TryGet("a"); !ok {
		t.Fatal("expected a to be present")
	}
	c.Insert("c", 3)

	if _, ok := c.TryGet("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.TryGet("a"); !ok {
		t.Error("a should still be present")
	}
	if _, ok := c.TryGet("c"); !ok {
		t.Error("c should be present")
	}
}

func TestTryTakeRemovesEntry(t *testing.T) {
	c := New[string, int](2)
	c.Insert("a", 1)
	v, ok := c.TryTake("a")
	if !ok || v != 1 {
		t.Fatalf("TryTake = (%d, %v), want (1, true)", v, ok)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
	if _, ok := c.TryGet("a"); ok {
		t.Error("a should no longer be present after TryTake")
	}
}

func TestScoreOverflowRenumbers(t *testing.T) {
	c := New[int, int](3)
	c.nextScore = ^uint32(0) - 1
	c.Insert(1, 1)
	c.Insert(2, 2)
	if _, ok := c.TryGet(1); !ok {
		t.Fatal("expected key 1 present")
	}
	// nextScore already wrapped to 0 during the second Insert, which ran
	// the overflow-renumber path; these TryGets bump the renumbered scores.
	if _, ok := c.TryGet(2); !ok {
		t.Fatal("expected key 2 present")
	}
	if c.nextScore == 0 {
		t.Error("nextScore should have been renumbered away from 0 after overflow")
	}
}
