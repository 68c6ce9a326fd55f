package fileconsumer

import "testing"

func TestTryClaimFirstWins(t *testing.T) {
	c := New()
	if !c.TryClaim("foo.h", "a.cpp") {
		t.Fatal("first claim should succeed")
	}
	if c.TryClaim("foo.h", "b.cpp") {
		t.Fatal("second claim for the same path should fail")
	}
	owner, ok := c.Owner("foo.h")
	if !ok || owner != "a.cpp" {
		t.Errorf("Owner(foo.h) = (%q, %v), want (a.cpp, true)", owner, ok)
	}
}

func TestResetClearsOwnership(t *testing.T) {
	c := New()
	c.TryClaim("foo.h", "a.cpp")
	c.Reset()
	if !c.TryClaim("foo.h", "b.cpp") {
		t.Fatal("claim should succeed again after Reset")
	}
}
