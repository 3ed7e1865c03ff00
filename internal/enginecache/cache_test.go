package enginecache

import "testing"

func TestGetMissOnEmptyCache(t *testing.T) {
	c := New[int](2)
	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss on empty cache")
	}
}

func TestStrongTierHitAndPromotion(t *testing.T) {
	c := New[string](2)
	c.Put("a", "engine-a", true)
	c.Put("b", "engine-b", true)

	if v, ok := c.Get("a"); !ok || v != "engine-a" {
		t.Fatalf("got (%q, %v), want (engine-a, true)", v, ok)
	}

	// a is now most-recently-used; adding c evicts b, not a.
	c.Put("c", "engine-c", true)
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted from the strong tier")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to survive eviction")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c present")
	}
}

func TestPutWithoutPromoteStaysOutOfStrongTier(t *testing.T) {
	c := New[string](2)
	c.Put("a", "engine-a", false)
	c.Put("b", "engine-b", true)
	c.Put("c", "engine-c", true)

	// a was never promoted, so it is not protected by strong-tier LRU,
	// but remains reachable via the weak tier while this test still
	// holds no other reference invalidation (GC has not run).
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to still be reachable via the weak tier")
	}
}

func TestEvictRemovesFromBothTiers(t *testing.T) {
	c := New[string](2)
	c.Put("a", "engine-a", true)
	c.Evict("a")
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be gone after Evict")
	}
}

func TestZeroCapacityDisablesStrongTier(t *testing.T) {
	c := New[string](0)
	c.Put("a", "engine-a", true)
	if _, ok := c.Get("a"); !ok {
		t.Error("expected weak-tier hit even with strong tier disabled")
	}
	if len(c.strongIndex) != 0 {
		t.Error("expected strong tier to remain empty")
	}
}
