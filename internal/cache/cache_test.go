package cache

import (
	"testing"

	"github.com/maemo32/tomasim/internal/store"
)

func newTestCache(t *testing.T) (*Cache, *store.Store) {
	t.Helper()
	st := store.New(4096)
	c, err := New(Config{CacheSize: 64, BlockSize: 16, Associativity: 2, HitLatency: 1, MissPenalty: 10}, st)
	if err != nil {
		t.Fatal(err)
	}
	return c, st
}

func TestBadGeometryRejected(t *testing.T) {
	st := store.New(64)
	_, err := New(Config{CacheSize: 60, BlockSize: 16, Associativity: 2, HitLatency: 1, MissPenalty: 10}, st)
	if err == nil {
		t.Fatal("expected error for cache_size not divisible by block_size*associativity")
	}
}

// TestAddressDistanceDrivesHitMiss mirrors the cache-hit/miss timing scenario:
// two doublewords in the same 16-byte block hit after the first miss; a third
// address in a different block misses again.
func TestAddressDistanceDrivesHitMiss(t *testing.T) {
	c, _ := newTestCache(t)

	if lat := c.ProbeLatency(0); lat != 11 {
		t.Errorf("first probe of addr 0: ProbeLatency = %d, want 11", lat)
	}
	if _, err := c.Load(0, true); err != nil {
		t.Fatal(err)
	}

	if lat := c.ProbeLatency(8); lat != 1 {
		t.Errorf("probe of addr 8 (same block): ProbeLatency = %d, want 1", lat)
	}
	if _, err := c.Load(8, true); err != nil {
		t.Fatal(err)
	}

	if lat := c.ProbeLatency(100); lat != 11 {
		t.Errorf("probe of addr 100 (different block): ProbeLatency = %d, want 11", lat)
	}
	if _, err := c.Load(100, true); err != nil {
		t.Fatal(err)
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 2 {
		t.Errorf("Stats() = (%d hits, %d misses), want (1, 2)", hits, misses)
	}
}

func TestStoreIsWriteThroughNoWriteAllocate(t *testing.T) {
	c, st := newTestCache(t)
	if err := c.Store(0, 99, false); err != nil {
		t.Fatal(err)
	}
	v, err := st.LoadWord(0)
	if err != nil {
		t.Fatal(err)
	}
	if v != 99 {
		t.Errorf("backing store = %d, want 99 (write-through)", v)
	}
	_, misses := c.Stats()
	if misses != 1 {
		t.Errorf("a store missing the cache should not install a line: misses = %d, want 1", misses)
	}
	if lat := c.ProbeLatency(0); lat != 11 {
		t.Errorf("no-write-allocate: a subsequent probe should still miss, got latency %d", lat)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	c, st := newTestCache(t)
	_, _ = c.Load(0, true)
	clone := c.Clone(st.Clone())
	_, _ = c.Load(100, true)

	_, misses := clone.Stats()
	if misses != 1 {
		t.Errorf("clone should not observe later accesses to the original: misses = %d, want 1", misses)
	}
}
