// Package cache implements a set-associative, write-through,
// no-write-allocate cache over a backing store. It is metadata-only: no
// data bytes are held in the cache lines themselves, since write-through
// keeps the backing store authoritative (spec.md §4.2).
package cache

import (
	"log/slog"

	"github.com/maemo32/tomasim/internal/errs"
	"github.com/maemo32/tomasim/internal/store"
)

// Config holds the runtime-configurable cache geometry and timing.
type Config struct {
	CacheSize     int
	BlockSize     int
	Associativity int
	HitLatency    int
	MissPenalty   int
}

// line is one cache-line's metadata: no data bytes, per spec.md §4.2/§4.5.
type line struct {
	valid bool
	tag   uint64
	lru   uint64
}

// Cache is a set-associative cache sitting in front of a store.Store.
type Cache struct {
	cfg       Config
	numSets   int
	sets      [][]line
	accessCtr uint64
	hits      uint64
	misses    uint64
	backing   *store.Store
}

// New validates cfg and constructs a Cache over backing. Construction fails
// with BadConfig if cache_size is not an exact multiple of
// block_size*associativity, or if any parameter is non-positive.
func New(cfg Config, backing *store.Store) (*Cache, error) {
	if cfg.CacheSize <= 0 || cfg.BlockSize <= 0 || cfg.Associativity <= 0 ||
		cfg.HitLatency <= 0 || cfg.MissPenalty <= 0 {
		return nil, errs.BadConfigf("cache.New", "all cache parameters must be positive: %+v", cfg)
	}
	denom := cfg.BlockSize * cfg.Associativity
	if cfg.CacheSize%denom != 0 {
		return nil, errs.BadConfigf("cache.New", "cache_size %d not divisible by block_size*associativity %d", cfg.CacheSize, denom)
	}
	numSets := cfg.CacheSize / denom
	sets := make([][]line, numSets)
	for i := range sets {
		sets[i] = make([]line, cfg.Associativity)
	}
	slog.Debug("cache constructed", "num_sets", numSets, "associativity", cfg.Associativity, "block_size", cfg.BlockSize)
	return &Cache{cfg: cfg, numSets: numSets, sets: sets, backing: backing}, nil
}

func (c *Cache) decompose(addr int) (block uint64, setIdx int, tag uint64) {
	block = uint64(addr) / uint64(c.cfg.BlockSize)
	setIdx = int(block % uint64(c.numSets))
	tag = block / uint64(c.numSets)
	return
}

func (c *Cache) find(set []line, tag uint64) int {
	for i := range set {
		if set[i].valid && set[i].tag == tag {
			return i
		}
	}
	return -1
}

// ProbeLatency returns the cycles a load/store to addr would take without
// mutating any cache state: hit_latency if present, else
// hit_latency+miss_penalty.
func (c *Cache) ProbeLatency(addr int) int {
	_, setIdx, tag := c.decompose(addr)
	if c.find(c.sets[setIdx], tag) >= 0 {
		return c.cfg.HitLatency
	}
	return c.cfg.HitLatency + c.cfg.MissPenalty
}

// way selection for replacement: first invalid way, else smallest LRU.
func (c *Cache) victim(set []line) int {
	for i := range set {
		if !set[i].valid {
			return i
		}
	}
	victim := 0
	for i := 1; i < len(set); i++ {
		if set[i].lru < set[victim].lru {
			victim = i
		}
	}
	return victim
}

func (c *Cache) touch(way *line, tag uint64) {
	c.accessCtr++
	way.valid = true
	way.tag = tag
	way.lru = c.accessCtr
}

// Load performs the access: on hit, updates LRU; on miss, installs the
// line via LRU replacement. Either way it returns the value from the
// backing store, which write-through keeps authoritative.
func (c *Cache) Load(addr int, isDouble bool) (int64, error) {
	_, setIdx, tag := c.decompose(addr)
	set := c.sets[setIdx]
	if i := c.find(set, tag); i >= 0 {
		c.hits++
		c.touch(&set[i], tag)
	} else {
		c.misses++
		i := c.victim(set)
		c.touch(&set[i], tag)
	}
	return c.backing.Load(addr, isDouble)
}

// Store writes through to the backing store. On hit, LRU is updated; on
// miss, no line is installed (no-write-allocate).
func (c *Cache) Store(addr int, value int64, isDouble bool) error {
	_, setIdx, tag := c.decompose(addr)
	set := c.sets[setIdx]
	if i := c.find(set, tag); i >= 0 {
		c.hits++
		c.touch(&set[i], tag)
	} else {
		c.misses++
	}
	return c.backing.StoreAt(addr, value, isDouble)
}

// Stats returns the cumulative hit/miss counters.
func (c *Cache) Stats() (hits, misses uint64) { return c.hits, c.misses }

// LineInfo is one way's observable metadata for a snapshot consumer.
type LineInfo struct {
	Valid bool
	Tag   uint64
	LRU   uint64
}

// Sets returns a by-value copy of every set's per-way metadata, for
// observable snapshots (spec.md §6).
func (c *Cache) Sets() [][]LineInfo {
	out := make([][]LineInfo, len(c.sets))
	for i, set := range c.sets {
		row := make([]LineInfo, len(set))
		for j, l := range set {
			row[j] = LineInfo{Valid: l.valid, Tag: l.tag, LRU: l.lru}
		}
		out[i] = row
	}
	return out
}

// Clone returns a deep copy of the cache's metadata, sharing no slices
// with the original. The backing store is NOT cloned here — callers clone
// and rewire it separately, matching how engine snapshots share instruction
// records but deep-copy mutable state.
func (c *Cache) Clone(backing *store.Store) *Cache {
	sets := make([][]line, len(c.sets))
	for i, set := range c.sets {
		cp := make([]line, len(set))
		copy(cp, set)
		sets[i] = cp
	}
	return &Cache{
		cfg:       c.cfg,
		numSets:   c.numSets,
		sets:      sets,
		accessCtr: c.accessCtr,
		hits:      c.hits,
		misses:    c.misses,
		backing:   backing,
	}
}
