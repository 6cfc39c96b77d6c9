// Package cache implements the transposition (score) cache used by the
// search strategies. Positions reached through different move orders share a
// zobrist key, so a score computed once can be reused.
package cache

import (
	"fmt"
	"sync"

	"github.com/barrybecker4/applets-sub001/internal/zobrist"
)

// Bound tells how a stored score relates to the true value of the position.
type Bound int8

const (
	// Exact scores fell strictly inside the search window.
	Exact Bound = iota
	// Lower scores are a lower bound (the search failed high).
	Lower
	// Upper scores are an upper bound (the search failed low).
	Upper
)

func (b Bound) String() string {
	switch b {
	case Exact:
		return "exact"
	case Lower:
		return "lower"
	case Upper:
		return "upper"
	default:
		return "unknown"
	}
}

// Entry is a cached score plus what is needed to decide whether it can be reused.
type Entry struct {
	Score          int    `json:"score"`
	Depth          int    `json:"depth"`
	QuiescentDepth int    `json:"quiescentDepth"`
	Bound          Bound  `json:"bound"`
	Signature      string `json:"signature,omitempty"` // optional board dump for diagnosing collisions
}

// Record is a key/entry pair used for snapshots.
type Record struct {
	Key   zobrist.Key `json:"key"`
	Entry Entry       `json:"entry"`
}

// CollisionFunc is called when a stored score disagrees with a freshly
// computed score for the same key.
type CollisionFunc func(key zobrist.Key, stored, fresh Entry)

// store is the replacement policy behind a ScoreCache. Implementations are
// not synchronised; ScoreCache holds the lock.
type store interface {
	get(key zobrist.Key) (Entry, bool)
	put(key zobrist.Key, e Entry) (evicted bool)
	len() int
	clear()
	each(fn func(key zobrist.Key, e Entry))
	nextGeneration()
}

// ScoreCache maps position keys to scores with hit/miss accounting.
//
// Thread Safety: Safe for concurrent use.
type ScoreCache struct {
	mu          sync.Mutex
	cfg         Config
	store       store
	hits        int64
	misses      int64
	collisions  int64
	evictions   int64
	onCollision CollisionFunc
}

// New creates a cache with the given replacement policy.
func New(cfg Config) (*ScoreCache, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &ScoreCache{cfg: cfg}
	switch cfg.Policy {
	case PolicyUnbounded:
		c.store = newMapStore()
	case PolicyLRU:
		c.store = newLRUStore(cfg.MaxEntries)
	case PolicyDepthPreferred:
		c.store = newSlotStore(cfg.MaxEntries)
	}
	return c, nil
}

// NewUnbounded returns a cache that never evicts.
func NewUnbounded() *ScoreCache {
	c, _ := New(Config{Policy: PolicyUnbounded})
	return c
}

// OnCollision registers a callback for score disagreements.
func (c *ScoreCache) OnCollision(fn CollisionFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onCollision = fn
}

// Get looks up a key, counting one hit or one miss.
func (c *ScoreCache) Get(key zobrist.Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.store.get(key)
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return e, ok
}

// Put stores an entry. Depending on the policy this may evict another
// entry or, for the depth-preferred table, decline to replace a deeper one.
func (c *ScoreCache) Put(key zobrist.Key, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store.put(key, e) {
		c.evictions++
	}
}

// Reconcile compares a freshly computed entry with the stored one. A
// disagreeing score is a hash collision or a caller bug: it is counted,
// reported to the collision callback, and the fresh value replaces the old.
// Counters for hits and misses are not touched.
func (c *ScoreCache) Reconcile(key zobrist.Key, fresh Entry) bool {
	c.mu.Lock()
	stored, ok := c.store.get(key)
	collided := ok && stored.Score != fresh.Score
	if collided {
		c.collisions++
	}
	if c.store.put(key, fresh) {
		c.evictions++
	}
	cb := c.onCollision
	c.mu.Unlock()

	if collided && cb != nil {
		cb(key, stored, fresh)
	}
	return collided
}

// NextGeneration ages existing entries so the depth-preferred policy may
// replace them. Other policies ignore it.
func (c *ScoreCache) NextGeneration() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.nextGeneration()
}

func (c *ScoreCache) NumEntries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.len()
}

// Hits is the number of lookups that found an entry.
func (c *ScoreCache) Hits() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits
}

// Misses is the number of lookups that found nothing.
func (c *ScoreCache) Misses() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.misses
}

func (c *ScoreCache) Collisions() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.collisions
}

func (c *ScoreCache) Evictions() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictions
}

// Policy returns the configured replacement policy.
func (c *ScoreCache) Policy() Policy {
	return c.cfg.Policy
}

// Clear drops all entries and resets the counters.
func (c *ScoreCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.clear()
	c.hits, c.misses, c.collisions, c.evictions = 0, 0, 0, 0
}

// Snapshot copies out every entry. Order is unspecified.
func (c *ScoreCache) Snapshot() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Record, 0, c.store.len())
	c.store.each(func(key zobrist.Key, e Entry) {
		out = append(out, Record{Key: key, Entry: e})
	})
	return out
}

// Restore loads records without touching the counters.
func (c *ScoreCache) Restore(records []Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range records {
		c.store.put(r.Key, r.Entry)
	}
}

func (c *ScoreCache) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("ScoreCache[policy=%s entries=%d hits=%d misses=%d collisions=%d]",
		c.cfg.Policy, c.store.len(), c.hits, c.misses, c.collisions)
}
