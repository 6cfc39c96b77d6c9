package cache

import (
	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/barrybecker4/applets-sub001/internal/zobrist"
)

// mapStore never evicts.
type mapStore struct {
	entries map[zobrist.Key]Entry
}

func newMapStore() *mapStore {
	return &mapStore{entries: make(map[zobrist.Key]Entry)}
}

func (s *mapStore) get(key zobrist.Key) (Entry, bool) {
	e, ok := s.entries[key]
	return e, ok
}

func (s *mapStore) put(key zobrist.Key, e Entry) bool {
	s.entries[key] = e
	return false
}

func (s *mapStore) len() int { return len(s.entries) }

func (s *mapStore) clear() { s.entries = make(map[zobrist.Key]Entry) }

func (s *mapStore) each(fn func(zobrist.Key, Entry)) {
	for k, e := range s.entries {
		fn(k, e)
	}
}

func (s *mapStore) nextGeneration() {}

// lruStore evicts the least recently used entry once capacity is reached.
type lruStore struct {
	lru *simplelru.LRU[zobrist.Key, Entry]
}

func newLRUStore(capacity int) *lruStore {
	l, err := simplelru.NewLRU[zobrist.Key, Entry](capacity, nil)
	if err != nil {
		// capacity is checked by Config.Validate
		panic(err)
	}
	return &lruStore{lru: l}
}

func (s *lruStore) get(key zobrist.Key) (Entry, bool) {
	return s.lru.Get(key)
}

func (s *lruStore) put(key zobrist.Key, e Entry) bool {
	return s.lru.Add(key, e)
}

func (s *lruStore) len() int { return s.lru.Len() }

func (s *lruStore) clear() { s.lru.Purge() }

// each walks from least to most recently used so a restore keeps recency.
// Peek leaves the order alone.
func (s *lruStore) each(fn func(zobrist.Key, Entry)) {
	for _, key := range s.lru.Keys() {
		if e, ok := s.lru.Peek(key); ok {
			fn(key, e)
		}
	}
}

func (s *lruStore) nextGeneration() {}

// slotStore is a fixed table indexed by key. A competing key replaces the
// occupant only if the occupant is from an older generation or was searched
// no deeper than the newcomer.
type slotStore struct {
	slots      []slot
	used       int
	generation uint32
}

type slot struct {
	key        zobrist.Key
	entry      Entry
	generation uint32
	valid      bool
}

func newSlotStore(size int) *slotStore {
	return &slotStore{slots: make([]slot, size), generation: 1}
}

func (s *slotStore) index(key zobrist.Key) int {
	return int(uint64(key) % uint64(len(s.slots)))
}

func (s *slotStore) get(key zobrist.Key) (Entry, bool) {
	sl := &s.slots[s.index(key)]
	if !sl.valid || sl.key != key {
		return Entry{}, false
	}
	sl.generation = s.generation
	return sl.entry, true
}

func (s *slotStore) put(key zobrist.Key, e Entry) bool {
	sl := &s.slots[s.index(key)]
	switch {
	case !sl.valid:
		s.used++
	case sl.key == key:
	case sl.generation != s.generation || e.Depth >= sl.entry.Depth:
		*sl = slot{key: key, entry: e, generation: s.generation, valid: true}
		return true
	default:
		return false
	}
	*sl = slot{key: key, entry: e, generation: s.generation, valid: true}
	return false
}

func (s *slotStore) len() int { return s.used }

func (s *slotStore) clear() {
	for i := range s.slots {
		s.slots[i] = slot{}
	}
	s.used = 0
	s.generation = 1
}

func (s *slotStore) each(fn func(zobrist.Key, Entry)) {
	for _, sl := range s.slots {
		if sl.valid {
			fn(sl.key, sl.entry)
		}
	}
}

func (s *slotStore) nextGeneration() {
	s.generation++
	if s.generation == 0 {
		s.generation = 1
	}
}
