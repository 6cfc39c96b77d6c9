package analysis

import (
	"context"
	"fmt"
	"sort"

	"github.com/barrybecker4/applets-sub001/internal/cache"
)

// CacheStore saves and restores score caches by name. cachestore.Store
// implements it.
type CacheStore interface {
	Names(ctx context.Context) ([]string, error)
	Load(ctx context.Context, name string, c *cache.ScoreCache) (int, error)
	Save(ctx context.Context, name string, c *cache.ScoreCache) (int, error)
}

// CacheStats describes one shared cache.
type CacheStats struct {
	Geometry   string       `json:"geometry"`
	Policy     cache.Policy `json:"policy"`
	Entries    int          `json:"entries"`
	Hits       int64        `json:"hits"`
	Misses     int64        `json:"misses"`
	Collisions int64        `json:"collisions"`
	Evictions  int64        `json:"evictions"`
}

// CacheStats lists every shared cache, ordered by geometry.
func (s *Service) CacheStats() []CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]CacheStats, 0, len(s.caches))
	for name, c := range s.caches {
		out = append(out, CacheStats{
			Geometry:   name,
			Policy:     c.Policy(),
			Entries:    c.NumEntries(),
			Hits:       c.Hits(),
			Misses:     c.Misses(),
			Collisions: c.Collisions(),
			Evictions:  c.Evictions(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Geometry < out[j].Geometry })
	return out
}

// recordCacheStats reports lookups since the last call to metrics.
func (s *Service) recordCacheStats() {
	for _, st := range s.CacheStats() {
		s.mu.Lock()
		prev := s.seen[st.Geometry]
		s.seen[st.Geometry] = [2]int64{st.Hits, st.Misses}
		s.mu.Unlock()
		s.metrics.ObserveCache(st.Hits-prev[0], st.Misses-prev[1])
	}
}

// RestoreCaches loads every stored snapshot into the matching shared cache.
func (s *Service) RestoreCaches(ctx context.Context, store CacheStore) (int, error) {
	names, err := store.Names(ctx)
	if err != nil {
		return 0, fmt.Errorf("list cache snapshots: %w", err)
	}
	total := 0
	for _, name := range names {
		c, err := s.cacheFor(name)
		if err != nil {
			return total, err
		}
		n, err := store.Load(ctx, name, c)
		if err != nil {
			return total, fmt.Errorf("load cache %s: %w", name, err)
		}
		total += n
	}
	return total, nil
}

// SaveCaches writes every shared cache to store.
func (s *Service) SaveCaches(ctx context.Context, store CacheStore) (int, error) {
	s.mu.RLock()
	caches := make(map[string]*cache.ScoreCache, len(s.caches))
	for name, c := range s.caches {
		caches[name] = c
	}
	s.mu.RUnlock()

	total := 0
	for name, c := range caches {
		n, err := store.Save(ctx, name, c)
		if err != nil {
			return total, fmt.Errorf("save cache %s: %w", name, err)
		}
		total += n
	}
	return total, nil
}
