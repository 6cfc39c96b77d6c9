package cache

import (
	"errors"
	"fmt"
)

// Policy selects how a full cache makes room.
type Policy string

const (
	// PolicyUnbounded never evicts.
	PolicyUnbounded Policy = "unbounded"
	// PolicyLRU evicts the least recently used entry.
	PolicyLRU Policy = "lru"
	// PolicyDepthPreferred is a fixed slot table that keeps deeper and
	// fresher results when two keys compete for a slot.
	PolicyDepthPreferred Policy = "depth-preferred"
)

// DefaultMaxEntries matches the size the desktop engine used for its LRU table.
const DefaultMaxEntries = 100000

var ErrInvalidConfig = errors.New("invalid cache configuration")

// Config configures a ScoreCache.
type Config struct {
	Policy     Policy `json:"policy"`
	MaxEntries int    `json:"maxEntries"`
}

// DefaultConfig returns a bounded LRU cache.
func DefaultConfig() Config {
	return Config{Policy: PolicyLRU, MaxEntries: DefaultMaxEntries}
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Policy == "" {
		c.Policy = PolicyLRU
	}
	if c.MaxEntries == 0 && c.Policy != PolicyUnbounded {
		c.MaxEntries = DefaultMaxEntries
	}
}

// Validate reports unusable settings.
func (c Config) Validate() error {
	switch c.Policy {
	case PolicyUnbounded:
	case PolicyLRU, PolicyDepthPreferred:
		if c.MaxEntries <= 0 {
			return fmt.Errorf("%w: maxEntries must be positive for policy %q", ErrInvalidConfig, c.Policy)
		}
	default:
		return fmt.Errorf("%w: unknown policy %q", ErrInvalidConfig, c.Policy)
	}
	return nil
}
