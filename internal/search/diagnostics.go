package search

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/barrybecker4/applets-sub001/internal/zobrist"
)

// AnomalyKind names a recoverable condition worth reporting.
type AnomalyKind string

const (
	// NonAlternatingMove: the same player moved twice in a row. Some game
	// variants may rely on this, so the move is still made.
	NonAlternatingMove AnomalyKind = "non_alternating_move"
	// CacheCollision: a cached score disagreed with a fresh computation.
	CacheCollision AnomalyKind = "cache_collision"
	// Interrupted: a search was cancelled before it finished.
	Interrupted AnomalyKind = "interrupted"
)

// Anomaly is one recorded occurrence.
type Anomaly struct {
	Kind   AnomalyKind `json:"kind"`
	Detail string      `json:"detail"`
	Key    zobrist.Key `json:"key,omitempty"`
	At     time.Time   `json:"at"`
}

const defaultRecentAnomalies = 32

// Diagnostics counts anomalies, keeps the most recent ones and forwards
// each to an optional sink. A nil *Diagnostics discards everything.
//
// Thread Safety: Safe for concurrent use.
type Diagnostics struct {
	mu     sync.Mutex
	logger zerolog.Logger
	counts map[AnomalyKind]int64
	recent []Anomaly
	keep   int
	sink   func(Anomaly)
}

// NewDiagnostics creates a recorder keeping up to keep recent anomalies.
func NewDiagnostics(logger zerolog.Logger, keep int) *Diagnostics {
	if keep <= 0 {
		keep = defaultRecentAnomalies
	}
	return &Diagnostics{
		logger: logger.With().Str("component", "search").Logger(),
		counts: make(map[AnomalyKind]int64),
		keep:   keep,
	}
}

// OnAnomaly installs a callback run after each Record, outside the lock.
func (d *Diagnostics) OnAnomaly(fn func(Anomaly)) {
	if d == nil {
		return
	}
	d.mu.Lock()
	d.sink = fn
	d.mu.Unlock()
}

// Record stores and logs an anomaly.
func (d *Diagnostics) Record(a Anomaly) {
	if d == nil {
		return
	}
	if a.At.IsZero() {
		a.At = time.Now()
	}
	d.mu.Lock()
	d.counts[a.Kind]++
	d.recent = append(d.recent, a)
	if len(d.recent) > d.keep {
		d.recent = d.recent[len(d.recent)-d.keep:]
	}
	sink := d.sink
	d.mu.Unlock()

	ev := d.logger.Warn()
	if a.Kind == Interrupted {
		ev = d.logger.Info()
	}
	ev.Str("anomaly", string(a.Kind)).Stringer("key", a.Key).Msg(a.Detail)

	if sink != nil {
		sink(a)
	}
}

// Count returns how many anomalies of a kind were recorded.
func (d *Diagnostics) Count(kind AnomalyKind) int64 {
	if d == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts[kind]
}

// Recent returns a copy of the retained anomalies, oldest first.
func (d *Diagnostics) Recent() []Anomaly {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Anomaly(nil), d.recent...)
}
