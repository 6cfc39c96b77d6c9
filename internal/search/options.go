package search

import (
	"fmt"
	"time"
)

// Kind selects a search algorithm.
type Kind string

const (
	Minimax   Kind = "minimax"
	NegaMax   Kind = "negamax"
	NegaScout Kind = "negascout"
	// MTD is MTD(f): repeated zero-width negamax passes that converge on
	// the value. It relies on the score cache to be efficient.
	MTD Kind = "mtd"
)

// Kinds lists every supported algorithm.
func Kinds() []Kind {
	return []Kind{Minimax, NegaMax, NegaScout, MTD}
}

func (k Kind) valid() bool {
	switch k {
	case Minimax, NegaMax, NegaScout, MTD:
		return true
	}
	return false
}

const (
	DefaultLookAhead         = 3
	DefaultMaxQuiescentDepth = 8
	// DefaultMaxTotalDepth caps how far quiescence may extend a line.
	DefaultMaxTotalDepth    = 12
	DefaultPausePollMillis  = 100
	maxLookAhead            = 64
	maxPausePollMillisLimit = 60_000
)

// Options configure a Searcher.
type Options struct {
	Strategy          Kind   `json:"strategy"`
	LookAhead         int    `json:"lookAhead"`
	MaxQuiescentDepth int    `json:"maxQuiescentDepth"`
	AlphaBeta         bool   `json:"alphaBeta"`
	Quiescence        bool   `json:"quiescence"`
	InitialWindow     Window `json:"initialWindow"`
	MaxTotalDepth     int    `json:"maxTotalDepth"`
	// VerifyCache recomputes positions whose exact score is cached and
	// reports disagreements as collisions.
	VerifyCache bool `json:"verifyCache"`
	// ExactDepth only trusts cache entries searched to the depth being
	// asked for. Otherwise a deeper entry answers a shallower search, so
	// with a shared cache the result depends on what was searched before.
	ExactDepth      bool `json:"exactDepth"`
	PausePollMillis int  `json:"pausePollMillis"`
}

// DefaultOptions returns a 3-ply alpha-beta negamax without quiescence.
func DefaultOptions() Options {
	return Options{
		Strategy:          NegaMax,
		LookAhead:         DefaultLookAhead,
		MaxQuiescentDepth: DefaultMaxQuiescentDepth,
		AlphaBeta:         true,
		Quiescence:        false,
		InitialWindow:     FullWindow(),
		MaxTotalDepth:     DefaultMaxTotalDepth,
		PausePollMillis:   DefaultPausePollMillis,
	}
}

// ApplyDefaults fills zero-valued numeric fields. Booleans are left alone.
func (o *Options) ApplyDefaults() {
	if o.Strategy == "" {
		o.Strategy = NegaMax
	}
	if o.LookAhead == 0 {
		o.LookAhead = DefaultLookAhead
	}
	if o.InitialWindow.IsZero() {
		o.InitialWindow = FullWindow()
	}
	if o.MaxTotalDepth == 0 {
		o.MaxTotalDepth = DefaultMaxTotalDepth
	}
	if o.PausePollMillis == 0 {
		o.PausePollMillis = DefaultPausePollMillis
	}
}

// Validate reports settings the searcher cannot run with.
func (o Options) Validate() error {
	if !o.Strategy.valid() {
		return fmt.Errorf("%w: %w %q", ErrInvalidOptions, ErrUnknownKind, o.Strategy)
	}
	if o.LookAhead < 1 || o.LookAhead > maxLookAhead {
		return fmt.Errorf("%w: lookAhead must be in [1, %d], got %d", ErrInvalidOptions, maxLookAhead, o.LookAhead)
	}
	if o.MaxQuiescentDepth < 0 {
		return fmt.Errorf("%w: maxQuiescentDepth must not be negative", ErrInvalidOptions)
	}
	if o.InitialWindow.Crossed() {
		return fmt.Errorf("%w: initial window %s is empty", ErrInvalidOptions, o.InitialWindow)
	}
	if o.MaxTotalDepth < o.LookAhead {
		return fmt.Errorf("%w: maxTotalDepth %d is below lookAhead %d", ErrInvalidOptions, o.MaxTotalDepth, o.LookAhead)
	}
	if o.PausePollMillis < 1 || o.PausePollMillis > maxPausePollMillisLimit {
		return fmt.Errorf("%w: pausePollMillis must be in [1, %d]", ErrInvalidOptions, maxPausePollMillisLimit)
	}
	if !o.AlphaBeta && (o.Strategy == NegaScout || o.Strategy == MTD) {
		return fmt.Errorf("%w: %s requires alpha-beta pruning", ErrInvalidOptions, o.Strategy)
	}
	return nil
}

// PausePollInterval is how often a paused search checks whether to resume.
func (o Options) PausePollInterval() time.Duration {
	return time.Duration(o.PausePollMillis) * time.Millisecond
}

// quiescentDepth is the quiescence budget a top-level search starts with.
func (o Options) quiescentDepth() int {
	if !o.Quiescence {
		return 0
	}
	return o.MaxQuiescentDepth
}
