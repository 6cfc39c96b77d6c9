// Package search implements minimax-family game-tree search with
// alpha-beta pruning, quiescence and a transposition cache.
//
// All strategies share one driver. Minimax keeps values from player 1's
// point of view and alternates maximising and minimising plies; the negamax
// family scores every node for the side to move and negates the window
// between plies. Values that leave the searcher (Result.Value,
// Move.InheritedValue, cache entries) are always from player 1's point of
// view.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/barrybecker4/applets-sub001/internal/cache"
	"github.com/barrybecker4/applets-sub001/internal/zobrist"
)

// Result is the outcome of one top-level search. A nil Move means there
// was nothing to play: the position was terminal, had no moves, or the
// search was interrupted before any reply was scored.
type Result struct {
	Move            *Move         `json:"move,omitempty"`
	Value           int           `json:"value"`
	Interrupted     bool          `json:"interrupted"`
	MovesConsidered int64         `json:"movesConsidered"`
	Elapsed         time.Duration `json:"elapsed"`
}

// Searcher runs one strategy against one Searchable.
//
// Thread Safety: Search must not be called concurrently. The progress
// accessors and the pause controller may be used from other goroutines.
type Searcher struct {
	kind       Kind
	opts       Options
	searchable Searchable
	cache      *cache.ScoreCache
	observer   TreeObserver
	pause      *PauseController
	diag       *Diagnostics
	logger     zerolog.Logger

	movesConsidered atomic.Int64
	topLevelTotal   atomic.Int64
	topLevelDone    atomic.Int64

	// owned by the searching goroutine
	ctx         context.Context
	weights     Weights
	interrupted bool
	mismatch    error
	nextNodeID  int
}

// SearcherOption customises a Searcher.
type SearcherOption func(*Searcher)

// WithCache backs the searcher with a score cache. Without one every
// position is searched.
func WithCache(c *cache.ScoreCache) SearcherOption {
	return func(s *Searcher) { s.cache = c }
}

func WithObserver(o TreeObserver) SearcherOption {
	return func(s *Searcher) { s.observer = o }
}

func WithPauseController(p *PauseController) SearcherOption {
	return func(s *Searcher) { s.pause = p }
}

func WithDiagnostics(d *Diagnostics) SearcherOption {
	return func(s *Searcher) { s.diag = d }
}

func WithLogger(l zerolog.Logger) SearcherOption {
	return func(s *Searcher) { s.logger = l }
}

// NewSearcher validates opts and builds a searcher for opts.Strategy.
func NewSearcher(searchable Searchable, opts Options, options ...SearcherOption) (*Searcher, error) {
	if searchable == nil {
		return nil, ErrNoSearchable
	}
	opts.ApplyDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	s := &Searcher{
		kind:       opts.Strategy,
		opts:       opts,
		searchable: searchable,
		logger:     log.Logger,
	}
	for _, o := range options {
		o(s)
	}
	if s.pause == nil {
		s.pause = NewPauseController()
	}
	s.logger = s.logger.With().Str("component", "search").Str("strategy", string(s.kind)).Logger()
	return s, nil
}

func (s *Searcher) Kind() Kind {
	return s.kind
}

func (s *Searcher) Options() Options {
	return s.opts
}

// PauseController returns the controller the search polls.
func (s *Searcher) PauseController() *PauseController {
	return s.pause
}

// NumMovesConsidered counts every candidate taken from a move list during
// the current or last search.
func (s *Searcher) NumMovesConsidered() int64 {
	return s.movesConsidered.Load()
}

// PercentDone estimates progress from the share of top-level moves
// finished. Pruning makes it jump; it is only a guide.
func (s *Searcher) PercentDone() int {
	total := s.topLevelTotal.Load()
	if total == 0 {
		return 0
	}
	pct := int(s.topLevelDone.Load() * 100 / total)
	return min(pct, 100)
}

// BestMove searches to the configured look-ahead from the configured window.
func (s *Searcher) BestMove(ctx context.Context, lastMove *Move, weights Weights) (Result, error) {
	return s.Search(ctx, lastMove, weights, s.opts.LookAhead, s.opts.quiescentDepth(), s.opts.InitialWindow)
}

// Search returns the best reply to lastMove, or to the searchable's own
// last move when lastMove is nil. The board is left as it was found,
// including when ctx is cancelled; an undo that does not match its move
// aborts the search with a *StateMismatchError.
func (s *Searcher) Search(ctx context.Context, lastMove *Move, weights Weights, depth, quiescentDepth int, window Window) (res Result, err error) {
	if lastMove == nil {
		lastMove = s.searchable.LastMove()
	}
	if depth < 0 || quiescentDepth < 0 {
		return Result{}, fmt.Errorf("%w: negative depth %d/%d", ErrInvalidOptions, depth, quiescentDepth)
	}
	if !s.opts.AlphaBeta {
		window = FullWindow()
	}
	if window.Crossed() {
		return Result{}, fmt.Errorf("%w: window %s is empty", ErrInvalidOptions, window)
	}

	start := time.Now()
	s.begin(ctx, weights)
	if s.cache != nil {
		s.cache.NextGeneration()
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		e, ok := r.(error)
		if !ok || !errors.Is(e, ErrStateMismatch) {
			panic(r)
		}
		s.logger.Error().Err(e).Msg("search aborted: board and hash out of step")
		res = Result{MovesConsidered: s.movesConsidered.Load(), Elapsed: time.Since(start)}
		err = e
	}()

	root := s.addNode(nil, lastMove, window, 0)
	sign := ToMove(lastMove).Sign()

	var value int
	var best *Move
	switch s.kind {
	case Minimax:
		value, best = s.minimax(lastMove, depth, quiescentDepth, window, 0, root)
	case NegaMax, NegaScout:
		v, m := s.negamax(lastMove, depth, quiescentDepth, window.orient(sign), 0, root)
		value, best = sign*v, m
	case MTD:
		v, m := s.mtd(lastMove, depth, quiescentDepth, root)
		value, best = sign*v, m
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownKind, s.kind)
	}

	if best == nil && s.interrupted {
		value = s.searchable.Worth(lastMove, weights)
	}
	if best != nil {
		best.Selected = true
		best.InheritedValue = value
	}

	res = Result{
		Move:            best,
		Value:           value,
		Interrupted:     s.interrupted,
		MovesConsidered: s.movesConsidered.Load(),
		Elapsed:         time.Since(start),
	}
	s.logger.Debug().
		Int("depth", depth).
		Int("value", value).
		Stringer("best", best).
		Int64("moves", res.MovesConsidered).
		Bool("interrupted", res.Interrupted).
		Dur("elapsed", res.Elapsed).
		Msg("search complete")
	return res, nil
}

func (s *Searcher) begin(ctx context.Context, weights Weights) {
	s.ctx = ctx
	s.weights = weights
	s.interrupted = false
	s.mismatch = nil
	s.nextNodeID = 0
	s.movesConsidered.Store(0)
	s.topLevelTotal.Store(0)
	s.topLevelDone.Store(0)
}

// checkpoint is called between moves. It blocks while paused and returns
// false once the search has been cancelled.
func (s *Searcher) checkpoint() bool {
	if s.interrupted {
		return false
	}
	if err := s.pause.Wait(s.ctx, s.opts.PausePollInterval()); err != nil {
		s.interrupted = true
		s.diag.Record(Anomaly{
			Kind:   Interrupted,
			Detail: fmt.Sprintf("search interrupted after %d moves: %v", s.movesConsidered.Load(), err),
			Key:    s.searchable.HashKey(),
		})
		return false
	}
	return true
}

// candidates generates and orders the replies to lastMove.
func (s *Searcher) candidates(lastMove *Move, ply int) MoveList {
	moves := s.searchable.GenerateMoves(lastMove, s.weights)
	moves.Sort()
	if ply == 0 {
		s.topLevelTotal.Store(int64(len(moves)))
		s.topLevelDone.Store(0)
	}
	return moves
}

func (s *Searcher) urgentCandidates(lastMove *Move) MoveList {
	moves := s.searchable.GenerateUrgentMoves(lastMove, s.weights)
	moves.Sort()
	return moves
}

func (s *Searcher) finished(ply int) {
	if ply == 0 {
		s.topLevelDone.Add(1)
	}
}

// shouldExtend decides whether a depth-0 node is searched further because
// the move that led to it was urgent.
func (s *Searcher) shouldExtend(lastMove *Move, quiescentDepth, ply int) bool {
	return s.opts.Quiescence && lastMove != nil && lastMove.Urgent &&
		quiescentDepth > 0 && ply < s.opts.MaxTotalDepth
}

// noMovesValue credits the player who made lastMove with a win when the
// reply has nothing to play.
func noMovesValue(lastMove *Move) int {
	if lastMove != nil && lastMove.Player == Player1 {
		return WinningValue
	}
	return -WinningValue
}

// moveToken undoes its move exactly once. After a failed undo the board
// is in an unknown state, so the tokens still unwinding leave it alone.
type moveToken struct {
	s        *Searcher
	move     *Move
	released bool
}

func (s *Searcher) makeMove(m *Move) *moveToken {
	s.searchable.MakeInternalMove(m)
	return &moveToken{s: s, move: m}
}

func (t *moveToken) release() {
	if t.released {
		return
	}
	t.released = true
	if t.s.mismatch != nil {
		return
	}
	if err := t.s.searchable.UndoInternalMove(t.move); err != nil {
		t.s.mismatch = err
		panic(err)
	}
}

// tryMove makes m, scores the position it leads to and takes m back. The
// window and the value are from player 1's point of view; depth and
// quiescentDepth are what remains below m. recurse is only called when the
// cache cannot answer.
func (s *Searcher) tryMove(m *Move, depth, quiescentDepth int, w Window, parent *TreeNode, index int,
	recurse func(child *TreeNode) int) int {

	tok := s.makeMove(m)
	defer tok.release()

	child := s.addNode(parent, m, w, index)
	key := s.searchable.HashKey()
	cached, usable := s.probe(key, depth, quiescentDepth, w)
	verify := usable && s.opts.VerifyCache && cached.Bound == cache.Exact
	if usable && !verify {
		return cached.Score
	}

	v := recurse(child)
	if s.interrupted {
		return v
	}
	var prior *cache.Entry
	if verify {
		prior = &cached
	}
	s.store(key, depth, quiescentDepth, w, v, prior)
	return v
}

// probe looks key up and reports whether the entry answers a search of
// the given depth through window w. Entries from deeper searches answer
// too unless ExactDepth is set.
func (s *Searcher) probe(key zobrist.Key, depth, quiescentDepth int, w Window) (cache.Entry, bool) {
	if s.cache == nil {
		return cache.Entry{}, false
	}
	e, ok := s.cache.Get(key)
	if !ok || e.Depth < depth || e.QuiescentDepth < quiescentDepth {
		return e, false
	}
	if s.opts.ExactDepth && (e.Depth != depth || e.QuiescentDepth != quiescentDepth) {
		return e, false
	}
	switch e.Bound {
	case cache.Exact:
		return e, true
	case cache.Lower:
		return e, e.Score >= w.Beta
	case cache.Upper:
		return e, e.Score <= w.Alpha
	}
	return e, false
}

// store saves a freshly computed value. When prior is an exact entry of
// the same depth the two must agree; a disagreement is a collision.
func (s *Searcher) store(key zobrist.Key, depth, quiescentDepth int, w Window, v int, prior *cache.Entry) {
	if s.cache == nil {
		return
	}
	e := cache.Entry{Score: v, Depth: depth, QuiescentDepth: quiescentDepth, Bound: boundFor(v, w)}
	if s.opts.VerifyCache {
		if st, ok := s.searchable.(fmt.Stringer); ok {
			e.Signature = st.String()
		}
	}
	if prior != nil && e.Bound == cache.Exact && prior.Depth == depth && prior.QuiescentDepth == quiescentDepth {
		if s.cache.Reconcile(key, e) {
			s.diag.Record(Anomaly{
				Kind:   CacheCollision,
				Detail: fmt.Sprintf("cached score %d disagrees with fresh score %d", prior.Score, v),
				Key:    key,
			})
		}
		return
	}
	s.cache.Put(key, e)
}

// boundFor classifies a fail-soft value against the window it was
// searched with.
func boundFor(v int, w Window) cache.Bound {
	switch {
	case v <= w.Alpha:
		return cache.Upper
	case v >= w.Beta:
		return cache.Lower
	}
	return cache.Exact
}

func (s *Searcher) addNode(parent *TreeNode, m *Move, w Window, index int) *TreeNode {
	if s.observer == nil {
		return nil
	}
	s.nextNodeID++
	n := &TreeNode{ID: s.nextNodeID, Move: m, Window: w, ChildIndex: index}
	if parent != nil {
		n.Ply = parent.Ply + 1
	}
	s.observer.NodeAdded(parent, n)
	return n
}

func (s *Searcher) notifyPruned(pruned MoveList, parent *TreeNode, childIndex int, attrs PruneAttributes) {
	if s.observer == nil || len(pruned) == 0 {
		return
	}
	s.observer.NodesPruned(pruned, parent, childIndex, attrs)
}
