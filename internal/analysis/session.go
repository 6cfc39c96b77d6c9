package analysis

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/barrybecker4/applets-sub001/internal/cache"
	"github.com/barrybecker4/applets-sub001/internal/games/tictactoe"
	"github.com/barrybecker4/applets-sub001/internal/models"
	"github.com/barrybecker4/applets-sub001/internal/search"
)

// Session is one analysis running on this instance.
type Session struct {
	id       string
	game     *tictactoe.Game
	weights  search.Weights
	searcher *search.Searcher
	observer *search.ChannelObserver // nil unless the tree is streamed
	cache    *cache.ScoreCache
	cancel   context.CancelFunc
	done     chan struct{}

	mu      sync.Mutex
	doc     models.Analysis
	subs    map[int]chan Event
	nextSub int
	buffer  int
}

func (sess *Session) ID() string {
	return sess.id
}

// Done is closed once the search has returned and the result is recorded.
func (sess *Session) Done() <-chan struct{} {
	return sess.done
}

// Snapshot returns a copy of the session's current state.
func (sess *Session) Snapshot() models.Analysis {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshotLocked()
}

func (sess *Session) snapshotLocked() models.Analysis {
	doc := sess.doc
	if !doc.Status.Finished() {
		doc.PercentDone = sess.searcher.PercentDone()
		doc.MovesConsidered = sess.searcher.NumMovesConsidered()
	}
	if doc.BestMove != nil {
		doc.BestMove = doc.BestMove.Copy()
	}
	doc.Game.Moves = slices.Clone(doc.Game.Moves)
	return doc
}

// transition moves an unfinished session to a new status.
func (sess *Session) transition(to models.AnalysisStatus) (models.Analysis, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.doc.Status.Finished() {
		return sess.snapshotLocked(), ErrFinished
	}
	sess.doc.Status = to
	sess.doc.UpdatedAt = time.Now()
	return sess.snapshotLocked(), nil
}

// finish records the search outcome.
func (sess *Session) finish(res search.Result, err error) models.Analysis {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	now := time.Now()
	sess.doc.UpdatedAt = now
	sess.doc.CompletedAt = &now
	sess.doc.BestMove = res.Move
	sess.doc.Value = res.Value
	sess.doc.Interrupted = res.Interrupted
	sess.doc.MovesConsidered = res.MovesConsidered
	sess.doc.ElapsedMs = res.Elapsed.Milliseconds()
	sess.doc.PercentDone = sess.searcher.PercentDone()

	switch {
	case err != nil:
		sess.doc.Status = models.AnalysisFailed
		sess.doc.Error = err.Error()
	case res.Interrupted:
		sess.doc.Status = models.AnalysisCancelled
	default:
		sess.doc.Status = models.AnalysisComplete
		sess.doc.PercentDone = 100
	}
	return sess.snapshotLocked()
}

func (sess *Session) subscribe() (<-chan Event, func()) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.doc.Status.Finished() {
		doc := sess.snapshotLocked()
		ch := make(chan Event, 1)
		ch <- resultEvent(doc)
		close(ch)
		return ch, func() {}
	}

	id := sess.nextSub
	sess.nextSub++
	ch := make(chan Event, sess.buffer)
	sess.subs[id] = ch
	return ch, func() {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		if c, ok := sess.subs[id]; ok {
			delete(sess.subs, id)
			close(c)
		}
	}
}

// publish hands ev to every subscriber, dropping it for those that are
// full. Results are the exception: a full subscriber loses its oldest
// buffered event so the result always arrives.
func (sess *Session) publish(ev Event) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	for _, ch := range sess.subs {
		select {
		case ch <- ev:
			continue
		default:
		}
		if ev.Type != EventResult {
			continue
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}

func (sess *Session) closeSubscribers() {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	for id, ch := range sess.subs {
		close(ch)
		delete(sess.subs, id)
	}
}

func resultEvent(doc models.Analysis) Event {
	return Event{
		Type:            EventResult,
		AnalysisID:      doc.AnalysisID,
		Status:          doc.Status,
		PercentDone:     doc.PercentDone,
		MovesConsidered: doc.MovesConsidered,
		Analysis:        &doc,
	}
}

func statusEvent(doc models.Analysis) Event {
	ev := resultEvent(doc)
	ev.Type = EventStatus
	return ev
}
