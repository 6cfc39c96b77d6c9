// Package analysis runs game-tree searches as named, controllable sessions
// for the server and CLI.
//
// A session searches one k-in-a-row position on its own goroutine. It can
// be paused, resumed and cancelled while it runs, streams progress (and
// optionally the search tree) to subscribers, and is persisted through a
// Repository when one is configured. Positions with the same board
// geometry share one score cache.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/barrybecker4/applets-sub001/internal/cache"
	"github.com/barrybecker4/applets-sub001/internal/games/tictactoe"
	"github.com/barrybecker4/applets-sub001/internal/metrics"
	"github.com/barrybecker4/applets-sub001/internal/models"
	"github.com/barrybecker4/applets-sub001/internal/search"
	"github.com/barrybecker4/applets-sub001/internal/zobrist"
)

var (
	ErrNotFound       = errors.New("analysis not found")
	ErrFinished       = errors.New("analysis has already finished")
	ErrInvalidRequest = errors.New("invalid analysis request")
	ErrShuttingDown   = errors.New("analysis service is shutting down")
)

// Config tunes the service. Zero values are replaced by DefaultConfig's.
type Config struct {
	Search           search.Options
	Cache            cache.Config
	Seed             int64 // hash seed shared by every game
	MaxLookAhead     int
	MaxBatch         int
	BatchWorkers     int
	SessionTTL       time.Duration // how long finished sessions stay in memory
	ReapInterval     time.Duration
	StaleAfter       time.Duration // unfinished documents without a heartbeat this long are abandoned
	ProgressInterval time.Duration
	SubscriberBuffer int
	TreeBuffer       int
}

func DefaultConfig() Config {
	return Config{
		Search:           search.DefaultOptions(),
		Cache:            cache.DefaultConfig(),
		Seed:             1,
		MaxLookAhead:     12,
		MaxBatch:         64,
		BatchWorkers:     4,
		SessionTTL:       10 * time.Minute,
		ReapInterval:     time.Minute,
		StaleAfter:       2 * time.Minute,
		ProgressInterval: time.Second,
		SubscriberBuffer: 64,
		TreeBuffer:       4096,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Search.Strategy == "" {
		c.Search = d.Search
	}
	c.Search.ApplyDefaults()
	if c.Cache.Policy == "" {
		c.Cache = d.Cache
	}
	if c.MaxLookAhead <= 0 {
		c.MaxLookAhead = d.MaxLookAhead
	}
	if c.MaxBatch <= 0 {
		c.MaxBatch = d.MaxBatch
	}
	if c.BatchWorkers <= 0 {
		c.BatchWorkers = d.BatchWorkers
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = d.SessionTTL
	}
	if c.ReapInterval <= 0 {
		c.ReapInterval = d.ReapInterval
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = d.StaleAfter
	}
	if c.ProgressInterval <= 0 {
		c.ProgressInterval = d.ProgressInterval
	}
	if c.SubscriberBuffer <= 0 {
		c.SubscriberBuffer = d.SubscriberBuffer
	}
	if c.TreeBuffer <= 0 {
		c.TreeBuffer = d.TreeBuffer
	}
}

// Request asks for one position to be analysed. Options replaces the
// service's default search options when set.
//
// Every analysis of one board geometry shares a score cache, so a value can
// come from a deeper search another client ran earlier. Set
// Options.ExactDepth to only reuse entries of the requested depth.
type Request struct {
	Game        models.GameSpec `json:"game"`
	Options     *search.Options `json:"options,omitempty"`
	StreamTree  bool            `json:"streamTree,omitempty"`
	StartPaused bool            `json:"startPaused,omitempty"`
}

// Service owns the analyses running on this instance.
//
// Thread Safety: Safe for concurrent use.
type Service struct {
	cfg      Config
	repo     Repository
	metrics  *metrics.Metrics
	diag     *search.Diagnostics
	logger   zerolog.Logger
	instance string

	mu        sync.RWMutex
	sessions  map[string]*Session
	caches    map[string]*cache.ScoreCache
	seen      map[string][2]int64 // cache counters already reported to metrics
	listeners []Listener
	closed    bool

	wg sync.WaitGroup
}

type Option func(*Service)

// WithRepository persists analyses. Without one they live only in memory.
func WithRepository(r Repository) Option {
	return func(s *Service) { s.repo = r }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithInstance tags persisted analyses with the id of this server.
func WithInstance(id string) Option {
	return func(s *Service) { s.instance = id }
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	cfg.applyDefaults()
	if err := cfg.Search.Validate(); err != nil {
		return nil, fmt.Errorf("default search options: %w", err)
	}
	if err := cfg.Cache.Validate(); err != nil {
		return nil, err
	}
	if cfg.ProgressInterval >= cfg.StaleAfter {
		return nil, fmt.Errorf("progress interval %s must be shorter than stale threshold %s", cfg.ProgressInterval, cfg.StaleAfter)
	}

	s := &Service{
		cfg:      cfg,
		logger:   log.Logger,
		sessions: make(map[string]*Session),
		caches:   make(map[string]*cache.ScoreCache),
		seen:     make(map[string][2]int64),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With().Str("component", "analysis").Logger()
	s.diag = search.NewDiagnostics(s.logger, 0)
	s.diag.OnAnomaly(s.metrics.AnomalySink())
	return s, nil
}

func (s *Service) Config() Config {
	return s.cfg
}

// Diagnostics is shared by every search the service runs.
func (s *Service) Diagnostics() *search.Diagnostics {
	return s.diag
}

// AddListener registers a callback for every event of every analysis.
func (s *Service) AddListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// prepare validates a request and builds its game.
func (s *Service) prepare(req Request) (*tictactoe.Game, search.Options, error) {
	opts := s.cfg.Search
	if req.Options != nil {
		opts = *req.Options
		opts.ApplyDefaults()
	}
	if err := opts.Validate(); err != nil {
		return nil, opts, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if opts.LookAhead > s.cfg.MaxLookAhead {
		return nil, opts, fmt.Errorf("%w: lookAhead %d exceeds the server limit of %d", ErrInvalidRequest, opts.LookAhead, s.cfg.MaxLookAhead)
	}
	g := req.Game
	game, err := tictactoe.FromMoves(g.Rows, g.Cols, g.K, s.cfg.Seed, s.diag, g.Moves)
	if err != nil {
		return nil, opts, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return game, opts, nil
}

func weightsFor(req Request) search.Weights {
	return tictactoe.DefaultWeights(req.Game.K)
}

// cacheFor returns the score cache shared by games of one geometry.
func (s *Service) cacheFor(geometry string) (*cache.ScoreCache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.caches[geometry]; ok {
		return c, nil
	}
	c, err := cache.New(s.cfg.Cache)
	if err != nil {
		return nil, err
	}
	c.OnCollision(func(key zobrist.Key, stored, fresh cache.Entry) {
		s.logger.Warn().
			Str("geometry", geometry).
			Stringer("key", key).
			Int("stored", stored.Score).
			Int("fresh", fresh.Score).
			Str("position", fresh.Signature).
			Msg("score cache collision")
	})
	s.caches[geometry] = c
	return c, nil
}

// Start validates req and begins searching it in the background.
func (s *Service) Start(clientID string, req Request) (models.Analysis, error) {
	game, opts, err := s.prepare(req)
	if err != nil {
		return models.Analysis{}, err
	}
	sc, err := s.cacheFor(req.Game.GeometryKey())
	if err != nil {
		return models.Analysis{}, err
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	sess := &Session{
		id:      id,
		game:    game,
		weights: weightsFor(req),
		cache:   sc,
		cancel:  cancel,
		done:    make(chan struct{}),
		subs:    make(map[int]chan Event),
		buffer:  s.cfg.SubscriberBuffer,
		doc: models.Analysis{
			AnalysisID: id,
			ClientID:   clientID,
			Instance:   s.instance,
			Game:       req.Game,
			Options:    opts,
			Status:     models.AnalysisRunning,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
	}
	sess.doc.Game.Moves = slices.Clone(req.Game.Moves)

	searcherOpts := []search.SearcherOption{
		search.WithCache(sc),
		search.WithDiagnostics(s.diag),
		search.WithLogger(s.logger.With().Str("analysis", id).Logger()),
	}
	if req.StreamTree {
		sess.observer = search.NewChannelObserver(s.cfg.TreeBuffer)
		searcherOpts = append(searcherOpts, search.WithObserver(sess.observer))
	}
	sess.searcher, err = search.NewSearcher(game.Searchable, opts, searcherOpts...)
	if err != nil {
		cancel()
		return models.Analysis{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if req.StartPaused {
		sess.searcher.PauseController().Pause()
		sess.doc.Status = models.AnalysisPaused
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return models.Analysis{}, ErrShuttingDown
	}
	s.sessions[id] = sess
	s.wg.Add(1)
	s.mu.Unlock()

	snap := sess.Snapshot()
	s.persist(snap)
	s.metrics.AnalysisStarted()
	s.logger.Info().
		Str("analysis", id).
		Str("client", clientID).
		Str("geometry", req.Game.GeometryKey()).
		Int("moves", len(req.Game.Moves)).
		Str("strategy", string(opts.Strategy)).
		Int("lookAhead", opts.LookAhead).
		Msg("analysis started")

	go s.run(ctx, sess)
	return snap, nil
}

func (s *Service) run(ctx context.Context, sess *Session) {
	defer s.wg.Done()
	defer s.metrics.AnalysisFinished()
	defer close(sess.done)
	defer sess.cancel()

	pumpDone := make(chan struct{})
	if sess.observer != nil {
		go func() {
			defer close(pumpDone)
			for ev := range sess.observer.Events() {
				tree := ev
				s.emit(sess, Event{Type: EventTree, AnalysisID: sess.id, Tree: &tree})
			}
		}()
	} else {
		close(pumpDone)
	}

	stopProgress := make(chan struct{})
	progressDone := make(chan struct{})
	go s.reportProgress(sess, stopProgress, progressDone)

	res, err := sess.searcher.BestMove(ctx, sess.game.Searchable.LastMove(), sess.weights)

	close(stopProgress)
	<-progressDone
	if sess.observer != nil {
		sess.observer.Close()
		<-pumpDone
		if n := sess.observer.Dropped(); n > 0 {
			s.logger.Debug().Str("analysis", sess.id).Int64("dropped", n).Msg("tree events dropped")
		}
	}

	s.metrics.ObserveSearch(sess.searcher.Kind(), res, err)
	doc := sess.finish(res, err)
	s.persist(doc)
	s.emit(sess, resultEvent(doc))
	sess.closeSubscribers()

	ev := s.logger.Info()
	if err != nil {
		ev = s.logger.Error().Err(err)
	}
	ev.Str("analysis", sess.id).
		Str("status", string(doc.Status)).
		Stringer("best", doc.BestMove).
		Int("value", doc.Value).
		Int64("moves", doc.MovesConsidered).
		Int64("elapsedMs", doc.ElapsedMs).
		Msg("analysis finished")
}

// reportProgress emits progress events and refreshes the persisted
// document, which doubles as the heartbeat the reaper looks for.
func (s *Service) reportProgress(sess *Session, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.cfg.ProgressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			sess.mu.Lock()
			sess.doc.UpdatedAt = time.Now()
			doc := sess.snapshotLocked()
			sess.mu.Unlock()

			s.persist(doc)
			s.emit(sess, Event{
				Type:            EventProgress,
				AnalysisID:      sess.id,
				Status:          doc.Status,
				PercentDone:     doc.PercentDone,
				MovesConsidered: doc.MovesConsidered,
			})
		}
	}
}

func (s *Service) emit(sess *Session, ev Event) {
	sess.publish(ev)
	s.mu.RLock()
	listeners := s.listeners
	s.mu.RUnlock()
	for _, l := range listeners {
		l(ev)
	}
}

func (s *Service) persist(doc models.Analysis) {
	if s.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.repo.Save(ctx, &doc); err != nil {
		s.logger.Warn().Err(err).Str("analysis", doc.AnalysisID).Msg("failed to persist analysis")
	}
}

func (s *Service) session(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Get returns a local session's live state, falling back to the
// repository for analyses that ran elsewhere or were reaped.
func (s *Service) Get(ctx context.Context, id string) (models.Analysis, error) {
	if sess, ok := s.session(id); ok {
		return sess.Snapshot(), nil
	}
	if s.repo == nil {
		return models.Analysis{}, ErrNotFound
	}
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return models.Analysis{}, err
	}
	return *doc, nil
}

// List returns the sessions held by this instance, oldest first.
func (s *Service) List() []models.Analysis {
	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	out := make([]models.Analysis, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sess.Snapshot())
	}
	slices.SortFunc(out, func(a, b models.Analysis) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out
}

// Pause suspends a running analysis at its next move boundary.
func (s *Service) Pause(id string) (models.Analysis, error) {
	sess, ok := s.session(id)
	if !ok {
		return models.Analysis{}, ErrNotFound
	}
	doc, err := sess.transition(models.AnalysisPaused)
	if err != nil {
		return doc, err
	}
	sess.searcher.PauseController().Pause()
	s.persist(doc)
	s.emit(sess, statusEvent(doc))
	s.logger.Info().Str("analysis", id).Msg("analysis paused")
	return doc, nil
}

func (s *Service) Resume(id string) (models.Analysis, error) {
	sess, ok := s.session(id)
	if !ok {
		return models.Analysis{}, ErrNotFound
	}
	doc, err := sess.transition(models.AnalysisRunning)
	if err != nil {
		return doc, err
	}
	sess.searcher.PauseController().ContinueProcessing()
	s.persist(doc)
	s.emit(sess, statusEvent(doc))
	s.logger.Info().Str("analysis", id).Msg("analysis resumed")
	return doc, nil
}

// Cancel stops an analysis, paused or not. The search unwinds and the
// session finishes as cancelled shortly after.
func (s *Service) Cancel(id string) (models.Analysis, error) {
	sess, ok := s.session(id)
	if !ok {
		return models.Analysis{}, ErrNotFound
	}
	doc := sess.Snapshot()
	if doc.Status.Finished() {
		return doc, ErrFinished
	}
	sess.cancel()
	s.logger.Info().Str("analysis", id).Msg("analysis cancel requested")
	return doc, nil
}

// Wait blocks until the analysis finishes or ctx ends.
func (s *Service) Wait(ctx context.Context, id string) (models.Analysis, error) {
	sess, ok := s.session(id)
	if !ok {
		return models.Analysis{}, ErrNotFound
	}
	select {
	case <-sess.Done():
		return sess.Snapshot(), nil
	case <-ctx.Done():
		return sess.Snapshot(), ctx.Err()
	}
}

// Subscribe streams the events of one local analysis. The channel closes
// after the result event; call the returned func to leave early.
func (s *Service) Subscribe(id string) (<-chan Event, func(), error) {
	sess, ok := s.session(id)
	if !ok {
		return nil, nil, ErrNotFound
	}
	ch, unsubscribe := sess.subscribe()
	return ch, unsubscribe, nil
}

// reapFinished forgets sessions that finished before cutoff.
func (s *Service) reapFinished(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		doc := sess.Snapshot()
		if doc.Status.Finished() && doc.CompletedAt != nil && doc.CompletedAt.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Close cancels every running analysis and waits for them to finish.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	for _, sess := range s.sessions {
		sess.cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
