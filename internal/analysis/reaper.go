package analysis

import (
	"context"
	"time"
)

// Reaper periodically forgets finished sessions and fails persisted
// analyses whose server stopped sending heartbeats (a crash or restart
// mid-search).
type Reaper struct {
	svc    *Service
	stopCh chan struct{}
	doneCh chan struct{}
}

func NewReaper(svc *Service) *Reaper {
	return &Reaper{
		svc:    svc,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins the periodic loop in a background goroutine.
func (r *Reaper) Start() {
	go r.run()
	r.svc.logger.Info().
		Dur("interval", r.svc.cfg.ReapInterval).
		Dur("ttl", r.svc.cfg.SessionTTL).
		Msg("analysis reaper started")
}

// Stop ends the loop and waits for a pass in progress.
func (r *Reaper) Stop() {
	close(r.stopCh)
	<-r.doneCh
	r.svc.logger.Info().Msg("analysis reaper stopped")
}

func (r *Reaper) run() {
	defer close(r.doneCh)
	ticker := time.NewTicker(r.svc.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.RunPass(time.Now())
		}
	}
}

// RunPass does one round of cleanup as of now.
func (r *Reaper) RunPass(now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if n := r.svc.reapFinished(now.Add(-r.svc.cfg.SessionTTL)); n > 0 {
		r.svc.logger.Debug().Int("sessions", n).Msg("reaped finished analyses")
	}
	r.svc.recordCacheStats()
	r.markAbandoned(ctx, now.Add(-r.svc.cfg.StaleAfter))
}

// RunImmediateCleanup fails analyses left unfinished while no server was
// watching them. Call it on startup before accepting requests.
func (r *Reaper) RunImmediateCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	r.markAbandoned(ctx, time.Now().Add(-r.svc.cfg.StaleAfter))
}

func (r *Reaper) markAbandoned(ctx context.Context, staleBefore time.Time) {
	if r.svc.repo == nil {
		return
	}
	n, err := r.svc.repo.MarkAbandoned(ctx, staleBefore)
	if err != nil {
		r.svc.logger.Warn().Err(err).Msg("abandoned analysis cleanup failed")
		return
	}
	if n > 0 {
		r.svc.logger.Info().Int64("analyses", n).Msg("marked abandoned analyses as failed")
	}
}
