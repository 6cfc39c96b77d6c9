package search

import (
	"context"
	"sync/atomic"
	"time"
)

// PauseController lets another goroutine suspend a running search. The
// search only checks it between moves, never while a move is made.
type PauseController struct {
	paused atomic.Bool
}

func NewPauseController() *PauseController {
	return &PauseController{}
}

func (p *PauseController) Pause() {
	p.paused.Store(true)
}

// ContinueProcessing releases a paused search within one poll interval.
func (p *PauseController) ContinueProcessing() {
	p.paused.Store(false)
}

func (p *PauseController) IsPaused() bool {
	return p != nil && p.paused.Load()
}

// Wait blocks while paused, polling every interval. It returns the
// context's error if the context ends first or was already done.
func (p *PauseController) Wait(ctx context.Context, interval time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.IsPaused() {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for p.IsPaused() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
