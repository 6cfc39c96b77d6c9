package analysis

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/barrybecker4/applets-sub001/internal/search"
)

// BatchResult is the outcome for one position of a batch. A position that
// could not be searched has Error set and no move.
type BatchResult struct {
	Index           int          `json:"index"`
	BestMove        *search.Move `json:"bestMove,omitempty"`
	Value           int          `json:"value"`
	MovesConsidered int64        `json:"movesConsidered"`
	ElapsedMs       int64        `json:"elapsedMs"`
	Error           string       `json:"error,omitempty"`
}

// RunBatch searches every request synchronously, at most BatchWorkers at
// a time. Bad positions are reported per item; cancelling ctx abandons the
// whole batch.
func (s *Service) RunBatch(ctx context.Context, reqs []Request) ([]BatchResult, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrInvalidRequest)
	}
	if len(reqs) > s.cfg.MaxBatch {
		return nil, fmt.Errorf("%w: batch of %d exceeds the limit of %d", ErrInvalidRequest, len(reqs), s.cfg.MaxBatch)
	}

	results := make([]BatchResult, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.BatchWorkers)
	for i, req := range reqs {
		g.Go(func() error {
			r, err := s.evaluate(gctx, req)
			r.Index = i
			results[i] = r
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.logger.Info().Int("positions", len(reqs)).Msg("batch analysed")
	return results, nil
}

// evaluate returns an error only when the batch should stop.
func (s *Service) evaluate(ctx context.Context, req Request) (BatchResult, error) {
	if err := ctx.Err(); err != nil {
		return BatchResult{}, err
	}
	game, opts, err := s.prepare(req)
	if err != nil {
		return BatchResult{Error: err.Error()}, nil
	}
	sc, err := s.cacheFor(req.Game.GeometryKey())
	if err != nil {
		return BatchResult{}, err
	}
	searcher, err := search.NewSearcher(game.Searchable, opts,
		search.WithCache(sc),
		search.WithDiagnostics(s.diag),
		search.WithLogger(s.logger))
	if err != nil {
		return BatchResult{Error: err.Error()}, nil
	}

	res, err := searcher.BestMove(ctx, game.Searchable.LastMove(), weightsFor(req))
	s.metrics.ObserveSearch(searcher.Kind(), res, err)
	if err != nil {
		if errors.Is(err, search.ErrStateMismatch) {
			return BatchResult{Error: err.Error()}, nil
		}
		return BatchResult{}, err
	}
	if res.Interrupted {
		return BatchResult{}, ctx.Err()
	}
	return BatchResult{
		BestMove:        res.Move,
		Value:           res.Value,
		MovesConsidered: res.MovesConsidered,
		ElapsedMs:       res.Elapsed.Milliseconds(),
	}, nil
}
