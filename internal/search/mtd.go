package search

// mtd converges on the negamax value with zero-width passes, starting
// from the static value of the position. Each pass either raises the
// lower bound or lowers the upper bound. The best move comes from the
// last pass that failed high, since only those prove a move reaches the
// bound.
func (s *Searcher) mtd(lastMove *Move, depth, quiescentDepth int, root *TreeNode) (int, *Move) {
	sign := ToMove(lastMove).Sign()
	g := sign * s.searchable.Worth(lastMove, s.weights)
	g = max(min(g, WinningValue), -WinningValue)

	lower, upper := -Infinity, Infinity
	var best *Move
	passes := 0
	for lower < upper {
		beta := g
		if g == lower {
			beta = g + 1
		}
		v, m := s.negamax(lastMove, depth, quiescentDepth, Window{Alpha: beta - 1, Beta: beta}, 0, root)
		if s.interrupted {
			break
		}
		passes++
		g = v
		if m == nil {
			// terminal or nothing to play: the value is exact
			break
		}
		if g < beta {
			upper = g
		} else {
			lower = g
			best = m
		}
	}
	s.logger.Debug().Int("passes", passes).Int("value", g).Msg("mtd converged")
	return g, best
}
