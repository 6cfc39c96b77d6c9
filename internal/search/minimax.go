package search

// minimax scores from player 1's point of view. Player 1 maximises and
// raises alpha, player 2 minimises and lowers beta; the window is passed
// down unchanged.
func (s *Searcher) minimax(lastMove *Move, depth, quiescentDepth int, w Window, ply int, parent *TreeNode) (int, *Move) {
	if depth == 0 || s.searchable.Done(lastMove, false) {
		if depth == 0 && s.shouldExtend(lastMove, quiescentDepth, ply) {
			return s.quiescentMinimax(lastMove, quiescentDepth, w, ply, parent), nil
		}
		return s.searchable.Worth(lastMove, s.weights), nil
	}

	moves := s.candidates(lastMove, ply)
	if len(moves) == 0 {
		return noMovesValue(lastMove), nil
	}

	maximizing := ToMove(lastMove) == Player1
	best := Infinity
	if maximizing {
		best = -Infinity
	}
	var bestMove *Move

	for i, m := range moves {
		if !s.checkpoint() {
			break
		}
		s.movesConsidered.Add(1)
		v := s.tryMove(m, depth-1, quiescentDepth, w, parent, i, func(child *TreeNode) int {
			v, _ := s.minimax(m, depth-1, quiescentDepth, w, ply+1, child)
			return v
		})
		if s.interrupted {
			break
		}
		m.InheritedValue = v
		s.finished(ply)

		if (maximizing && v > best) || (!maximizing && v < best) {
			best, bestMove = v, m
		}
		if !s.opts.AlphaBeta {
			continue
		}
		if s.cutoff(&w, best, maximizing, moves[i+1:], parent, i+1) {
			break
		}
	}

	if bestMove != nil {
		bestMove.Selected = true
	}
	return best, bestMove
}

// quiescentMinimax keeps searching urgent replies below the nominal depth.
// The side to move may stand on the static value if nothing urgent helps.
func (s *Searcher) quiescentMinimax(lastMove *Move, quiescentDepth int, w Window, ply int, parent *TreeNode) int {
	standPat := s.searchable.Worth(lastMove, s.weights)
	maximizing := ToMove(lastMove) == Player1
	if s.opts.AlphaBeta {
		if maximizing {
			if standPat >= w.Beta {
				return standPat
			}
			w.Alpha = max(w.Alpha, standPat)
		} else {
			if standPat <= w.Alpha {
				return standPat
			}
			w.Beta = min(w.Beta, standPat)
		}
	}

	moves := s.urgentCandidates(lastMove)
	best := standPat
	for i, m := range moves {
		if !s.checkpoint() {
			break
		}
		s.movesConsidered.Add(1)
		v := s.tryMove(m, 0, quiescentDepth-1, w, parent, i, func(child *TreeNode) int {
			v, _ := s.minimax(m, 0, quiescentDepth-1, w, ply+1, child)
			return v
		})
		if s.interrupted {
			break
		}
		m.InheritedValue = v

		if (maximizing && v > best) || (!maximizing && v < best) {
			best = v
		}
		if s.opts.AlphaBeta && s.cutoff(&w, best, maximizing, moves[i+1:], parent, i+1) {
			break
		}
	}
	return best
}

// cutoff narrows w with best and reports whether the window has closed,
// telling the observer about the siblings that will not be searched.
func (s *Searcher) cutoff(w *Window, best int, maximizing bool, rest MoveList, parent *TreeNode, childIndex int) bool {
	if maximizing {
		w.Alpha = max(w.Alpha, best)
	} else {
		w.Beta = min(w.Beta, best)
	}
	if !w.Crossed() {
		return false
	}
	attrs := PruneAttributes{Value: best, Threshold: w.Beta, Type: PruneBeta}
	if !maximizing {
		attrs = PruneAttributes{Value: best, Threshold: w.Alpha, Type: PruneAlpha}
	}
	s.notifyPruned(rest, parent, childIndex, attrs)
	return true
}
