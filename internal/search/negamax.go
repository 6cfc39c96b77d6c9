package search

// negamax scores every node for the side to move, so each ply maximises
// and the window is negated and swapped on the way down.
func (s *Searcher) negamax(lastMove *Move, depth, quiescentDepth int, w Window, ply int, parent *TreeNode) (int, *Move) {
	sign := ToMove(lastMove).Sign()
	if depth == 0 || s.searchable.Done(lastMove, false) {
		if depth == 0 && s.shouldExtend(lastMove, quiescentDepth, ply) {
			return s.quiescentNegamax(lastMove, quiescentDepth, w, ply, parent), nil
		}
		return sign * s.searchable.Worth(lastMove, s.weights), nil
	}

	moves := s.candidates(lastMove, ply)
	if len(moves) == 0 {
		return sign * noMovesValue(lastMove), nil
	}

	best := -Infinity
	var bestMove *Move
	alpha := w.Alpha

	for i, m := range moves {
		if !s.checkpoint() {
			break
		}
		s.movesConsidered.Add(1)

		var v int
		if s.kind == NegaScout && bestMove != nil {
			v = s.scout(m, depth-1, quiescentDepth, alpha, w.Beta, sign, ply, parent, i)
		} else {
			v = s.negamaxChild(m, depth-1, quiescentDepth, Window{Alpha: alpha, Beta: w.Beta}, sign, ply, parent, i)
		}
		if s.interrupted {
			break
		}
		m.InheritedValue = sign * v
		s.finished(ply)

		if v > best {
			best, bestMove = v, m
		}
		if !s.opts.AlphaBeta {
			continue
		}
		alpha = max(alpha, best)
		if alpha >= w.Beta {
			s.prunedFor(sign, moves[i+1:], parent, i+1, best, w.Beta)
			break
		}
	}

	if bestMove != nil {
		bestMove.Selected = true
	}
	return best, bestMove
}

// negamaxChild scores m for the side that plays it. w is that side's
// window; the position after m is searched through its negation.
func (s *Searcher) negamaxChild(m *Move, depth, quiescentDepth int, w Window, sign, ply int, parent *TreeNode, index int) int {
	childWindow := w.NegateAndSwap()
	p1 := s.tryMove(m, depth, quiescentDepth, w.orient(sign), parent, index, func(child *TreeNode) int {
		v, _ := s.negamax(m, depth, quiescentDepth, childWindow, ply+1, child)
		return -sign * v
	})
	return sign * p1
}

// quiescentNegamax is the side-to-move form of quiescentMinimax.
func (s *Searcher) quiescentNegamax(lastMove *Move, quiescentDepth int, w Window, ply int, parent *TreeNode) int {
	sign := ToMove(lastMove).Sign()
	standPat := sign * s.searchable.Worth(lastMove, s.weights)
	alpha := w.Alpha
	if s.opts.AlphaBeta {
		if standPat >= w.Beta {
			return standPat
		}
		alpha = max(alpha, standPat)
	}

	moves := s.urgentCandidates(lastMove)
	best := standPat
	for i, m := range moves {
		if !s.checkpoint() {
			break
		}
		s.movesConsidered.Add(1)
		v := s.negamaxChild(m, 0, quiescentDepth-1, Window{Alpha: alpha, Beta: w.Beta}, sign, ply, parent, i)
		if s.interrupted {
			break
		}
		m.InheritedValue = sign * v

		best = max(best, v)
		if !s.opts.AlphaBeta {
			continue
		}
		alpha = max(alpha, best)
		if alpha >= w.Beta {
			s.prunedFor(sign, moves[i+1:], parent, i+1, best, w.Beta)
			break
		}
	}
	return best
}

// prunedFor reports a negamax cutoff in player 1's terms, so observers see
// the same attributes whichever strategy ran.
func (s *Searcher) prunedFor(sign int, rest MoveList, parent *TreeNode, childIndex, best, beta int) {
	attrs := PruneAttributes{Value: sign * best, Threshold: sign * beta, Type: PruneBeta}
	if sign < 0 {
		attrs.Type = PruneAlpha
	}
	s.notifyPruned(rest, parent, childIndex, attrs)
}
