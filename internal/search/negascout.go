package search

// scout tests a later sibling with a zero-width window around alpha. Only a
// move that beats alpha without reaching beta is searched again with the
// full window; a fail high at or above beta is already a cutoff.
func (s *Searcher) scout(m *Move, depth, quiescentDepth, alpha, beta, sign, ply int, parent *TreeNode, index int) int {
	v := s.negamaxChild(m, depth, quiescentDepth, Window{Alpha: alpha, Beta: alpha + 1}, sign, ply, parent, index)
	if s.interrupted || v <= alpha || v >= beta {
		return v
	}
	return s.negamaxChild(m, depth, quiescentDepth, Window{Alpha: alpha, Beta: beta}, sign, ply, parent, index)
}
