package tictactoe

import (
	"math"

	"github.com/barrybecker4/applets-sub001/internal/geometry"
	"github.com/barrybecker4/applets-sub001/internal/search"
)

// Rules generate and evaluate moves on a Board.
type Rules struct {
	board *Board
}

func NewRules(b *Board) *Rules {
	return &Rules{board: b}
}

// DefaultWeights scores an unblocked line holding n stones as 4^(n-1).
func DefaultWeights(k int) search.Weights {
	w := make(search.Weights, max(k-1, 0))
	for i := range w {
		w[i] = math.Pow(4, float64(i))
	}
	return w
}

func lineWeight(weights search.Weights, n int) float64 {
	return weights.At(n-1, math.Pow(4, float64(n-1)))
}

// counts returns how many stones p and the opponent have on a line.
func (r *Rules) counts(line []int, p search.Player) (own, other int) {
	for _, cell := range line {
		switch r.board.cells[cell] {
		case search.NoPlayer:
		case p:
			own++
		default:
			other++
		}
	}
	return own, other
}

func (r *Rules) Winner() search.Player {
	for _, line := range r.board.lines {
		first := r.board.cells[line[0]]
		if first == search.NoPlayer {
			continue
		}
		if own, _ := r.counts(line, first); own == len(line) {
			return first
		}
	}
	return search.NoPlayer
}

// Worth sums the weights of every line only one player can still use.
// Decided games score +-WinningValue; everything else stays strictly
// inside that range.
func (r *Rules) Worth(_ *search.Move, weights search.Weights) int {
	switch r.Winner() {
	case search.Player1:
		return search.WinningValue
	case search.Player2:
		return -search.WinningValue
	}
	score := 0.0
	for _, line := range r.board.lines {
		x, o := r.counts(line, search.Player1)
		switch {
		case x > 0 && o == 0:
			score += lineWeight(weights, x)
		case o > 0 && x == 0:
			score -= lineWeight(weights, o)
		}
	}
	v := int(math.Round(score))
	return max(min(v, search.WinningValue-1), -(search.WinningValue - 1))
}

// GenerateMoves lists a move on every empty cell for the player to move.
func (r *Rules) GenerateMoves(lastMove *search.Move, weights search.Weights) search.MoveList {
	if r.Winner() != search.NoPlayer {
		return nil
	}
	player := search.ToMove(lastMove)
	cells := r.board.EmptyCells()
	moves := make(search.MoveList, 0, len(cells))
	for _, loc := range cells {
		moves = append(moves, r.newMove(loc, player, weights))
	}
	return moves
}

// GenerateUrgentMoves lists the cells that would complete a line for
// either player: wins to take and losses to block.
func (r *Rules) GenerateUrgentMoves(lastMove *search.Move, weights search.Weights) search.MoveList {
	if r.Winner() != search.NoPlayer {
		return nil
	}
	player := search.ToMove(lastMove)
	var moves search.MoveList
	for _, loc := range r.board.EmptyCells() {
		if r.completes(loc, player) || r.completes(loc, player.Opponent()) {
			m := r.newMove(loc, player, weights)
			m.Urgent = true
			moves = append(moves, m)
		}
	}
	return moves
}

// newMove builds a move with its static value from the mover's side. A
// move is urgent when it wins, threatens to win next turn, or blocks such
// a threat.
func (r *Rules) newMove(loc geometry.Location, player search.Player, weights search.Weights) *search.Move {
	m := search.NewMove(loc, player, 0)
	blocks := r.completes(loc, player.Opponent())
	r.board.MakeMove(m)
	m.Value = player.Sign() * r.Worth(m, weights)
	m.Urgent = blocks || r.threatens(loc, player)
	r.board.UndoMove(m)
	return m
}

// completes reports whether a stone for p on the empty cell loc would
// finish one of p's lines.
func (r *Rules) completes(loc geometry.Location, p search.Player) bool {
	for _, li := range r.board.cellLines[loc.Index(r.board.cols)] {
		if own, other := r.counts(r.board.lines[li], p); other == 0 && own == r.board.k-1 {
			return true
		}
	}
	return false
}

// threatens reports whether the stone p just placed on loc leaves p one
// stone short of a line, or has already won.
func (r *Rules) threatens(loc geometry.Location, p search.Player) bool {
	for _, li := range r.board.cellLines[loc.Index(r.board.cols)] {
		if own, other := r.counts(r.board.lines[li], p); other == 0 && own >= r.board.k-1 {
			return true
		}
	}
	return false
}
