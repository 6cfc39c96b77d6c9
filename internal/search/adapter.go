package search

import (
	"fmt"

	"github.com/barrybecker4/applets-sub001/internal/zobrist"
)

// BoardSearchable implements Searchable over a Board and its Rules, keeping
// the position hash and the list of played moves in step with the board.
type BoardSearchable struct {
	board  Board
	rules  Rules
	hash   *zobrist.Hash
	diag   *Diagnostics
	played MoveList
	winner Player
}

// NewBoardSearchable wires a board to its rules. diag may be nil.
func NewBoardSearchable(board Board, rules Rules, hash *zobrist.Hash, diag *Diagnostics) *BoardSearchable {
	return &BoardSearchable{board: board, rules: rules, hash: hash, diag: diag}
}

func (s *BoardSearchable) MakeInternalMove(m *Move) {
	if last := s.played.Last(); last != nil && last.Player == m.Player {
		s.diag.Record(Anomaly{
			Kind:   NonAlternatingMove,
			Detail: fmt.Sprintf("%s moved twice in a row: %s then %s", m.Player, last, m),
			Key:    s.hash.Key(),
		})
	}
	s.board.MakeMove(m)
	s.applyHash(m)
	s.played = append(s.played, m)
}

func (s *BoardSearchable) UndoInternalMove(m *Move) error {
	last := s.played.Last()
	if last == nil || !last.Equal(m) {
		return &StateMismatchError{Expected: last, Got: m}
	}
	// the cell still holds the piece, so the same state index comes back out
	s.applyHash(m)
	s.board.UndoMove(m)
	s.played = s.played[:len(s.played)-1]
	return nil
}

func (s *BoardSearchable) applyHash(m *Move) {
	switch {
	case m.Pass:
		s.hash.ApplyPassingMove()
	case m.Resign:
	default:
		s.hash.ApplyMove(m.To, s.board.StateIndex(m.To))
	}
}

func (s *BoardSearchable) GenerateMoves(lastMove *Move, weights Weights) MoveList {
	return s.rules.GenerateMoves(lastMove, weights)
}

func (s *BoardSearchable) GenerateUrgentMoves(lastMove *Move, weights Weights) MoveList {
	return s.rules.GenerateUrgentMoves(lastMove, weights)
}

func (s *BoardSearchable) Worth(lastMove *Move, weights Weights) int {
	return s.rules.Worth(lastMove, weights)
}

// Done is false before any move is made, true after a resignation, a win,
// or once the board is full. A nil lastMove is judged by the board alone.
func (s *BoardSearchable) Done(lastMove *Move, recordWin bool) bool {
	if len(s.played) == 0 {
		return false
	}
	if lastMove != nil && lastMove.Resign {
		return true
	}
	if w := s.rules.Winner(); w != NoPlayer {
		if recordWin {
			s.winner = w
		}
		return true
	}
	return len(s.played) >= s.board.MaxNumMoves()
}

func (s *BoardSearchable) HashKey() zobrist.Key {
	return s.hash.Key()
}

func (s *BoardSearchable) NumMoves() int {
	return len(s.played)
}

func (s *BoardSearchable) LastMove() *Move {
	return s.played.Last()
}

// Winner is the winner recorded by Done(_, true), or NoPlayer.
func (s *BoardSearchable) Winner() Player {
	return s.winner
}

func (s *BoardSearchable) String() string {
	if st, ok := s.board.(fmt.Stringer); ok {
		return st.String()
	}
	return fmt.Sprintf("%d moves played", len(s.played))
}
