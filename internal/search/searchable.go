package search

import (
	"github.com/barrybecker4/applets-sub001/internal/geometry"
	"github.com/barrybecker4/applets-sub001/internal/zobrist"
)

// Searchable is everything a strategy needs from a game. Implementations
// are owned by one goroutine for the duration of a search.
type Searchable interface {
	// MakeInternalMove applies m to the board and the position hash.
	MakeInternalMove(m *Move)
	// UndoInternalMove reverses the most recent move. It returns a
	// *StateMismatchError if m is not that move.
	UndoInternalMove(m *Move) error

	GenerateMoves(lastMove *Move, weights Weights) MoveList
	// GenerateUrgentMoves lists the replies that must be examined before a
	// position can be called quiet.
	GenerateUrgentMoves(lastMove *Move, weights Weights) MoveList
	// Worth is a static evaluation from player 1's point of view.
	Worth(lastMove *Move, weights Weights) int
	// Done reports a terminal position. Only when recordWin is set may it
	// update the game's win bookkeeping.
	Done(lastMove *Move, recordWin bool) bool

	HashKey() zobrist.Key
	NumMoves() int
	LastMove() *Move
}

// Board is the physical state of a game.
type Board interface {
	MakeMove(m *Move)
	UndoMove(m *Move)
	// StateIndex encodes what occupies loc for hashing. 0 is empty.
	StateIndex(loc geometry.Location) int
	MaxNumMoves() int
}

// Rules are the game-specific oracles. They read the board that was
// handed to NewBoardSearchable.
type Rules interface {
	GenerateMoves(lastMove *Move, weights Weights) MoveList
	GenerateUrgentMoves(lastMove *Move, weights Weights) MoveList
	Worth(lastMove *Move, weights Weights) int
	// Winner returns NoPlayer while the game is undecided.
	Winner() Player
}

// ToMove returns the player who moves after lastMove.
func ToMove(lastMove *Move) Player {
	if lastMove == nil {
		return Player1
	}
	return lastMove.Player.Opponent()
}
