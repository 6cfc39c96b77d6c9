package tictactoe

import (
	"errors"
	"fmt"

	"github.com/barrybecker4/applets-sub001/internal/geometry"
	"github.com/barrybecker4/applets-sub001/internal/search"
	"github.com/barrybecker4/applets-sub001/internal/zobrist"
)

var ErrGameOver = errors.New("game is over")

// Game bundles a board with its rules and the searchable the engine
// drives. Moves made through Play go through the searchable so the hash
// and move list stay in step with the board.
type Game struct {
	Board      *Board
	Rules      *Rules
	Searchable *search.BoardSearchable
	hash       *zobrist.Hash
}

// New creates an empty game. The seed fixes the hash constants, so games
// sharing a seed and geometry can share a score cache.
func New(rows, cols, k int, seed int64, diag *search.Diagnostics) (*Game, error) {
	board, err := NewBoard(rows, cols, k)
	if err != nil {
		return nil, err
	}
	rules := NewRules(board)
	hash := zobrist.New(rows, cols, NumStates, seed)
	return &Game{
		Board:      board,
		Rules:      rules,
		Searchable: search.NewBoardSearchable(board, rules, hash, diag),
		hash:       hash,
	}, nil
}

// FromMoves replays alternating moves, X first.
func FromMoves(rows, cols, k int, seed int64, diag *search.Diagnostics, moves []geometry.Location) (*Game, error) {
	g, err := New(rows, cols, k, seed, diag)
	if err != nil {
		return nil, err
	}
	for i, loc := range moves {
		if _, err := g.Play(loc); err != nil {
			return nil, fmt.Errorf("move %d: %w", i+1, err)
		}
	}
	return g, nil
}

// ToMove is the player whose turn it is.
func (g *Game) ToMove() search.Player {
	return search.ToMove(g.Searchable.LastMove())
}

// Play places a stone for the player to move.
func (g *Game) Play(loc geometry.Location) (*search.Move, error) {
	if g.Rules.Winner() != search.NoPlayer || g.Board.NumStones() == g.Board.MaxNumMoves() {
		return nil, ErrGameOver
	}
	if err := g.Board.Check(loc); err != nil {
		return nil, err
	}
	m := g.Rules.newMove(loc, g.ToMove(), DefaultWeights(g.Board.K()))
	g.Searchable.MakeInternalMove(m)
	return m, nil
}

// Apply makes a move chosen by the engine.
func (g *Game) Apply(m *search.Move) error {
	if err := g.Board.Check(m.To); err != nil {
		return err
	}
	g.Searchable.MakeInternalMove(m.Copy())
	return nil
}

// Over reports a finished game and records the winner.
func (g *Game) Over() bool {
	return g.Searchable.Done(g.Searchable.LastMove(), true)
}

func (g *Game) Winner() search.Player {
	return g.Rules.Winner()
}

func (g *Game) Hash() *zobrist.Hash {
	return g.hash
}

func (g *Game) String() string {
	return g.Board.String()
}
