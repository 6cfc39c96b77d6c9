package tictactoe

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barrybecker4/applets-sub001/internal/cache"
	"github.com/barrybecker4/applets-sub001/internal/geometry"
	"github.com/barrybecker4/applets-sub001/internal/search"
)

func newGame(t *testing.T, moves ...geometry.Location) *Game {
	t.Helper()
	g, err := FromMoves(3, 3, 3, 1, nil, moves)
	require.NoError(t, err)
	return g
}

func TestWinnerAndWorth(t *testing.T) {
	g := newGame(t, loc(0, 0), loc(1, 0), loc(0, 1), loc(1, 1), loc(0, 2))
	assert.Equal(t, search.Player1, g.Winner())
	assert.Equal(t, search.WinningValue, g.Rules.Worth(nil, nil))

	g = newGame(t, loc(0, 0), loc(1, 0), loc(0, 1), loc(1, 1), loc(2, 2), loc(1, 2))
	assert.Equal(t, search.Player2, g.Winner())
	assert.Equal(t, -search.WinningValue, g.Rules.Worth(nil, nil))
}

func TestWorthIsSymmetric(t *testing.T) {
	x := newGame(t, loc(1, 1))
	b, err := NewBoard(3, 3, 3)
	require.NoError(t, err)
	b.MakeMove(search.NewMove(loc(1, 1), search.Player2, 0))
	o := NewRules(b)

	weights := DefaultWeights(3)
	assert.Equal(t, 4, x.Rules.Worth(nil, weights))
	assert.Equal(t, -4, o.Worth(nil, weights))
	assert.Less(t, x.Rules.Worth(nil, weights), search.WinningValue)
}

func TestGenerateMovesOrdersCentreFirst(t *testing.T) {
	g := newGame(t)
	moves := g.Rules.GenerateMoves(nil, DefaultWeights(3))
	require.Len(t, moves, 9)
	moves.Sort()
	assert.Equal(t, loc(1, 1), moves[0].To)
	assert.Equal(t, 4, moves[0].Value)
	// corners sit on three lines, edges on two
	assert.Equal(t, loc(0, 0), moves[1].To)
	assert.Equal(t, 3, moves[1].Value)
	assert.Equal(t, 2, moves[len(moves)-1].Value)
	for _, m := range moves {
		assert.Equal(t, search.Player1, m.Player)
	}
}

func TestGeneratedValuesFavourTheMover(t *testing.T) {
	g := newGame(t, loc(1, 1))
	moves := g.Rules.GenerateMoves(g.Searchable.LastMove(), DefaultWeights(3))
	moves.Sort()
	for _, m := range moves {
		assert.Equal(t, search.Player2, m.Player)
	}
	// a corner reply removes more of X's lines than an edge reply
	assert.Equal(t, 0, moves[0].To.Row%2)
	assert.Equal(t, 0, moves[0].To.Col%2)
}

func TestUrgentMovesBlockAndWin(t *testing.T) {
	g := newGame(t, loc(0, 0), loc(1, 1), loc(0, 1))
	urgent := g.Rules.GenerateUrgentMoves(g.Searchable.LastMove(), nil)
	require.Len(t, urgent, 1)
	assert.Equal(t, loc(0, 2), urgent[0].To)
	assert.Equal(t, search.Player2, urgent[0].Player)
	assert.True(t, urgent[0].Urgent)

	// O plays elsewhere; the same cell is now X's win
	_, err := g.Play(loc(2, 2))
	require.NoError(t, err)
	urgent = g.Rules.GenerateUrgentMoves(g.Searchable.LastMove(), nil)
	var cells []geometry.Location
	for _, m := range urgent {
		cells = append(cells, m.To)
	}
	assert.ElementsMatch(t, []geometry.Location{loc(0, 2)}, cells)
}

func TestThreatMarksMoveUrgent(t *testing.T) {
	g := newGame(t, loc(0, 0), loc(2, 2))
	moves := g.Rules.GenerateMoves(g.Searchable.LastMove(), nil)
	for _, m := range moves {
		if m.To == loc(0, 1) {
			assert.True(t, m.Urgent, "two in a row threatens a win")
		}
		if m.To == loc(1, 2) {
			assert.False(t, m.Urgent)
		}
	}
}

func TestMakeUndoRoundTrip(t *testing.T) {
	positions := [][]geometry.Location{
		nil,
		{loc(1, 1)},
		{loc(1, 1), loc(0, 0), loc(2, 1)},
		{loc(0, 0), loc(1, 1), loc(0, 1), loc(0, 2)},
	}
	for _, pos := range positions {
		g := newGame(t, pos...)
		before := g.Board.Clone()
		key := g.Searchable.HashKey()
		last := g.Searchable.LastMove()

		for _, m := range g.Rules.GenerateMoves(last, nil) {
			g.Searchable.MakeInternalMove(m)
			assert.NotEqual(t, key, g.Searchable.HashKey())
			require.NoError(t, g.Searchable.UndoInternalMove(m))
			assert.True(t, before.Equal(g.Board), "board changed after %s", m)
			assert.Equal(t, key, g.Searchable.HashKey())
			assert.Equal(t, len(pos), g.Searchable.NumMoves())
		}
	}
}

func TestUndoOfWrongMoveIsStateMismatch(t *testing.T) {
	g := newGame(t, loc(1, 1), loc(0, 0))
	err := g.Searchable.UndoInternalMove(search.NewMove(loc(1, 1), search.Player1, 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, search.ErrStateMismatch)

	var mismatch *search.StateMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, loc(0, 0), mismatch.Expected.To)
	assert.Equal(t, 2, g.Searchable.NumMoves(), "nothing was undone")
}

func TestNonAlternatingMoveIsRecordedNotRejected(t *testing.T) {
	diag := search.NewDiagnostics(zerolog.Nop(), 4)
	g, err := New(3, 3, 3, 1, diag)
	require.NoError(t, err)

	g.Searchable.MakeInternalMove(search.NewMove(loc(0, 0), search.Player1, 0))
	g.Searchable.MakeInternalMove(search.NewMove(loc(1, 1), search.Player1, 0))

	assert.Equal(t, int64(1), diag.Count(search.NonAlternatingMove))
	assert.Equal(t, 2, g.Board.NumStones())
	require.Len(t, diag.Recent(), 1)
	assert.Equal(t, search.NonAlternatingMove, diag.Recent()[0].Kind)
}

func TestPlayErrors(t *testing.T) {
	g := newGame(t, loc(1, 1))
	_, err := g.Play(loc(1, 1))
	assert.ErrorIs(t, err, ErrOccupied)

	g = newGame(t, loc(0, 0), loc(1, 0), loc(0, 1), loc(1, 1), loc(0, 2))
	_, err = g.Play(loc(2, 2))
	assert.ErrorIs(t, err, ErrGameOver)

	_, err = FromMoves(3, 3, 3, 1, nil, []geometry.Location{loc(0, 0), loc(0, 0)})
	assert.ErrorIs(t, err, ErrOccupied)
}

func TestTerminalSentinel(t *testing.T) {
	won := newGame(t, loc(0, 0), loc(1, 0), loc(0, 1), loc(1, 1), loc(0, 2))
	assert.True(t, won.Over())
	assert.Equal(t, search.Player1, won.Searchable.Winner())

	s, err := search.NewSearcher(won.Searchable, search.DefaultOptions())
	require.NoError(t, err)
	res, err := s.BestMove(context.Background(), won.Searchable.LastMove(), nil)
	require.NoError(t, err)
	assert.Nil(t, res.Move)
	assert.GreaterOrEqual(t, res.Value, search.WinningValue)

	// X O X / X O O / O X X is full with no line
	drawn := newGame(t, loc(0, 0), loc(0, 1), loc(0, 2), loc(1, 1), loc(1, 0),
		loc(1, 2), loc(2, 1), loc(2, 0), loc(2, 2))
	assert.True(t, drawn.Over())
	assert.Equal(t, search.NoPlayer, drawn.Searchable.Winner())
	res, err = s.BestMove(context.Background(), drawn.Searchable.LastMove(), nil)
	require.NoError(t, err)
	assert.Nil(t, res.Move)
	assert.False(t, search.IsWinning(res.Value))
}

func TestProbingDoneDoesNotRecordWin(t *testing.T) {
	g := newGame(t, loc(0, 0), loc(1, 0), loc(0, 1), loc(1, 1), loc(0, 2))
	assert.True(t, g.Searchable.Done(g.Searchable.LastMove(), false))
	assert.Equal(t, search.NoPlayer, g.Searchable.Winner())
}

func TestEveryStrategyTakesTheWin(t *testing.T) {
	for _, kind := range search.Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			// X to move with two on the top row; O threatens the middle row
			g := newGame(t, loc(0, 0), loc(1, 0), loc(0, 1), loc(1, 1))
			opts := search.DefaultOptions()
			opts.Strategy = kind
			s, err := search.NewSearcher(g.Searchable, opts, search.WithCache(cache.NewUnbounded()))
			require.NoError(t, err)

			res, err := s.BestMove(context.Background(), g.Searchable.LastMove(), DefaultWeights(3))
			require.NoError(t, err)
			require.NotNil(t, res.Move)
			assert.Equal(t, loc(0, 2), res.Move.To)
			assert.Equal(t, search.WinningValue, res.Value)
			assert.Equal(t, 4, g.Searchable.NumMoves(), "board restored")
		})
	}
}

func TestSearchWithoutLastMoveUsesBoard(t *testing.T) {
	g := newGame(t, loc(0, 0), loc(1, 0), loc(0, 1), loc(1, 1))
	assert.False(t, g.Searchable.Done(nil, false), "a live board is not over")

	s, err := search.NewSearcher(g.Searchable, search.DefaultOptions())
	require.NoError(t, err)
	res, err := s.BestMove(context.Background(), nil, DefaultWeights(3))
	require.NoError(t, err)
	require.NotNil(t, res.Move)
	assert.Equal(t, loc(0, 2), res.Move.To)
	assert.Equal(t, search.Player1, res.Move.Player)
	assert.Equal(t, search.WinningValue, res.Value)

	won := newGame(t, loc(0, 0), loc(1, 0), loc(0, 1), loc(1, 1), loc(0, 2))
	assert.True(t, won.Searchable.Done(nil, false))
}

func TestEveryStrategyBlocks(t *testing.T) {
	for _, kind := range search.Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			g := newGame(t, loc(0, 0), loc(1, 1), loc(0, 1))
			opts := search.DefaultOptions()
			opts.Strategy = kind
			opts.LookAhead = 2
			s, err := search.NewSearcher(g.Searchable, opts, search.WithCache(cache.NewUnbounded()))
			require.NoError(t, err)

			res, err := s.BestMove(context.Background(), g.Searchable.LastMove(), DefaultWeights(3))
			require.NoError(t, err)
			require.NotNil(t, res.Move)
			assert.Equal(t, loc(0, 2), res.Move.To)
			assert.Equal(t, search.Player2, res.Move.Player)
		})
	}
}

func TestPerfectPlayIsADraw(t *testing.T) {
	g := newGame(t)
	opts := search.DefaultOptions()
	opts.LookAhead = 9
	s, err := search.NewSearcher(g.Searchable, opts, search.WithCache(cache.NewUnbounded()))
	require.NoError(t, err)

	for !g.Over() {
		res, err := s.BestMove(context.Background(), g.Searchable.LastMove(), DefaultWeights(3))
		require.NoError(t, err)
		require.NotNil(t, res.Move)
		assert.Equal(t, 0, res.Value)
		require.NoError(t, g.Apply(res.Move))
	}
	assert.Equal(t, search.NoPlayer, g.Searchable.Winner())
}
