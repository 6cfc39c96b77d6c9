package tictactoe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barrybecker4/applets-sub001/internal/cache"
	"github.com/barrybecker4/applets-sub001/internal/geometry"
	"github.com/barrybecker4/applets-sub001/internal/search"
	"github.com/barrybecker4/applets-sub001/internal/zobrist"
)

func loc(r, c int) geometry.Location {
	return geometry.Location{Row: r, Col: c}
}

// uniquenessRun plays every sequence of moves confined to the top-left
// rowMax x colMax corner of a 3x3 board and records each position's score
// in a cache keyed by its hash.
type uniquenessRun struct {
	t      *testing.T
	board  *Board
	hash   *zobrist.Hash
	cache  *cache.ScoreCache
	rowMax int
	colMax int
}

func newUniquenessRun(t *testing.T, rowMax, colMax int) *uniquenessRun {
	board, err := NewBoard(3, 3, 3)
	require.NoError(t, err)
	return &uniquenessRun{
		t:      t,
		board:  board,
		hash:   zobrist.New(3, 3, NumStates, 0),
		cache:  cache.NewUnbounded(),
		rowMax: rowMax,
		colMax: colMax,
	}
}

func (u *uniquenessRun) playAll(depth int) {
	player := search.Player1
	if depth%2 == 1 {
		player = search.Player2
	}
	for r := 0; r < u.rowMax; r++ {
		for c := 0; c < u.colMax; c++ {
			l := loc(r, c)
			if u.board.At(l) != search.NoPlayer {
				continue
			}
			m := search.NewMove(l, player, 0)
			u.board.MakeMove(m)
			u.hash.ApplyMove(l, u.board.StateIndex(l))

			score := u.score()
			if cached, ok := u.cache.Get(u.hash.Key()); ok {
				assert.Equal(u.t, score, cached.Score, "different positions share key %s:\n%s", u.hash.Key(), u.board)
			} else {
				u.cache.Put(u.hash.Key(), cache.Entry{Score: score, Signature: u.board.String()})
			}

			u.playAll(depth + 1)

			u.hash.ApplyMove(l, u.board.StateIndex(l))
			u.board.UndoMove(m)
		}
	}
}

// score depends only on the position, so transpositions must agree.
func (u *uniquenessRun) score() int {
	score := 0
	for r := 0; r < u.rowMax; r++ {
		for c := 0; c < u.colMax; c++ {
			switch u.board.At(loc(r, c)) {
			case search.Player1:
				score += r*3 + c
			case search.Player2:
				score += (r*3 + c) * 10
			}
		}
	}
	return score
}

func TestHashUniquenessOneByTwo(t *testing.T) {
	u := newUniquenessRun(t, 1, 2)
	u.playAll(0)
	assert.Equal(t, 4, u.cache.NumEntries())
	assert.Equal(t, int64(0), u.cache.Hits())
	assert.Equal(t, int64(4), u.cache.Misses())
	assert.Equal(t, zobrist.Key(0), u.hash.Key())
}

func TestHashUniquenessOneByThree(t *testing.T) {
	u := newUniquenessRun(t, 1, 3)
	u.playAll(0)
	assert.Equal(t, 12, u.cache.NumEntries())
	assert.Equal(t, int64(3), u.cache.Hits())
	assert.Equal(t, int64(12), u.cache.Misses())
}

func TestHashUniquenessTwoByTwo(t *testing.T) {
	u := newUniquenessRun(t, 2, 2)
	u.playAll(0)
	// 4 + 12 + 12 + 6 distinct positions; every sequence past the second
	// move revisits one of them
	assert.Equal(t, 34, u.cache.NumEntries())
	assert.Equal(t, int64(30), u.cache.Hits())
}

func TestNewBoardRejectsBadGeometry(t *testing.T) {
	_, err := NewBoard(0, 3, 3)
	assert.ErrorIs(t, err, ErrInvalidGeometry)
	_, err = NewBoard(2, 2, 3)
	assert.ErrorIs(t, err, ErrInvalidGeometry)
	_, err = NewBoard(1, 3, 3)
	assert.NoError(t, err)
}

func TestLinesOnClassicBoard(t *testing.T) {
	b, err := NewBoard(3, 3, 3)
	require.NoError(t, err)
	assert.Len(t, b.lines, 8)
	assert.Len(t, b.cellLines[loc(1, 1).Index(3)], 4)
	assert.Len(t, b.cellLines[loc(0, 1).Index(3)], 2)
}

func TestCheck(t *testing.T) {
	b, err := NewBoard(3, 3, 3)
	require.NoError(t, err)
	b.MakeMove(search.NewMove(loc(0, 0), search.Player1, 0))
	assert.ErrorIs(t, b.Check(loc(0, 0)), ErrOccupied)
	assert.ErrorIs(t, b.Check(loc(3, 0)), ErrOffBoard)
	assert.NoError(t, b.Check(loc(2, 2)))
}

func TestBoardString(t *testing.T) {
	b, err := NewBoard(2, 3, 2)
	require.NoError(t, err)
	b.MakeMove(search.NewMove(loc(0, 1), search.Player1, 0))
	b.MakeMove(search.NewMove(loc(1, 2), search.Player2, 0))
	assert.Equal(t, ".X.\n..O", b.String())
	assert.Len(t, b.EmptyCells(), 4)
}
