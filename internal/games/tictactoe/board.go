// Package tictactoe is an m x n, k-in-a-row game used to exercise and
// demonstrate the search engine. Classic tic-tac-toe is 3x3 with k = 3.
package tictactoe

import (
	"errors"
	"fmt"
	"strings"

	"github.com/barrybecker4/applets-sub001/internal/geometry"
	"github.com/barrybecker4/applets-sub001/internal/search"
)

// NumStates is the number of hash states per cell: empty, X, O.
const NumStates = 3

var (
	ErrInvalidGeometry = errors.New("invalid board geometry")
	ErrOccupied        = errors.New("cell is occupied")
	ErrOffBoard        = errors.New("location is off the board")
)

// Board is the physical grid. Player 1 plays X, player 2 plays O.
type Board struct {
	rows   int
	cols   int
	k      int
	stones int
	cells  []search.Player

	// every run of k cells in a row, column or diagonal, and for each cell
	// the indexes of the lines through it
	lines     [][]int
	cellLines [][]int
}

// NewBoard creates an empty rows x cols board won by k in a row.
func NewBoard(rows, cols, k int) (*Board, error) {
	if rows < 1 || cols < 1 || rows*cols > 400 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidGeometry, rows, cols)
	}
	if k < 1 || (k > rows && k > cols) {
		return nil, fmt.Errorf("%w: %d in a row cannot fit on %dx%d", ErrInvalidGeometry, k, rows, cols)
	}
	b := &Board{
		rows:  rows,
		cols:  cols,
		k:     k,
		cells: make([]search.Player, rows*cols),
	}
	b.lines = b.buildLines()
	b.cellLines = make([][]int, rows*cols)
	for li, line := range b.lines {
		for _, cell := range line {
			b.cellLines[cell] = append(b.cellLines[cell], li)
		}
	}
	return b, nil
}

func (b *Board) buildLines() [][]int {
	dirs := [][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}
	var lines [][]int
	for r := 0; r < b.rows; r++ {
		for c := 0; c < b.cols; c++ {
			for _, d := range dirs {
				endR, endC := r+d[0]*(b.k-1), c+d[1]*(b.k-1)
				if !(geometry.Location{Row: endR, Col: endC}).InBounds(b.rows, b.cols) {
					continue
				}
				// a single cell is a line in every direction; keep one
				if b.k == 1 && d != dirs[0] {
					continue
				}
				line := make([]int, b.k)
				for i := range line {
					line[i] = (r+d[0]*i)*b.cols + c + d[1]*i
				}
				lines = append(lines, line)
			}
		}
	}
	return lines
}

func (b *Board) Rows() int { return b.rows }
func (b *Board) Cols() int { return b.cols }
func (b *Board) K() int    { return b.k }

// At returns the owner of loc, or NoPlayer.
func (b *Board) At(loc geometry.Location) search.Player {
	return b.cells[loc.Index(b.cols)]
}

// Check reports why a stone cannot go on loc.
func (b *Board) Check(loc geometry.Location) error {
	if !loc.InBounds(b.rows, b.cols) {
		return fmt.Errorf("%w: %s", ErrOffBoard, loc)
	}
	if b.At(loc) != search.NoPlayer {
		return fmt.Errorf("%w: %s", ErrOccupied, loc)
	}
	return nil
}

func (b *Board) MakeMove(m *search.Move) {
	if m.Pass || m.Resign {
		return
	}
	b.cells[m.To.Index(b.cols)] = m.Player
	b.stones++
}

func (b *Board) UndoMove(m *search.Move) {
	if m.Pass || m.Resign {
		return
	}
	b.cells[m.To.Index(b.cols)] = search.NoPlayer
	b.stones--
}

// StateIndex is 0 for empty, 1 for X and 2 for O.
func (b *Board) StateIndex(loc geometry.Location) int {
	return int(b.At(loc))
}

func (b *Board) MaxNumMoves() int {
	return b.rows * b.cols
}

// NumStones counts occupied cells.
func (b *Board) NumStones() int {
	return b.stones
}

// EmptyCells lists free locations in row-major order.
func (b *Board) EmptyCells() []geometry.Location {
	out := make([]geometry.Location, 0, len(b.cells)-b.stones)
	for i, p := range b.cells {
		if p == search.NoPlayer {
			out = append(out, geometry.Location{Row: i / b.cols, Col: i % b.cols})
		}
	}
	return out
}

// Clone copies the board. Line tables are shared since they never change.
func (b *Board) Clone() *Board {
	c := *b
	c.cells = append([]search.Player(nil), b.cells...)
	return &c
}

// Equal compares geometry and contents.
func (b *Board) Equal(other *Board) bool {
	if b.rows != other.rows || b.cols != other.cols || b.k != other.k || b.stones != other.stones {
		return false
	}
	for i := range b.cells {
		if b.cells[i] != other.cells[i] {
			return false
		}
	}
	return true
}

func (b *Board) String() string {
	var sb strings.Builder
	for r := 0; r < b.rows; r++ {
		if r > 0 {
			sb.WriteByte('\n')
		}
		for c := 0; c < b.cols; c++ {
			sb.WriteByte(symbol(b.cells[r*b.cols+c]))
		}
	}
	return sb.String()
}

func symbol(p search.Player) byte {
	switch p {
	case search.Player1:
		return 'X'
	case search.Player2:
		return 'O'
	}
	return '.'
}
