// Package zobrist maintains incremental 64-bit position fingerprints.
//
// A key is the XOR of one random constant per occupied (location, state)
// pair, so applying the same transform twice restores the previous key.
package zobrist

import (
	"fmt"

	"github.com/barrybecker4/applets-sub001/internal/geometry"
)

// Key is an opaque position fingerprint. The empty position is 0.
type Key uint64

func (k Key) String() string {
	return fmt.Sprintf("%016x", uint64(k))
}

// Hash holds the constant table for one board geometry and the current key.
// It is not safe for concurrent use; a search owns its hash exclusively.
type Hash struct {
	rows      int
	cols      int
	numStates int
	table     []Key
	pass      Key
	key       Key
}

// New seeds a table with one constant per (location, state index) pair.
// The same seed always produces the same table.
func New(rows, cols, numStates int, seed int64) *Hash {
	if rows <= 0 || cols <= 0 || numStates <= 0 {
		panic(fmt.Sprintf("zobrist: invalid geometry %dx%d with %d states", rows, cols, numStates))
	}
	rng := splitmix64{state: uint64(seed)}
	h := &Hash{
		rows:      rows,
		cols:      cols,
		numStates: numStates,
		table:     make([]Key, rows*cols*numStates),
	}
	for i := range h.table {
		h.table[i] = Key(rng.next())
	}
	h.pass = Key(rng.next())
	return h
}

// Key returns the current fingerprint.
func (h *Hash) Key() Key {
	return h.key
}

// ApplyMove XORs in the constant for the location/state pair. Applying it
// a second time undoes it.
func (h *Hash) ApplyMove(loc geometry.Location, stateIndex int) {
	h.key ^= h.Constant(loc, stateIndex)
}

// ApplyPassingMove XORs in the reserved pass constant.
func (h *Hash) ApplyPassingMove() {
	h.key ^= h.pass
}

// Constant returns the table value for a location/state pair.
func (h *Hash) Constant(loc geometry.Location, stateIndex int) Key {
	if !loc.InBounds(h.rows, h.cols) || stateIndex < 0 || stateIndex >= h.numStates {
		panic(fmt.Sprintf("zobrist: %s state %d outside %dx%d/%d table", loc, stateIndex, h.rows, h.cols, h.numStates))
	}
	return h.table[loc.Index(h.cols)*h.numStates+stateIndex]
}

// Reset returns the key to the empty position.
func (h *Hash) Reset() {
	h.key = 0
}

// Clone shares the immutable constant table and copies the current key.
func (h *Hash) Clone() *Hash {
	c := *h
	return &c
}

// splitmix64 is a tiny deterministic generator; good avalanche makes it a
// reasonable source of table constants.
type splitmix64 struct {
	state uint64
}

func (s *splitmix64) next() uint64 {
	s.state += 0x9e3779b97f4a7c15
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
