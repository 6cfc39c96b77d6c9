package search

import (
	"fmt"
	"slices"

	"github.com/barrybecker4/applets-sub001/internal/geometry"
)

// Player identifies one side of a two-player game.
type Player int

const (
	NoPlayer Player = iota
	Player1
	Player2
)

// Opponent returns the other player. NoPlayer has no opponent.
func (p Player) Opponent() Player {
	switch p {
	case Player1:
		return Player2
	case Player2:
		return Player1
	}
	return NoPlayer
}

// Sign is +1 for player 1, -1 for player 2 and 0 otherwise.
func (p Player) Sign() int {
	switch p {
	case Player1:
		return 1
	case Player2:
		return -1
	}
	return 0
}

func (p Player) String() string {
	switch p {
	case Player1:
		return "player1"
	case Player2:
		return "player2"
	}
	return "none"
}

// Move is one ply. Value is the generator's static estimate from the
// mover's point of view and drives ordering; InheritedValue is filled in by
// the search and is always from player 1's point of view.
type Move struct {
	To             geometry.Location `json:"to" bson:"to"`
	Player         Player            `json:"player" bson:"player"`
	Piece          int               `json:"piece,omitempty" bson:"piece,omitempty"`
	Value          int               `json:"value" bson:"value"`
	InheritedValue int               `json:"inheritedValue" bson:"inheritedValue"`
	Pass           bool              `json:"pass,omitempty" bson:"pass,omitempty"`
	Resign         bool              `json:"resign,omitempty" bson:"resign,omitempty"`
	Urgent         bool              `json:"urgent,omitempty" bson:"urgent,omitempty"`
	Selected       bool              `json:"selected,omitempty" bson:"selected,omitempty"`
}

// NewMove creates a placement move.
func NewMove(to geometry.Location, player Player, value int) *Move {
	return &Move{To: to, Player: player, Value: value}
}

// NewPassMove creates a pass for the given player.
func NewPassMove(player Player) *Move {
	return &Move{Player: player, Pass: true}
}

// Equal is true for the same destination and mover.
func (m *Move) Equal(other *Move) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.To == other.To && m.Player == other.Player && m.Pass == other.Pass
}

// CompareForSearch orders higher static values first, then by destination.
func (m *Move) CompareForSearch(other *Move) int {
	switch {
	case m.Value > other.Value:
		return -1
	case m.Value < other.Value:
		return 1
	}
	return m.To.Compare(other.To)
}

// Copy returns a shallow copy.
func (m *Move) Copy() *Move {
	c := *m
	return &c
}

func (m *Move) String() string {
	if m == nil {
		return "<none>"
	}
	switch {
	case m.Pass:
		return fmt.Sprintf("%s pass", m.Player)
	case m.Resign:
		return fmt.Sprintf("%s resigns", m.Player)
	}
	return fmt.Sprintf("%s %s v=%d iv=%d", m.Player, m.To, m.Value, m.InheritedValue)
}

// MoveList is an ordered sequence of moves.
type MoveList []*Move

// Sort orders the list for search. Equal moves keep their order.
func (l MoveList) Sort() {
	slices.SortStableFunc(l, func(a, b *Move) int { return a.CompareForSearch(b) })
}

// Last returns the final move or nil.
func (l MoveList) Last() *Move {
	if len(l) == 0 {
		return nil
	}
	return l[len(l)-1]
}

// Clone copies the slice and every move in it.
func (l MoveList) Clone() MoveList {
	out := make(MoveList, len(l))
	for i, m := range l {
		out[i] = m.Copy()
	}
	return out
}

// Contains reports whether an equal move is in the list.
func (l MoveList) Contains(m *Move) bool {
	return slices.ContainsFunc(l, m.Equal)
}
