package search

import (
	"fmt"
	"math/rand"

	"github.com/barrybecker4/applets-sub001/internal/geometry"
	"github.com/barrybecker4/applets-sub001/internal/zobrist"
)

// treeNode is a position in a hand-built game tree. value is the static
// worth from player 1's point of view.
type treeNode struct {
	id       int
	value    int
	urgent   bool
	terminal bool
	children []*treeNode
}

// treeSearchable walks a fixed tree. Every node has its own key, so there
// are no transpositions.
type treeSearchable struct {
	root    *treeNode
	path    []*treeNode
	played  MoveList
	makes   int
	undos   int
	tries   int // undo calls, failed ones included
	badUndo *treeNode
}

func newTreeSearchable(root *treeNode) *treeSearchable {
	return &treeSearchable{root: root, path: []*treeNode{root}}
}

func (s *treeSearchable) current() *treeNode {
	return s.path[len(s.path)-1]
}

func (s *treeSearchable) MakeInternalMove(m *Move) {
	s.makes++
	s.path = append(s.path, s.current().children[m.To.Col])
	s.played = append(s.played, m)
}

func (s *treeSearchable) UndoInternalMove(m *Move) error {
	s.tries++
	last := s.played.Last()
	if last == nil || !last.Equal(m) || s.current() == s.badUndo {
		return &StateMismatchError{Expected: last, Got: m}
	}
	s.undos++
	s.path = s.path[:len(s.path)-1]
	s.played = s.played[:len(s.played)-1]
	return nil
}

func (s *treeSearchable) moves(lastMove *Move, urgentOnly bool) MoveList {
	player := ToMove(lastMove)
	var out MoveList
	for i, c := range s.current().children {
		if urgentOnly && !c.urgent {
			continue
		}
		m := NewMove(geometry.Location{Row: len(s.path), Col: i}, player, player.Sign()*c.value)
		m.Urgent = c.urgent
		out = append(out, m)
	}
	return out
}

func (s *treeSearchable) GenerateMoves(lastMove *Move, _ Weights) MoveList {
	return s.moves(lastMove, false)
}

func (s *treeSearchable) GenerateUrgentMoves(lastMove *Move, _ Weights) MoveList {
	return s.moves(lastMove, true)
}

func (s *treeSearchable) Worth(*Move, Weights) int {
	return s.current().value
}

func (s *treeSearchable) Done(*Move, bool) bool {
	return s.current().terminal
}

func (s *treeSearchable) HashKey() zobrist.Key {
	return zobrist.Key(s.current().id)
}

func (s *treeSearchable) NumMoves() int {
	return len(s.played)
}

func (s *treeSearchable) LastMove() *Move {
	return s.played.Last()
}

// builder hands out node ids.
type builder struct {
	next int
}

func (b *builder) leaf(v int) *treeNode {
	b.next++
	return &treeNode{id: b.next, value: v, terminal: true}
}

func (b *builder) node(v int, children ...*treeNode) *treeNode {
	b.next++
	return &treeNode{id: b.next, value: v, children: children}
}

// random builds a tree of the given depth with 1..maxBranch children per
// interior node and values in [-100, 100].
func (b *builder) random(rng *rand.Rand, depth, maxBranch int) *treeNode {
	v := rng.Intn(201) - 100
	if depth == 0 {
		return b.leaf(v)
	}
	n := b.node(v)
	for i := 1 + rng.Intn(maxBranch); i > 0; i-- {
		n.children = append(n.children, b.random(rng, depth-1, maxBranch))
	}
	return n
}

// recordingObserver keeps everything it is told.
type recordingObserver struct {
	added  []*TreeNode
	pruned []prunedCall
}

type prunedCall struct {
	moves      MoveList
	parent     *TreeNode
	childIndex int
	attrs      PruneAttributes
}

func (o *recordingObserver) NodeAdded(_, child *TreeNode) {
	o.added = append(o.added, child)
}

func (o *recordingObserver) NodesPruned(pruned MoveList, parent *TreeNode, childIndex int, attrs PruneAttributes) {
	o.pruned = append(o.pruned, prunedCall{moves: pruned, parent: parent, childIndex: childIndex, attrs: attrs})
}

func (n *treeNode) String() string {
	return fmt.Sprintf("node %d (%d)", n.id, n.value)
}
