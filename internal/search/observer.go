package search

import "sync/atomic"

// PruneType says which bound caused a cutoff.
type PruneType string

const (
	PruneAlpha PruneType = "alpha"
	PruneBeta  PruneType = "beta"
)

// PruneAttributes describe a cutoff.
type PruneAttributes struct {
	Value     int       `json:"value"`
	Threshold int       `json:"threshold"`
	Type      PruneType `json:"type"`
}

// TreeNode describes one frame of the recursion for display. Nodes do not
// link to each other and the searcher drops each one when its frame
// returns; an observer that wants the whole tree builds it from the
// parent passed to NodeAdded.
type TreeNode struct {
	ID         int    `json:"id"`
	Move       *Move  `json:"move,omitempty"`
	Window     Window `json:"window"`
	ChildIndex int    `json:"childIndex"`
	Ply        int    `json:"ply"`
}

// TreeObserver receives the shape of the search as it unfolds. Calls come
// from the searching goroutine.
type TreeObserver interface {
	NodeAdded(parent, child *TreeNode)
	NodesPruned(pruned MoveList, parent *TreeNode, childIndex int, attrs PruneAttributes)
}

// TreeEventType distinguishes events on a ChannelObserver.
type TreeEventType string

const (
	EventNodeAdded   TreeEventType = "node_added"
	EventNodesPruned TreeEventType = "nodes_pruned"
)

// TreeEvent is the message form of a TreeObserver callback.
type TreeEvent struct {
	Type       TreeEventType    `json:"type"`
	ParentID   int              `json:"parentId"`
	NodeID     int              `json:"nodeId,omitempty"`
	Move       *Move            `json:"move,omitempty"`
	Window     Window           `json:"window"`
	Ply        int              `json:"ply"`
	ChildIndex int              `json:"childIndex"`
	Pruned     MoveList         `json:"pruned,omitempty"`
	Prune      *PruneAttributes `json:"prune,omitempty"`
}

// ChannelObserver turns observer callbacks into TreeEvents on a buffered
// channel. When the reader falls behind, events are dropped and counted
// rather than stalling the search.
type ChannelObserver struct {
	events  chan TreeEvent
	dropped atomic.Int64
}

// NewChannelObserver creates an observer with the given buffer size.
func NewChannelObserver(buffer int) *ChannelObserver {
	return &ChannelObserver{events: make(chan TreeEvent, buffer)}
}

// Events is the stream of tree events. It is never closed by the
// observer; call Close once the search has returned.
func (o *ChannelObserver) Events() <-chan TreeEvent {
	return o.events
}

// Close ends the stream. No callbacks may follow.
func (o *ChannelObserver) Close() {
	close(o.events)
}

// Dropped is the number of events discarded because the buffer was full.
func (o *ChannelObserver) Dropped() int64 {
	return o.dropped.Load()
}

func (o *ChannelObserver) NodeAdded(parent, child *TreeNode) {
	ev := TreeEvent{
		Type:       EventNodeAdded,
		NodeID:     child.ID,
		Move:       copyMove(child.Move),
		Window:     child.Window,
		Ply:        child.Ply,
		ChildIndex: child.ChildIndex,
	}
	if parent != nil {
		ev.ParentID = parent.ID
	}
	o.send(ev)
}

func (o *ChannelObserver) NodesPruned(pruned MoveList, parent *TreeNode, childIndex int, attrs PruneAttributes) {
	ev := TreeEvent{
		Type:       EventNodesPruned,
		ChildIndex: childIndex,
		Pruned:     pruned.Clone(),
		Prune:      &attrs,
	}
	if parent != nil {
		ev.ParentID = parent.ID
		ev.Ply = parent.Ply + 1
	}
	o.send(ev)
}

func (o *ChannelObserver) send(ev TreeEvent) {
	select {
	case o.events <- ev:
	default:
		o.dropped.Add(1)
	}
}

func copyMove(m *Move) *Move {
	if m == nil {
		return nil
	}
	return m.Copy()
}
