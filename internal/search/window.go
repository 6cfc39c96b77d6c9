package search

import "fmt"

const (
	// WinningValue is the magnitude at which a position counts as decided.
	WinningValue = 1024

	// Infinity bounds every value the search can produce, winning values included.
	Infinity = 1 << 24
)

// Window is the (alpha, beta) pair used for pruning.
type Window struct {
	Alpha int `json:"alpha"`
	Beta  int `json:"beta"`
}

// FullWindow spans every reachable value.
func FullWindow() Window {
	return Window{Alpha: -Infinity, Beta: Infinity}
}

// Extent is beta - alpha.
func (w Window) Extent() int {
	return w.Beta - w.Alpha
}

// MidPoint is the value halfway between alpha and beta.
func (w Window) MidPoint() int {
	return w.Alpha + w.Extent()/2
}

// NegateAndSwap flips the window into the opponent's point of view. The
// negated bounds trade places so that alpha stays below beta: the result
// is (-beta, -alpha), not (-alpha, -beta), which would leave an inverted
// window after negation.
func (w Window) NegateAndSwap() Window {
	return Window{Alpha: -w.Beta, Beta: -w.Alpha}
}

// Contains reports whether v lies strictly inside the window.
func (w Window) Contains(v int) bool {
	return v > w.Alpha && v < w.Beta
}

// Crossed is true once no value can fall inside the window.
func (w Window) Crossed() bool {
	return w.Alpha >= w.Beta
}

// IsZero reports an unset window.
func (w Window) IsZero() bool {
	return w.Alpha == 0 && w.Beta == 0
}

func (w Window) String() string {
	return fmt.Sprintf("[%d, %d]", w.Alpha, w.Beta)
}

// orient converts between player 1's view of the window and the view of
// the side whose sign is given. It is its own inverse.
func (w Window) orient(sign int) Window {
	if sign > 0 {
		return w
	}
	return w.NegateAndSwap()
}

// IsWinning reports whether v denotes a decided game.
func IsWinning(v int) bool {
	return v >= WinningValue || v <= -WinningValue
}
