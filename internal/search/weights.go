package search

// Weights parameterise a game's evaluation function. The meaning of each
// slot is up to the game; the search only passes them through.
type Weights []float64

// At returns the weight at i, or def when the vector is too short.
func (w Weights) At(i int, def float64) float64 {
	if i < 0 || i >= len(w) {
		return def
	}
	return w[i]
}
