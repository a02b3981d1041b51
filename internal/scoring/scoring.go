// Package scoring maps a round outcome to points.
package scoring

import "time"

const (
	// MaxPoints is awarded for a correct answer at zero elapsed time.
	MaxPoints int64 = 1000

	// DecayStep is the elapsed time that costs one point.
	DecayStep = 50 * time.Millisecond
)

// ScoreForRound returns zero for a wrong answer and otherwise MaxPoints
// minus one point per DecayStep elapsed, floored at zero.
func ScoreForRound(correct bool, elapsed time.Duration) int64 {
	if !correct {
		return 0
	}
	if elapsed < 0 {
		elapsed = 0
	}

	points := MaxPoints - int64(elapsed/DecayStep)
	if points < 0 {
		return 0
	}
	return points
}
