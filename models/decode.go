package models

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
)

var (
	// ErrEmptyClassSet is returned when no class indices are allowed.
	ErrEmptyClassSet = errors.New("allowed class set is empty")
	// ErrIndexOutOfRange is returned when an allowed index does not address the score vector.
	ErrIndexOutOfRange = errors.New("class index out of range")
	// ErrNoFiniteScore is returned when every allowed score is NaN.
	ErrNoFiniteScore = errors.New("no comparable score among allowed classes")
)

// Candidate is the winner of a masked argmax.
type Candidate struct {
	// Index is the global class index.
	Index int
	// Score is the raw score at Index.
	Score float32
}

// Decode performs a masked argmax: the maximum of scores restricted to the allowed indices.
//
// Only the allowed indices are visited. When several allowed indices share the maximum score
// the lowest index wins, independent of the order of allowed. NaN scores never win.
//
// Arguments:
//   - scores: The raw score vector.
//   - allowed: The class indices that may win.
//
// Returns:
//   - Candidate: The winning index and its unmodified score.
//   - error: ErrEmptyClassSet, ErrIndexOutOfRange or ErrNoFiniteScore.
func Decode(scores []float32, allowed []int) (Candidate, error) {
	if len(allowed) == 0 {
		return Candidate{}, ErrEmptyClassSet
	}
	for _, idx := range allowed {
		if idx < 0 || idx >= len(scores) {
			return Candidate{}, errors.Wrapf(ErrIndexOutOfRange, "index %d, %d scores", idx, len(scores))
		}
	}

	best := Candidate{Index: -1}
	for _, idx := range allowed {
		s := scores[idx]
		if math32.IsNaN(s) {
			continue
		}
		if best.Index < 0 || s > best.Score || (s == best.Score && idx < best.Index) {
			best = Candidate{Index: idx, Score: s}
		}
	}

	if best.Index < 0 {
		return Candidate{}, ErrNoFiniteScore
	}
	return best, nil
}
