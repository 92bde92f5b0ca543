package histogram

import (
	"fmt"
	"math"

	"github.com/cognicore/simhist/pkg/simhist/internalerr"
)

// Histogram counts document pairs per similarity bin. Bin i covers
// similarities that round to i/steps, so a histogram over steps bins has
// steps+1 counters and the last one holds exact matches.
type Histogram []int64

// New returns an all-zero histogram for the given number of steps.
// It panics if steps is not positive; callers validate their configuration
// first.
func New(steps int) Histogram {
	if steps < 1 {
		panic(fmt.Sprintf("histogram: steps must be positive, got %d", steps))
	}
	return make(Histogram, steps+1)
}

// Steps returns the number of steps the histogram was created for.
func (h Histogram) Steps() int {
	return len(h) - 1
}

// Bin maps a similarity in [0,1] to its bin, rounding half away from zero.
func Bin(similarity float64, steps int) int {
	if math.IsNaN(similarity) || similarity <= 0 {
		return 0
	}
	if similarity >= 1 {
		return steps
	}
	return int(math.Round(similarity * float64(steps)))
}

// BinCounts maps an intersection/union pair to its bin. A zero union (two
// empty documents) lands in bin 0.
func BinCounts(intersection, union, steps int) int {
	if union == 0 {
		return 0
	}
	return Bin(float64(intersection)/float64(union), steps)
}

// Observe records one pair with the given similarity.
func (h Histogram) Observe(similarity float64) {
	h[Bin(similarity, h.Steps())]++
}

// Add sums other into h elementwise.
func (h Histogram) Add(other Histogram) error {
	if len(h) != len(other) {
		return fmt.Errorf("add histogram with %d bins to %d bins: %w", len(other), len(h), internalerr.ErrInvalidInput)
	}
	for i, c := range other {
		h[i] += c
	}
	return nil
}

// Total returns the number of pairs counted.
func (h Histogram) Total() int64 {
	var total int64
	for _, c := range h {
		total += c
	}
	return total
}

// Max returns the largest bin count.
func (h Histogram) Max() int64 {
	var m int64
	for _, c := range h {
		if c > m {
			m = c
		}
	}
	return m
}

// Clone returns an independent copy. A nil histogram stays nil.
func (h Histogram) Clone() Histogram {
	if h == nil {
		return nil
	}
	out := make(Histogram, len(h))
	copy(out, h)
	return out
}

// CorrectSelf turns the histogram of a full n x n self comparison into a
// histogram of distinct unordered pairs: the n diagonal self matches are
// removed from the last bin and the mirrored counts halved.
func (h Histogram) CorrectSelf(n int) error {
	last := len(h) - 1
	if last < 0 {
		return fmt.Errorf("correct self histogram: no bins: %w", internalerr.ErrInvalidInput)
	}
	if h[last] < int64(n) {
		return fmt.Errorf("correct self histogram: %d exact matches for %d documents: %w", h[last], n, internalerr.ErrInvalidInput)
	}
	h[last] -= int64(n)
	for i, c := range h {
		if c%2 != 0 {
			return fmt.Errorf("correct self histogram: odd count %d in bin %d: %w", c, i, internalerr.ErrInvalidInput)
		}
		h[i] = c / 2
	}
	return nil
}

// Normalize scales every bin by the largest bin so the maximum becomes 1.
func (h Histogram) Normalize() ([]float64, error) {
	m := h.Max()
	if m == 0 {
		return nil, internalerr.ErrEmptyHistogram
	}
	out := make([]float64, len(h))
	for i, c := range h {
		out[i] = float64(c) / float64(m)
	}
	return out, nil
}
