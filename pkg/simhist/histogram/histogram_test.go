package histogram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/simhist/pkg/simhist/internalerr"
)

func TestNewRejectsNonPositiveSteps(t *testing.T) {
	assert.Panics(t, func() { New(0) })
	assert.Panics(t, func() { New(-3) })
}

func TestCloneKeepsNil(t *testing.T) {
	var h Histogram
	assert.Nil(t, h.Clone())

	src := Histogram{1, 2}
	c := src.Clone()
	c[0] = 9
	assert.Equal(t, Histogram{1, 2}, src)
}

func TestNewLength(t *testing.T) {
	h := New(20)
	assert.Len(t, h, 21)
	assert.Equal(t, 20, h.Steps())
}

func TestBinRoundsToNearest(t *testing.T) {
	cases := []struct {
		sim   float64
		steps int
		want  int
	}{
		{0, 4, 0},
		{1.0 / 3.0, 4, 1},
		{0.5, 4, 2},
		{2.0 / 3.0, 4, 3},
		{1, 4, 4},
		{0.125, 4, 1}, // half rounds away from zero
		{0.375, 4, 2},
		{0.024, 20, 0},
		{0.025, 20, 1},
		{0.999, 20, 20},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Bin(tc.sim, tc.steps), "sim=%v steps=%d", tc.sim, tc.steps)
	}
}

func TestBinCountsZeroUnion(t *testing.T) {
	assert.Equal(t, 0, BinCounts(0, 0, 20))
	assert.Equal(t, 20, BinCounts(3, 3, 20))
	assert.Equal(t, 0, BinCounts(0, 5, 20))
}

func TestAddIsCommutativeAndAssociative(t *testing.T) {
	a := Histogram{1, 2, 3}
	b := Histogram{4, 0, 1}
	c := Histogram{0, 7, 2}

	ab := a.Clone()
	require.NoError(t, ab.Add(b))
	ba := b.Clone()
	require.NoError(t, ba.Add(a))
	assert.Equal(t, ab, ba)

	left := ab.Clone()
	require.NoError(t, left.Add(c))
	bc := b.Clone()
	require.NoError(t, bc.Add(c))
	right := a.Clone()
	require.NoError(t, right.Add(bc))
	assert.Equal(t, left, right)
	assert.Equal(t, a.Total()+b.Total()+c.Total(), left.Total())
}

func TestAddLengthMismatch(t *testing.T) {
	err := New(4).Add(New(5))
	assert.ErrorIs(t, err, internalerr.ErrInvalidInput)
}

func TestCorrectSelf(t *testing.T) {
	// 3 documents: diagonal contributes 3 exact matches, three distinct
	// pairs appear twice each.
	h := Histogram{2, 2, 2 + 3}
	require.NoError(t, h.CorrectSelf(3))
	assert.Equal(t, Histogram{1, 1, 1}, h)
	assert.Equal(t, int64(3), h.Total())

	assert.ErrorIs(t, Histogram{0, 0, 1}.CorrectSelf(2), internalerr.ErrInvalidInput)
	assert.ErrorIs(t, Histogram{}.CorrectSelf(0), internalerr.ErrInvalidInput)
}

func TestNormalize(t *testing.T) {
	h := Histogram{2, 8, 4, 0}
	got, err := h.Normalize()
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 1, 0.5, 0}, got)
}

func TestNormalizeEmpty(t *testing.T) {
	_, err := New(10).Normalize()
	assert.ErrorIs(t, err, internalerr.ErrEmptyHistogram)
}
