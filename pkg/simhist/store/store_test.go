package store

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/simhist/pkg/simhist/histogram"
	"github.com/cognicore/simhist/pkg/simhist/sampling"
)

func TestNewIDSortsByTime(t *testing.T) {
	now := time.Now()
	first := NewID(now)
	second := NewID(now)
	later := NewID(now.Add(time.Second))

	assert.Less(t, first, second, "same millisecond ids must stay monotonic")
	assert.Less(t, second, later)

	id, err := ulid.ParseStrict(first)
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(now), id.Time())
}

func TestSetHistogram(t *testing.T) {
	var r Run
	h := histogram.Histogram{1, 2, 3}

	assert.True(t, r.SetHistogram("self_a", h))
	assert.True(t, r.SetHistogram("cross", histogram.Histogram{4}))
	assert.False(t, r.SetHistogram("bogus", h))

	got := r.Histograms()
	assert.Equal(t, h, got["self_a"])
	assert.Nil(t, got["self_b"])
	assert.Equal(t, histogram.Histogram{4}, got["cross"])
}

func TestHistogramsCoverEveryKind(t *testing.T) {
	r := Run{SelfA: histogram.Histogram{1}, SelfB: histogram.Histogram{2}, Cross: histogram.Histogram{3}}
	got := r.Histograms()
	require.Len(t, got, len(sampling.Kinds))
	for i, kind := range sampling.Kinds {
		assert.Equal(t, histogram.Histogram{int64(i + 1)}, got[kind.String()])
	}
}
