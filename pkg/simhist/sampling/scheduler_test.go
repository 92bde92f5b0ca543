package sampling

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/simhist/pkg/simhist/histogram"
	"github.com/cognicore/simhist/pkg/simhist/internalerr"
)

func seedPtr(v uint64) *uint64 { return &v }

// randomRound puts a few pairs into random bins.
func randomRound(_ context.Context, rng *rand.Rand) (histogram.Histogram, error) {
	h := histogram.New(10)
	for i := 0; i < 25; i++ {
		h[rng.IntN(len(h))]++
	}
	return h, nil
}

func TestRunSumsRounds(t *testing.T) {
	s := &Scheduler{Rounds: 7, Workers: 3, Seed: seedPtr(11)}

	total, err := s.Run(context.Background(), SelfA, func(context.Context, *rand.Rand) (histogram.Histogram, error) {
		return histogram.Histogram{1, 2, 0}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, histogram.Histogram{7, 14, 0}, total)
}

func TestRunIndependentOfWorkerCount(t *testing.T) {
	var results []histogram.Histogram
	for _, workers := range []int{1, 2, 8} {
		s := &Scheduler{Rounds: 12, Workers: workers, Seed: seedPtr(42)}
		total, err := s.Run(context.Background(), Cross, randomRound)
		require.NoError(t, err)
		assert.Equal(t, int64(12*25), total.Total())
		results = append(results, total)
	}
	assert.Equal(t, results[0], results[1])
	assert.Equal(t, results[0], results[2])
}

func TestRoundRandDistinctPerRoundAndKind(t *testing.T) {
	a := RoundRand(1, SelfA, 0).Uint64()
	assert.Equal(t, a, RoundRand(1, SelfA, 0).Uint64())
	assert.NotEqual(t, a, RoundRand(1, SelfA, 1).Uint64())
	assert.NotEqual(t, a, RoundRand(1, SelfB, 0).Uint64())
	assert.NotEqual(t, a, RoundRand(2, SelfA, 0).Uint64())
}

func TestRunFailsWhenAnyRoundFails(t *testing.T) {
	boom := errors.New("boom")
	s := &Scheduler{Rounds: 6, Workers: 2, Seed: seedPtr(1)}

	total, err := s.Run(context.Background(), SelfB, func(_ context.Context, rng *rand.Rand) (histogram.Histogram, error) {
		if rng == nil {
			return nil, errors.New("missing rng")
		}
		return nil, boom
	})
	assert.Nil(t, total)
	assert.ErrorIs(t, err, internalerr.ErrRoundFailed)
	assert.ErrorIs(t, err, boom)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	for _, s := range []*Scheduler{
		{Rounds: 0, Workers: 1},
		{Rounds: 1, Workers: 0},
		{Rounds: -3, Workers: 4},
	} {
		_, err := s.Run(context.Background(), SelfA, randomRound)
		assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
	}
}

func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &Scheduler{Rounds: 3, Workers: 1, Seed: seedPtr(3)}
	_, err := s.Run(ctx, SelfA, randomRound)
	assert.ErrorIs(t, err, context.Canceled)
}

type recorder struct {
	mu       sync.Mutex
	started  int
	finished int
	failed   int
	pairs    int64
}

func (r *recorder) RoundStarted(Kind, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *recorder) RoundFinished(_ Kind, _ int, pairs int64, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished++
	r.pairs += pairs
	if err != nil {
		r.failed++
	}
}

func TestRunNotifiesObserver(t *testing.T) {
	rec := &recorder{}
	s := &Scheduler{Rounds: 5, Workers: 4, Seed: seedPtr(9), Observer: rec}

	_, err := s.Run(context.Background(), Cross, randomRound)
	require.NoError(t, err)

	assert.Equal(t, 5, rec.started)
	assert.Equal(t, 5, rec.finished)
	assert.Equal(t, 0, rec.failed)
	assert.Equal(t, int64(5*25), rec.pairs)
}

func TestUnseededRunsStillSum(t *testing.T) {
	s := &Scheduler{Rounds: 4, Workers: 2}
	total, err := s.Run(context.Background(), SelfA, randomRound)
	require.NoError(t, err)
	assert.Equal(t, int64(100), total.Total())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "self_a", SelfA.String())
	assert.Equal(t, "self_b", SelfB.String())
	assert.Equal(t, "cross", Cross.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}
