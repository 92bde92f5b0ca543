package sampling

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log/slog"
	mrand "math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/simhist/pkg/simhist/histogram"
	"github.com/cognicore/simhist/pkg/simhist/internalerr"
)

// Kind identifies one of the three comparison schedules of a session.
type Kind int

const (
	SelfA Kind = iota
	SelfB
	Cross
)

// Kinds lists the schedules in report order.
var Kinds = []Kind{SelfA, SelfB, Cross}

func (k Kind) String() string {
	switch k {
	case SelfA:
		return "self_a"
	case SelfB:
		return "self_b"
	case Cross:
		return "cross"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// RoundFunc runs one sampling round with a private random source.
type RoundFunc func(ctx context.Context, rng *mrand.Rand) (histogram.Histogram, error)

// Observer is notified around every round. Implementations must be safe
// for concurrent use.
type Observer interface {
	RoundStarted(kind Kind, round int)
	RoundFinished(kind Kind, round int, pairs int64, elapsed time.Duration, err error)
}

// Scheduler runs independent sampling rounds on a bounded number of workers
// and sums their histograms.
type Scheduler struct {
	Rounds  int
	Workers int
	// Seed fixes the random sources of all rounds. When nil a fresh seed is
	// drawn for every Run.
	Seed     *uint64
	Observer Observer
	Logger   *slog.Logger
}

// Run executes s.Rounds rounds of fn for kind. Round i always receives the
// same random stream for a given seed, so the sum does not depend on the
// worker count or completion order. Any failed round fails the whole run.
func (s *Scheduler) Run(ctx context.Context, kind Kind, fn RoundFunc) (histogram.Histogram, error) {
	if s.Rounds <= 0 {
		return nil, fmt.Errorf("rounds %d: %w", s.Rounds, internalerr.ErrInvalidConfig)
	}
	if s.Workers <= 0 {
		return nil, fmt.Errorf("workers %d: %w", s.Workers, internalerr.ErrInvalidConfig)
	}
	seed, err := s.seed()
	if err != nil {
		return nil, err
	}
	logger := s.logger().With("kind", kind.String())

	results := make([]histogram.Histogram, s.Rounds)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Workers)

	for i := 0; i < s.Rounds; i++ {
		round := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if s.Observer != nil {
				s.Observer.RoundStarted(kind, round)
			}
			logger.Debug("round started", "round", round)
			start := time.Now()

			hist, err := fn(gctx, RoundRand(seed, kind, round))

			var pairs int64
			if err == nil {
				pairs = hist.Total()
			}
			if s.Observer != nil {
				s.Observer.RoundFinished(kind, round, pairs, time.Since(start), err)
			}
			if err != nil {
				return fmt.Errorf("%s round %d: %w: %w", kind, round, internalerr.ErrRoundFailed, err)
			}
			logger.Debug("round finished", "round", round, "pairs", pairs, "elapsed", time.Since(start))
			results[round] = hist
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := results[0].Clone()
	for i, h := range results[1:] {
		if err := total.Add(h); err != nil {
			return nil, fmt.Errorf("%s round %d: %w: %w", kind, i+1, internalerr.ErrRoundFailed, err)
		}
	}
	logger.Info("schedule complete", "rounds", s.Rounds, "workers", s.Workers, "pairs", total.Total())
	return total, nil
}

// RoundRand returns the random source of one round.
func RoundRand(seed uint64, kind Kind, round int) *mrand.Rand {
	return mrand.New(mrand.NewPCG(seed, uint64(kind)<<32|uint64(uint32(round))))
}

func (s *Scheduler) seed() (uint64, error) {
	if s.Seed != nil {
		return *s.Seed, nil
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("draw seed: %w", err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (s *Scheduler) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
