package session

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/cognicore/simhist/pkg/simhist/config"
	"github.com/cognicore/simhist/pkg/simhist/histogram"
	"github.com/cognicore/simhist/pkg/simhist/internalerr"
	"github.com/cognicore/simhist/pkg/simhist/jaccard"
	"github.com/cognicore/simhist/pkg/simhist/membership"
	"github.com/cognicore/simhist/pkg/simhist/report"
	"github.com/cognicore/simhist/pkg/simhist/sampling"
	"github.com/cognicore/simhist/pkg/simhist/vocab"
)

// Report labels, in output order.
const (
	NameSelfA = "a"
	NameSelfB = "b"
	NameCross = "ab"
)

// Session compares two corpora. It owns the vocabulary while documents are
// encoded and the three result histograms afterwards.
type Session struct {
	cfg      config.Engine
	docsA    []string
	docsB    []string
	recsA    []membership.Record
	recsB    []membership.Record
	width    int
	prepared bool
	logger   *slog.Logger
	observer sampling.Observer
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithObserver attaches a round observer, e.g. metrics.
func WithObserver(o sampling.Observer) Option {
	return func(s *Session) { s.observer = o }
}

// New validates cfg and creates a session. No work is done until Prepare or Run.
func New(cfg config.Engine, docsA, docsB []string, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		cfg:    cfg,
		docsA:  docsA,
		docsB:  docsB,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Prepare interns both corpora, A first, and encodes every document into a
// membership record. The vocabulary and raw documents are released
// afterwards; only the vocabulary size is kept.
func (s *Session) Prepare() error {
	if s.prepared {
		return nil
	}
	in, err := vocab.NewWithLimit(s.cfg.VocabularyLimit)
	if err != nil {
		return err
	}
	enc := membership.NewEncoder(in)

	if s.recsA, err = enc.EncodeAll(s.docsA); err != nil {
		return fmt.Errorf("encode corpus a: %w", err)
	}
	if s.recsB, err = enc.EncodeAll(s.docsB); err != nil {
		return fmt.Errorf("encode corpus b: %w", err)
	}
	s.width = enc.Width()
	s.docsA, s.docsB = nil, nil
	s.prepared = true

	s.logger.Info("corpora encoded", "docs_a", len(s.recsA), "docs_b", len(s.recsB), "vocabulary", s.width)
	return nil
}

// Width returns the vocabulary size after Prepare.
func (s *Session) Width() int {
	return s.width
}

// Result holds the aggregated histograms of one session.
type Result struct {
	SelfA histogram.Histogram
	SelfB histogram.Histogram
	Cross histogram.Histogram
	Width int
	DocsA int
	DocsB int
}

// Histogram returns the histogram of the given schedule.
func (r Result) Histogram(kind sampling.Kind) histogram.Histogram {
	switch kind {
	case sampling.SelfA:
		return r.SelfA
	case sampling.SelfB:
		return r.SelfB
	case sampling.Cross:
		return r.Cross
	}
	return nil
}

// Report normalizes the three histograms in the order a, b, ab.
func (r Result) Report() (report.Report, error) {
	return report.Build(
		report.Named{Name: NameSelfA, Hist: r.SelfA},
		report.Named{Name: NameSelfB, Hist: r.SelfB},
		report.Named{Name: NameCross, Hist: r.Cross},
	)
}

// Run prepares the session if needed and computes the three histograms.
func (s *Session) Run(ctx context.Context) (Result, error) {
	if err := s.Prepare(); err != nil {
		return Result{}, err
	}
	ev, err := jaccard.New(jaccard.Config{
		ChunkSize:     s.cfg.ChunkSize,
		Steps:         s.cfg.Steps,
		Width:         s.width,
		MaxChunkBytes: s.cfg.MaxChunkBytes,
	})
	if err != nil {
		return Result{}, err
	}
	sched := &sampling.Scheduler{
		Rounds:   s.cfg.Rounds,
		Workers:  s.cfg.Workers,
		Seed:     s.cfg.Seed,
		Observer: s.observer,
		Logger:   s.logger,
	}

	res := Result{Width: s.width, DocsA: len(s.recsA), DocsB: len(s.recsB)}
	if res.SelfA, err = s.self(ctx, ev, sched, sampling.SelfA, s.recsA); err != nil {
		return Result{}, err
	}
	if res.SelfB, err = s.self(ctx, ev, sched, sampling.SelfB, s.recsB); err != nil {
		return Result{}, err
	}
	res.Cross, err = sched.Run(ctx, sampling.Cross, func(_ context.Context, rng *rand.Rand) (histogram.Histogram, error) {
		return ev.Cross(s.recsA, s.recsB, rng)
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (s *Session) self(ctx context.Context, ev *jaccard.Evaluator, sched *sampling.Scheduler, kind sampling.Kind, recs []membership.Record) (histogram.Histogram, error) {
	if s.cfg.SelfMode == config.SelfDiagonal {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h, err := ev.DiagonalSelf(recs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %w", kind, internalerr.ErrRoundFailed, err)
		}
		s.logger.Info("diagonal self comparison complete", "kind", kind.String(), "pairs", h.Total())
		return h, nil
	}
	return sched.Run(ctx, kind, func(_ context.Context, rng *rand.Rand) (histogram.Histogram, error) {
		return ev.Self(recs, rng)
	})
}
