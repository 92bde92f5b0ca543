package metrics

import (
	"errors"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/cognicore/simhist/pkg/simhist/sampling"
)

// Metrics exposes Prometheus collectors for sampling rounds. It implements
// sampling.Observer.
type Metrics struct {
	roundsActive   *prometheus.GaugeVec
	roundsTotal    *prometheus.CounterVec
	pairsTotal     *prometheus.CounterVec
	roundDurations *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		roundsActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "simhist",
				Subsystem: "sampling",
				Name:      "rounds_active",
				Help:      "Sampling rounds currently executing.",
			},
			[]string{"kind"},
		),
		roundsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "simhist",
				Subsystem: "sampling",
				Name:      "rounds_total",
				Help:      "Sampling rounds finished, by outcome.",
			},
			[]string{"kind", "status"},
		),
		pairsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "simhist",
				Subsystem: "sampling",
				Name:      "pairs_evaluated_total",
				Help:      "Document pairs placed into histograms.",
			},
			[]string{"kind"},
		),
		roundDurations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "simhist",
				Subsystem: "sampling",
				Name:      "round_duration_seconds",
				Help:      "Wall time of one sampling round.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"kind"},
		),
	}
	for _, c := range []prometheus.Collector{m.roundsActive, m.roundsTotal, m.pairsTotal, m.roundDurations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RoundStarted implements sampling.Observer.
func (m *Metrics) RoundStarted(kind sampling.Kind, _ int) {
	m.roundsActive.WithLabelValues(kind.String()).Inc()
}

// RoundFinished implements sampling.Observer.
func (m *Metrics) RoundFinished(kind sampling.Kind, _ int, pairs int64, elapsed time.Duration, err error) {
	k := kind.String()
	m.roundsActive.WithLabelValues(k).Dec()
	m.roundDurations.WithLabelValues(k).Observe(elapsed.Seconds())
	if err != nil {
		m.roundsTotal.WithLabelValues(k, "error").Inc()
		return
	}
	m.roundsTotal.WithLabelValues(k, "ok").Inc()
	m.pairsTotal.WithLabelValues(k).Add(float64(pairs))
}

// WriteText dumps every metric family of g in the Prometheus text format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	var errs []error
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
