package metrics

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/simhist/pkg/simhist/sampling"
)

func TestRoundAccounting(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.RoundStarted(sampling.Cross, 0)
	m.RoundStarted(sampling.Cross, 1)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.roundsActive.WithLabelValues("cross")))

	m.RoundFinished(sampling.Cross, 0, 40, 10*time.Millisecond, nil)
	m.RoundFinished(sampling.Cross, 1, 0, time.Millisecond, errors.New("boom"))

	assert.Equal(t, 0.0, testutil.ToFloat64(m.roundsActive.WithLabelValues("cross")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.roundsTotal.WithLabelValues("cross", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.roundsTotal.WithLabelValues("cross", "error")))
	assert.Equal(t, 40.0, testutil.ToFloat64(m.pairsTotal.WithLabelValues("cross")))
}

func TestDuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}

func TestWriteText(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	m.RoundStarted(sampling.SelfA, 0)
	m.RoundFinished(sampling.SelfA, 0, 12, time.Millisecond, nil)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, reg))
	out := buf.String()
	assert.Contains(t, out, `simhist_sampling_pairs_evaluated_total{kind="self_a"} 12`)
	assert.Contains(t, out, "simhist_sampling_round_duration_seconds_bucket")
}
