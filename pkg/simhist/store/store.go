package store

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/simhist/pkg/simhist/histogram"
	"github.com/cognicore/simhist/pkg/simhist/sampling"
)

// Store persists the results of comparison sessions.
type Store interface {
	Close() error

	// SaveRun stores a run and returns its id. An empty Run.ID is assigned.
	SaveRun(ctx context.Context, r Run) (string, error)
	// GetRun returns internalerr.ErrNotFound for unknown ids.
	GetRun(ctx context.Context, id string) (Run, error)
	// ListRuns returns the most recent runs first. limit <= 0 means all.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}

// Run is one stored session result.
type Run struct {
	ID        string
	Name      string
	CreatedAt time.Time

	Steps     int
	ChunkSize int
	Rounds    int
	Workers   int
	Seed      *uint64
	SelfMode  string

	Width int
	DocsA int
	DocsB int

	SelfA histogram.Histogram
	SelfB histogram.Histogram
	Cross histogram.Histogram
}

// Histograms returns the run histograms keyed by schedule name.
func (r Run) Histograms() map[string]histogram.Histogram {
	out := make(map[string]histogram.Histogram, len(sampling.Kinds))
	for _, kind := range sampling.Kinds {
		out[kind.String()] = r.byKind(kind)
	}
	return out
}

func (r Run) byKind(kind sampling.Kind) histogram.Histogram {
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

// SetHistogram assigns the histogram stored under a schedule name.
func (r *Run) SetHistogram(kind string, h histogram.Histogram) bool {
	switch kind {
	case sampling.SelfA.String():
		r.SelfA = h
	case sampling.SelfB.String():
		r.SelfB = h
	case sampling.Cross.String():
		r.Cross = h
	default:
		return false
	}
	return true
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a lexically sortable run id for t.
func NewID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
