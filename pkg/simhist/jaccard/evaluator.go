package jaccard

import (
	"fmt"
	"math/rand/v2"

	"github.com/cognicore/simhist/pkg/simhist/histogram"
	"github.com/cognicore/simhist/pkg/simhist/internalerr"
	"github.com/cognicore/simhist/pkg/simhist/membership"
)

// Config controls chunking and binning.
type Config struct {
	ChunkSize int // documents per dense chunk
	Steps     int // histogram steps; histograms have Steps+1 bins
	Width     int // vocabulary size the records were encoded against
	// MaxChunkBytes caps the dense footprint of one chunk pair. Zero disables the check.
	MaxChunkBytes int64
}

// Evaluator computes Jaccard histograms over membership records while
// holding at most two dense chunks in memory at a time.
type Evaluator struct {
	cfg Config
}

// New validates cfg and returns an evaluator.
func New(cfg Config) (*Evaluator, error) {
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size %d: %w", cfg.ChunkSize, internalerr.ErrInvalidConfig)
	}
	if cfg.Steps <= 0 {
		return nil, fmt.Errorf("steps %d: %w", cfg.Steps, internalerr.ErrInvalidConfig)
	}
	if cfg.Width < 0 {
		return nil, fmt.Errorf("width %d: %w", cfg.Width, internalerr.ErrInvalidConfig)
	}
	if cfg.MaxChunkBytes < 0 {
		return nil, fmt.Errorf("max chunk bytes %d: %w", cfg.MaxChunkBytes, internalerr.ErrInvalidConfig)
	}
	return &Evaluator{cfg: cfg}, nil
}

// Self estimates the within-corpus distribution from one random bipartition:
// docs are shuffled and the first half is compared against the remainder.
func (e *Evaluator) Self(docs []membership.Record, rng *rand.Rand) (histogram.Histogram, error) {
	shuffled := shuffledCopy(docs, rng)
	middle := len(shuffled) / 2
	return e.Cross(shuffled[:middle], shuffled[middle:], rng)
}

// Cross shuffles both lists and compares them stride by stride: the chunk of
// b at each stride is compared against the chunk of a at the same stride.
func (e *Evaluator) Cross(a, b []membership.Record, rng *rand.Rand) (histogram.Histogram, error) {
	b = shuffledCopy(b, rng)
	a = shuffledCopy(a, rng)

	hist := histogram.New(e.cfg.Steps)
	n := min(len(a), len(b))
	for index := 0; index < n; index += e.cfg.ChunkSize {
		chunkA := a[index:min(index+e.cfg.ChunkSize, len(a))]
		chunkB := b[index:min(index+e.cfg.ChunkSize, len(b))]
		if err := e.compareChunks(hist, chunkA, chunkB); err != nil {
			return nil, fmt.Errorf("stride at %d: %w", index, err)
		}
	}
	return hist, nil
}

// Pairwise compares every record of a against every record of b, chunk by
// chunk, in input order. Each chunk of a is densified once and reused
// against every chunk of b.
func (e *Evaluator) Pairwise(a, b []membership.Record) (histogram.Histogram, error) {
	hist := histogram.New(e.cfg.Steps)
	for ia := 0; ia < len(a); ia += e.cfg.ChunkSize {
		chunkA := a[ia:min(ia+e.cfg.ChunkSize, len(a))]
		if err := e.checkBudget(len(chunkA), min(e.cfg.ChunkSize, len(b))); err != nil {
			return nil, fmt.Errorf("chunk at %d: %w", ia, err)
		}
		matA, err := densify(chunkA, e.cfg.Width)
		if err != nil {
			return nil, fmt.Errorf("chunk at %d: %w", ia, err)
		}
		for ib := 0; ib < len(b); ib += e.cfg.ChunkSize {
			matB, err := densify(b[ib:min(ib+e.cfg.ChunkSize, len(b))], e.cfg.Width)
			if err != nil {
				return nil, fmt.Errorf("chunk pair (%d, %d): %w", ia, ib, err)
			}
			e.countPairs(hist, matA, matB)
		}
	}
	return hist, nil
}

// DiagonalSelf computes the exact within-corpus distribution over all
// C(n,2) unordered pairs by comparing docs with itself and removing the
// diagonal and mirrored duplicates.
func (e *Evaluator) DiagonalSelf(docs []membership.Record) (histogram.Histogram, error) {
	hist, err := e.Pairwise(docs, docs)
	if err != nil {
		return nil, err
	}
	// Empty documents match themselves with zero union and land in bin 0.
	empty := 0
	for _, d := range docs {
		if d.Len() == 0 {
			empty++
		}
	}
	hist[0] -= int64(empty)
	if err := hist.CorrectSelf(len(docs) - empty); err != nil {
		return nil, err
	}
	return hist, nil
}

// densify is replaced in tests to count dense matrix builds.
var densify = membership.Densify

func (e *Evaluator) compareChunks(hist histogram.Histogram, chunkA, chunkB []membership.Record) error {
	if err := e.checkBudget(len(chunkA), len(chunkB)); err != nil {
		return err
	}
	matA, err := densify(chunkA, e.cfg.Width)
	if err != nil {
		return err
	}
	matB, err := densify(chunkB, e.cfg.Width)
	if err != nil {
		return err
	}
	e.countPairs(hist, matA, matB)
	return nil
}

func (e *Evaluator) checkBudget(rowsA, rowsB int) error {
	if e.cfg.MaxChunkBytes <= 0 {
		return nil
	}
	need := membership.DenseBytes(rowsA, e.cfg.Width) + membership.DenseBytes(rowsB, e.cfg.Width)
	if need > e.cfg.MaxChunkBytes {
		return fmt.Errorf("%d bytes for %dx%d documents over %d ids, budget %d: %w",
			need, rowsA, rowsB, e.cfg.Width, e.cfg.MaxChunkBytes, internalerr.ErrChunkTooLarge)
	}
	return nil
}

func (e *Evaluator) countPairs(hist histogram.Histogram, matA, matB *membership.DenseMatrix) {
	for j := 0; j < matB.Rows(); j++ {
		for i := 0; i < matA.Rows(); i++ {
			union, intersection := matA.PairCounts(i, matB, j)
			hist[histogram.BinCounts(intersection, union, e.cfg.Steps)]++
		}
	}
}

func shuffledCopy(docs []membership.Record, rng *rand.Rand) []membership.Record {
	out := make([]membership.Record, len(docs))
	copy(out, docs)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
