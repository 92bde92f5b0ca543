package membership

import (
	"fmt"
	"math/bits"

	"github.com/cognicore/simhist/pkg/simhist/internalerr"
)

const wordBits = 64

// DenseMatrix is a rows x width bit matrix, one row per document.
// It is only ever built for a single chunk of documents.
type DenseMatrix struct {
	rows  int
	width int
	words int // uint64 words per row
	bits  []uint64
}

// DenseBytes returns the memory a rows x width matrix occupies.
func DenseBytes(rows, width int) int64 {
	return int64(rows) * int64(wordsFor(width)) * 8
}

func wordsFor(width int) int {
	return (width + wordBits - 1) / wordBits
}

// Densify lays out records as the rows of a dense matrix of the given width.
func Densify(records []Record, width int) (*DenseMatrix, error) {
	if width < 0 {
		return nil, fmt.Errorf("densify: negative width %d: %w", width, internalerr.ErrInvalidInput)
	}
	m := &DenseMatrix{
		rows:  len(records),
		width: width,
		words: wordsFor(width),
	}
	m.bits = make([]uint64, m.rows*m.words)
	for row, rec := range records {
		if top, ok := rec.Max(); ok && int(top) >= width {
			return nil, fmt.Errorf("densify row %d: id %d outside vocabulary of %d: %w", row, top, width, internalerr.ErrInvalidInput)
		}
		base := row * m.words
		if rec.ids == nil {
			continue
		}
		it := rec.ids.Iterator()
		for it.HasNext() {
			id := it.Next()
			m.bits[base+int(id/wordBits)] |= 1 << (id % wordBits)
		}
	}
	return m, nil
}

// Rows returns the number of documents in the matrix.
func (m *DenseMatrix) Rows() int { return m.rows }

// Width returns the vocabulary size the matrix was built for.
func (m *DenseMatrix) Width() int { return m.width }

// Bytes returns the size of the backing storage.
func (m *DenseMatrix) Bytes() int64 { return int64(len(m.bits)) * 8 }

// Has reports whether row contains id.
func (m *DenseMatrix) Has(row int, id uint32) bool {
	if int(id) >= m.width {
		return false
	}
	return m.bits[row*m.words+int(id/wordBits)]&(1<<(id%wordBits)) != 0
}

func (m *DenseMatrix) row(i int) []uint64 {
	return m.bits[i*m.words : (i+1)*m.words]
}

// PairCounts returns the union and intersection sizes of row i of m and
// row j of other. Both matrices must share the same width.
func (m *DenseMatrix) PairCounts(i int, other *DenseMatrix, j int) (union, intersection int) {
	a, b := m.row(i), other.row(j)
	for w := range a {
		union += bits.OnesCount64(a[w] | b[w])
		intersection += bits.OnesCount64(a[w] & b[w])
	}
	return union, intersection
}

// UnionCount returns the size of the union of row i of m and row j of other.
func (m *DenseMatrix) UnionCount(i int, other *DenseMatrix, j int) int {
	u, _ := m.PairCounts(i, other, j)
	return u
}

// IntersectionCount returns the size of the intersection of row i of m and row j of other.
func (m *DenseMatrix) IntersectionCount(i int, other *DenseMatrix, j int) int {
	_, n := m.PairCounts(i, other, j)
	return n
}
