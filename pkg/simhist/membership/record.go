package membership

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// Record is the set of vocabulary ids present in one document.
// Records are immutable once built and may be shared across goroutines.
type Record struct {
	ids *roaring.Bitmap
}

// NewRecord builds a record from ids. Duplicates are collapsed.
func NewRecord(ids ...uint32) Record {
	bm := roaring.BitmapOf(ids...)
	bm.RunOptimize()
	return Record{ids: bm}
}

func (r Record) bitmap() *roaring.Bitmap {
	if r.ids == nil {
		return roaring.New()
	}
	return r.ids
}

// Len returns the number of distinct ids in the record.
func (r Record) Len() int {
	if r.ids == nil {
		return 0
	}
	return int(r.ids.GetCardinality())
}

// Contains reports whether id is a member.
func (r Record) Contains(id uint32) bool {
	return r.ids != nil && r.ids.Contains(id)
}

// IDs returns the member ids in ascending order.
func (r Record) IDs() []uint32 {
	if r.ids == nil {
		return nil
	}
	return r.ids.ToArray()
}

// Max returns the largest id, or false for an empty record.
func (r Record) Max() (uint32, bool) {
	if r.ids == nil || r.ids.IsEmpty() {
		return 0, false
	}
	return r.ids.Maximum(), true
}

// Jaccard returns |a ∩ b| / |a ∪ b|. Two empty records have similarity 0.
func Jaccard(a, b Record) float64 {
	ba, bb := a.bitmap(), b.bitmap()
	union := ba.OrCardinality(bb)
	if union == 0 {
		return 0
	}
	return float64(ba.AndCardinality(bb)) / float64(union)
}
