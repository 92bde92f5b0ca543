package vocab

import (
	"fmt"
	"math"

	"github.com/cognicore/simhist/pkg/simhist/internalerr"
)

// hashTokenLen is the length of a hex-encoded 512-bit content hash.
const hashTokenLen = 128

// Interner assigns dense integer ids to tokens in first-seen order.
// It is not safe for concurrent use.
type Interner struct {
	ids   map[string]uint32
	limit uint64
}

// New creates an empty interner using the full uint32 id space.
func New() *Interner {
	return &Interner{
		ids:   make(map[string]uint32),
		limit: math.MaxUint32,
	}
}

// NewWithLimit creates an empty interner that refuses to assign more than
// limit ids. A zero limit means the full uint32 id space; a limit beyond it
// is rejected.
func NewWithLimit(limit uint64) (*Interner, error) {
	if limit > math.MaxUint32 {
		return nil, fmt.Errorf("vocabulary limit %d exceeds %d ids: %w", limit, uint64(math.MaxUint32), internalerr.ErrInvalidConfig)
	}
	in := New()
	if limit > 0 {
		in.limit = limit
	}
	return in, nil
}

// Intern returns the id of token, assigning the next free id on first sight.
// Content-hash tokens are rejected with ok=false and no error; callers skip them.
func (in *Interner) Intern(token string) (id uint32, ok bool, err error) {
	if IsHashToken(token) {
		return 0, false, nil
	}
	if id, found := in.ids[token]; found {
		return id, true, nil
	}
	next := uint64(len(in.ids))
	if next >= in.limit {
		return 0, false, fmt.Errorf("intern %q: %w (limit %d)", token, internalerr.ErrVocabularyOverflow, in.limit)
	}
	id = uint32(next)
	in.ids[token] = id
	return id, true, nil
}

// Lookup returns the id of an already interned token.
func (in *Interner) Lookup(token string) (uint32, bool) {
	id, ok := in.ids[token]
	return id, ok
}

// Size returns the number of ids assigned so far.
func (in *Interner) Size() int {
	return len(in.ids)
}

// IsHashToken reports whether token is a 128 character lowercase hex string.
func IsHashToken(token string) bool {
	if len(token) != hashTokenLen {
		return false
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
