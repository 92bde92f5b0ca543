package membership

import (
	"fmt"
	"strings"

	"github.com/cognicore/simhist/pkg/simhist/vocab"
)

// Tokenize splits a document on whitespace and drops empty tokens.
func Tokenize(doc string) []string {
	return strings.Fields(doc)
}

// Encoder turns documents into membership records against one interner.
type Encoder struct {
	interner *vocab.Interner
}

// NewEncoder creates an encoder that interns into in.
func NewEncoder(in *vocab.Interner) *Encoder {
	return &Encoder{interner: in}
}

// Width returns the current vocabulary size.
func (e *Encoder) Width() int {
	return e.interner.Size()
}

// Encode interns every non-hash token of doc and returns its id set.
func (e *Encoder) Encode(doc string) (Record, error) {
	tokens := Tokenize(doc)
	ids := make([]uint32, 0, len(tokens))
	for _, tok := range tokens {
		id, ok, err := e.interner.Intern(tok)
		if err != nil {
			return Record{}, err
		}
		if !ok {
			continue
		}
		ids = append(ids, id)
	}
	return NewRecord(ids...), nil
}

// EncodeAll encodes docs in order.
func (e *Encoder) EncodeAll(docs []string) ([]Record, error) {
	out := make([]Record, len(docs))
	for i, doc := range docs {
		rec, err := e.Encode(doc)
		if err != nil {
			return nil, fmt.Errorf("encode document %d: %w", i, err)
		}
		out[i] = rec
	}
	return out, nil
}

// EncodeBatch encodes docs and returns them as a dense matrix sized to the
// vocabulary after encoding. Callers keep batches chunk sized.
func (e *Encoder) EncodeBatch(docs []string) (*DenseMatrix, error) {
	records, err := e.EncodeAll(docs)
	if err != nil {
		return nil, err
	}
	return Densify(records, e.Width())
}
