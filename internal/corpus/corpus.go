package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cognicore/simhist/pkg/simhist/internalerr"
)

// Record is one document of a request-log corpus. Only Document feeds the
// similarity engine; the metadata is carried through.
type Record struct {
	Document string `json:"document"`
	Type     string `json:"type,omitempty"`
	Emulator string `json:"emulator,omitempty"`
	Corpus   string `json:"corpus,omitempty"`
}

// Corpus is a named list of records.
type Corpus struct {
	Name    string
	Records []Record
}

// New wraps plain documents into a corpus.
func New(name string, docs ...string) Corpus {
	c := Corpus{Name: name, Records: make([]Record, len(docs))}
	for i, d := range docs {
		c.Records[i] = Record{Document: d, Corpus: name}
	}
	return c
}

// Documents returns the document texts in order.
func (c Corpus) Documents() []string {
	out := make([]string, len(c.Records))
	for i, r := range c.Records {
		out[i] = r.Document
	}
	return out
}

// Len returns the number of records.
func (c Corpus) Len() int {
	return len(c.Records)
}

// Load reads a corpus from a JSON array or a JSONL file. The corpus is
// named after the file.
func Load(path string) (Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Corpus{}, fmt.Errorf("read file %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var records []Record
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return Corpus{}, fmt.Errorf("decode %s: %w", path, err)
		}
	} else {
		records, err = decodeLines(data)
		if err != nil {
			return Corpus{}, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	if len(records) == 0 {
		return Corpus{}, fmt.Errorf("no records found in %s: %w", path, internalerr.ErrInvalidInput)
	}
	return Corpus{Name: name, Records: records}, nil
}

func decodeLines(data []byte) ([]Record, error) {
	var records []Record
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(text, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w: %w", line, internalerr.ErrInvalidInput, err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
