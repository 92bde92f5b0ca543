package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/simhist/pkg/simhist/internalerr"
)

// Self estimator modes.
const (
	// SelfBipartition compares a random half of a corpus against the other
	// half in every round.
	SelfBipartition = "bipartition"
	// SelfDiagonal compares the corpus against itself once and removes the
	// diagonal and mirrored pairs.
	SelfDiagonal = "diagonal"
)

// Defaults
const (
	DefaultSteps     = 20
	DefaultChunkSize = 1000
	DefaultRounds    = 10
	DefaultWorkers   = 4
)

// Engine holds the histogram engine parameters.
type Engine struct {
	Steps     int     `yaml:"steps"`
	ChunkSize int     `yaml:"chunk_size"`
	Rounds    int     `yaml:"rounds"`
	Workers   int     `yaml:"workers"`
	Seed      *uint64 `yaml:"seed,omitempty"`
	SelfMode  string  `yaml:"self_mode"`
	// MaxChunkBytes caps the dense matrices of one chunk pair; 0 disables it.
	MaxChunkBytes int64 `yaml:"max_chunk_bytes"`
	// VocabularyLimit caps the number of interned tokens; 0 means the id space.
	VocabularyLimit uint64 `yaml:"vocabulary_limit"`
}

// Output describes where results are written.
type Output struct {
	Dir  string `yaml:"dir"`
	Name string `yaml:"name"`
}

// Dataset is one pair of corpora to compare.
type Dataset struct {
	OutName string `yaml:"outname"`
	Train   string `yaml:"train"`
	Test    string `yaml:"test"`
}

// Settings is the top level settings file.
type Settings struct {
	Output   Output    `yaml:"output"`
	Engine   Engine    `yaml:"engine"`
	Datasets []Dataset `yaml:"datasets"`
}

// DefaultEngine returns the engine defaults.
func DefaultEngine() Engine {
	return Engine{
		Steps:     DefaultSteps,
		ChunkSize: DefaultChunkSize,
		Rounds:    DefaultRounds,
		Workers:   DefaultWorkers,
		SelfMode:  SelfBipartition,
	}
}

// Validate reports the first invalid engine parameter.
func (e Engine) Validate() error {
	switch {
	case e.Steps <= 0:
		return fmt.Errorf("steps must be positive, got %d: %w", e.Steps, internalerr.ErrInvalidConfig)
	case e.ChunkSize <= 0:
		return fmt.Errorf("chunk_size must be positive, got %d: %w", e.ChunkSize, internalerr.ErrInvalidConfig)
	case e.Rounds <= 0:
		return fmt.Errorf("rounds must be positive, got %d: %w", e.Rounds, internalerr.ErrInvalidConfig)
	case e.Workers <= 0:
		return fmt.Errorf("workers must be positive, got %d: %w", e.Workers, internalerr.ErrInvalidConfig)
	case e.MaxChunkBytes < 0:
		return fmt.Errorf("max_chunk_bytes must not be negative, got %d: %w", e.MaxChunkBytes, internalerr.ErrInvalidConfig)
	case e.VocabularyLimit > math.MaxUint32:
		return fmt.Errorf("vocabulary_limit must fit in 32 bits, got %d: %w", e.VocabularyLimit, internalerr.ErrInvalidConfig)
	}
	switch e.SelfMode {
	case SelfBipartition, SelfDiagonal:
	default:
		return fmt.Errorf("unknown self_mode %q: %w", e.SelfMode, internalerr.ErrInvalidConfig)
	}
	return nil
}

// Validate checks the engine and every dataset entry.
func (s *Settings) Validate() error {
	if err := s.Engine.Validate(); err != nil {
		return err
	}
	for i, ds := range s.Datasets {
		if ds.OutName == "" {
			return fmt.Errorf("dataset %d: outname required: %w", i, internalerr.ErrInvalidConfig)
		}
	}
	return nil
}

// TrainPath resolves the first corpus of a dataset. Without an explicit path
// it falls back to <dir>/processed/<name>_trainset.json.
func (s *Settings) TrainPath(ds Dataset) string {
	return s.resolve(ds.Train, "_trainset.json")
}

// TestPath resolves the second corpus of a dataset. Without an explicit path
// it falls back to <dir>/processed/<name>_testset.json.
func (s *Settings) TestPath(ds Dataset) string {
	return s.resolve(ds.Test, "_testset.json")
}

// ScriptPath returns <dir>/viz/<outname>.R.
func (s *Settings) ScriptPath(ds Dataset) string {
	return filepath.Join(s.Output.Dir, "viz", ds.OutName+".R")
}

func (s *Settings) resolve(path, suffix string) string {
	if path == "" {
		return filepath.Join(s.Output.Dir, "processed", s.Output.Name+suffix)
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.Output.Dir, "processed", path)
}

// Parse decodes settings from YAML, filling unset engine fields with defaults.
func Parse(data []byte) (*Settings, error) {
	s := &Settings{Engine: DefaultEngine()}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	if s.Engine.SelfMode == "" {
		s.Engine.SelfMode = SelfBipartition
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads and validates a settings file.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
