package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrVocabularyOverflow = errors.New("vocabulary id space exhausted")
	ErrEmptyHistogram     = errors.New("cannot normalize empty histogram")
	ErrRoundFailed        = errors.New("sampling round failed")
	ErrChunkTooLarge      = errors.New("chunk exceeds memory budget")
)
