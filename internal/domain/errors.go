package domain

import "errors"

// Sentinel errors shared across the pipeline. Callers wrap them with
// fmt.Errorf("%w: ...") and test with errors.Is.
var (
	// ErrValidation covers malformed parameters: bad chunk sizes, a threshold
	// strategy without a threshold, k < 1.
	ErrValidation = errors.New("validation error")

	// ErrEmptyCorpus is returned when an index is built from zero chunks.
	ErrEmptyCorpus = errors.New("empty corpus: no chunks to index")

	// ErrIndexNotFound is returned when a persisted index directory is missing
	// or does not contain both the vector artifact and the metadata record.
	ErrIndexNotFound = errors.New("index not found")

	// ErrDimensionMismatch is returned when a vector does not match the
	// dimensionality of the index it is used against, or comes from a
	// different embedding model than the one the index was built with.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrUnsupportedStrategy is returned for an unknown retrieval strategy.
	ErrUnsupportedStrategy = errors.New("unsupported retrieval strategy")

	// ErrGeneration wraps any failure of the text-completion service.
	ErrGeneration = errors.New("generation failed")

	// ErrTimeout is returned when the completion call exceeds its deadline.
	ErrTimeout = errors.New("generation timed out")
)
