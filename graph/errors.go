package graph

import "errors"

var (
	// ErrExtractorRequired is returned when a graph extractor is not provided.
	ErrExtractorRequired = errors.New("graph extractor required")

	// ErrExtractionFailed is returned when no chunk could be processed.
	ErrExtractionFailed = errors.New("graph extraction failed for every chunk")

	// ErrInvalidMaxAttempts is returned when maxAttempts is not positive.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be positive")

	// ErrAttemptsExhausted is returned when every extraction attempt for a chunk failed.
	ErrAttemptsExhausted = errors.New("extraction attempts exhausted")
)
