package ingestion

import "errors"

var (
	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrReadSource is returned when the source file cannot be opened or read.
	ErrReadSource = errors.New("cannot read source")

	// ErrNoChunks is returned when a source yields no usable text.
	ErrNoChunks = errors.New("source produced no chunks")

	// ErrInvalidChunking is returned for a chunk size or overlap that cannot work.
	ErrInvalidChunking = errors.New("invalid chunking parameters")

	// ErrEmbeddingMismatch is returned when the embedder returns a different number of vectors than texts.
	ErrEmbeddingMismatch = errors.New("embedding result mismatch")
)
