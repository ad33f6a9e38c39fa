package storage

import (
	"context"

	"github.com/poiesic/dossier/core"
)

// ChunkRepository stores the chunks of one dataset build together with an
// index from entity to the chunks that mention it.
type ChunkRepository interface {
	// AddChunks stores chunks under their content-derived IDs.
	// Chunks already present are overwritten.
	AddChunks(ctx context.Context, chunks ...*core.Chunk) error

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error)

	// GetChunks retrieves multiple chunks by their IDs.
	// Returns only the chunks that exist (no error for missing chunks).
	GetChunks(ctx context.Context, ids ...core.ID) ([]*core.Chunk, error)

	// IndexEntity records that an entity is mentioned by the given chunks.
	IndexEntity(ctx context.Context, entityID core.ID, chunkIDs ...core.ID) error

	// GetChunkIDsByEntity returns the IDs of chunks mentioning an entity, in ID order.
	GetChunkIDsByEntity(ctx context.Context, entityID core.ID) ([]core.ID, error)

	// FindSimilar finds chunks similar to the given vector.
	// Returns chunks with similarity >= minSimilarity, up to limit results.
	// Results are ordered by similarity score (highest first).
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
