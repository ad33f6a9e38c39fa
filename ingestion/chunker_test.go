package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/poiesic/dossier/ai/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.txt")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func paragraphs(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = strings.Repeat("Holmes examined the room with great care. ", 3)
	}
	return strings.Join(parts, "\n\n")
}

func TestNewTextChunker_RequiresEmbedder(t *testing.T) {
	_, err := NewTextChunker(nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestNewTextChunker_InvalidChunking(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{name: "zero size", opts: []Option{WithChunkSize(0)}},
		{name: "negative overlap", opts: []Option{WithChunkOverlap(-1)}},
		{name: "overlap not smaller than size", opts: []Option{WithChunkSize(100), WithChunkOverlap(100)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTextChunker(mock.NewMockEmbedder(), tt.opts...)
			assert.ErrorIs(t, err, ErrInvalidChunking)
		})
	}
}

func TestChunk_SplitsAndEmbeds(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	chunker, err := NewTextChunker(embedder,
		WithChunkSize(200),
		WithChunkOverlap(20),
		WithBatchSize(2),
		WithPoolSize(2),
	)
	require.NoError(t, err)
	defer chunker.Release()

	path := writeSource(t, paragraphs(6))
	chunks, err := chunker.Chunk(context.Background(), path)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	seen := make(map[uint64]bool)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, path, chunk.Source)
		assert.NotEmpty(t, strings.TrimSpace(chunk.Contents))
		assert.LessOrEqual(t, len(chunk.Contents), 200)
		assert.Equal(t, mock.DeterministicVector(chunk.Contents), chunk.Vector)
		assert.False(t, seen[uint64(chunk.Id)], "duplicate chunk id")
		seen[uint64(chunk.Id)] = true
	}

	expectedCalls := (len(chunks) + 1) / 2
	assert.Equal(t, expectedCalls, embedder.CallCount())
}

func TestChunk_DeterministicIDs(t *testing.T) {
	chunker, err := NewTextChunker(mock.NewMockEmbedder(), WithChunkSize(200), WithChunkOverlap(0))
	require.NoError(t, err)
	defer chunker.Release()

	path := writeSource(t, paragraphs(3))
	first, err := chunker.Chunk(context.Background(), path)
	require.NoError(t, err)
	second, err := chunker.Chunk(context.Background(), path)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Id, second[i].Id)
	}
}

func TestChunk_MissingFile(t *testing.T) {
	chunker, err := NewTextChunker(mock.NewMockEmbedder())
	require.NoError(t, err)
	defer chunker.Release()

	_, err = chunker.Chunk(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, ErrReadSource)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestChunk_BlankFile(t *testing.T) {
	chunker, err := NewTextChunker(mock.NewMockEmbedder())
	require.NoError(t, err)
	defer chunker.Release()

	_, err = chunker.Chunk(context.Background(), writeSource(t, "  \n\n \t"))
	assert.ErrorIs(t, err, ErrNoChunks)
}

func TestChunk_EmbedderError(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("embedding service unavailable")
	}
	chunker, err := NewTextChunker(embedder, WithChunkSize(200), WithChunkOverlap(0), WithBatchSize(1))
	require.NoError(t, err)
	defer chunker.Release()

	_, err = chunker.Chunk(context.Background(), writeSource(t, paragraphs(4)))
	assert.EqualError(t, err, "embedding service unavailable")
}

func TestChunk_EmbeddingMismatch(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	}
	chunker, err := NewTextChunker(embedder, WithChunkSize(200), WithChunkOverlap(0), WithBatchSize(4))
	require.NoError(t, err)
	defer chunker.Release()

	_, err = chunker.Chunk(context.Background(), writeSource(t, paragraphs(4)))
	assert.ErrorIs(t, err, ErrEmbeddingMismatch)
}

func TestChunk_CancelledContext(t *testing.T) {
	var calls atomic.Int32
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		calls.Add(1)
		return make([][]float32, len(texts)), nil
	}
	chunker, err := NewTextChunker(embedder, WithChunkSize(200), WithChunkOverlap(0))
	require.NoError(t, err)
	defer chunker.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = chunker.Chunk(ctx, writeSource(t, paragraphs(4)))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}
