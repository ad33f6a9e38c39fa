package openai

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/embeddings"
)

func TestEmbedder_NormalizesVectors(t *testing.T) {
	var batches [][]string
	client := embeddings.EmbedderClientFunc(func(_ context.Context, texts []string) ([][]float32, error) {
		batches = append(batches, texts)
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{3, 4}
		}
		return out, nil
	})

	e, err := newEmbedderWithClient(client, 2)
	require.NoError(t, err)

	vectors, err := e.EmbedTexts(context.Background(), []string{"a", "b\nc", "d"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.InDelta(t, 0.6, vectors[0][0], 1e-6)
	assert.InDelta(t, 0.8, vectors[0][1], 1e-6)

	require.Len(t, batches, 2)
	assert.Equal(t, []string{"a", "b c"}, batches[0])
}

func TestEmbedder_EmbedText(t *testing.T) {
	client := embeddings.EmbedderClientFunc(func(_ context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{0, 2}}, nil
	})
	e, err := newEmbedderWithClient(client, 8)
	require.NoError(t, err)

	v, err := e.EmbedText(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, v)
}

func TestEmbedder_Error(t *testing.T) {
	client := embeddings.EmbedderClientFunc(func(_ context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("connection refused")
	})
	e, err := newEmbedderWithClient(client, 8)
	require.NoError(t, err)

	_, err = e.EmbedText(context.Background(), "hello")
	assert.Error(t, err)
}

func TestNormalizeVector(t *testing.T) {
	assert.Empty(t, normalizeVector(nil))
	assert.Equal(t, []float32{0, 0}, normalizeVector([]float32{0, 0}))

	v := normalizeVector([]float32{1, 1, 1, 1})
	var sum float64
	for _, x := range v {
		sum += float64(x * x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)
}
