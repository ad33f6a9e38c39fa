package openai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms/fake"
)

const holmesExtraction = `{
  "entities": [
    {"name":"Sherlock Holmes","type":"person","description":"consulting detective","importance":10},
    {"name":"Dr. Watson","type":"Person","description":"army doctor","importance":9},
    {"name":"Baker Street","type":"street address","description":"","importance":6},
    {"name":"hansom","type":"object","description":"cab","importance":1}
  ],
  "relationships": [
    {"source":"Sherlock Holmes","target":"Dr. Watson","type":"Lodges With","description":"share rooms","weight":0.9},
    {"source":"Sherlock Holmes","target":"Baker Street","type":"lives_at"},
    {"source":"Dr. Watson","target":"hansom","type":"rides_in","weight":0.5},
    {"source":"Dr. Watson","target":"Lestrade","type":"knows","weight":2}
  ]
}`

func TestGraphExtractor_ExtractGraph(t *testing.T) {
	extractor := newGraphExtractorWithModel(fake.NewFakeLLM([]string{holmesExtraction}), 3)

	graph, err := extractor.ExtractGraph(context.Background(), "Holmes and Watson took rooms in Baker Street.")
	require.NoError(t, err)

	require.Len(t, graph.Entities, 3)
	assert.Equal(t, "Sherlock Holmes", graph.Entities[0].Name)
	assert.Equal(t, "person", graph.Entities[1].Type)
	// unknown types fall back to concept
	assert.Equal(t, "concept", graph.Entities[2].Type)

	require.Len(t, graph.Relationships, 2)
	assert.Equal(t, "lodges_with", graph.Relationships[0].Type)
	assert.InDelta(t, 0.9, graph.Relationships[0].Weight, 1e-9)
	// missing weight defaults to full confidence
	assert.InDelta(t, 1.0, graph.Relationships[1].Weight, 1e-9)
}

func TestGraphExtractor_RetriesMalformedJSON(t *testing.T) {
	llm := fake.NewFakeLLM([]string{"not json at all", `{"entities":[{"name":"Holmes","type":"person","importance":5}],"relationships":[]}`})
	extractor := newGraphExtractorWithModel(llm, 1)

	graph, err := extractor.ExtractGraph(context.Background(), "Holmes.")
	require.NoError(t, err)
	require.Len(t, graph.Entities, 1)
	assert.Equal(t, "Holmes", graph.Entities[0].Name)
}

func TestGraphExtractor_GivesUpAfterRetries(t *testing.T) {
	extractor := newGraphExtractorWithModel(fake.NewFakeLLM([]string{"nope"}), 1)

	_, err := extractor.ExtractGraph(context.Background(), "Holmes.")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestGraphExtractor_ModelError(t *testing.T) {
	extractor := newGraphExtractorWithModel(fake.NewFakeLLM(nil), 1)

	_, err := extractor.ExtractGraph(context.Background(), "Holmes.")
	assert.Error(t, err)
}

func TestGraphExtractor_EmptyText(t *testing.T) {
	extractor := newGraphExtractorWithModel(fake.NewFakeLLM(nil), 1)

	graph, err := extractor.ExtractGraph(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, graph.Entities)
	assert.Empty(t, graph.Relationships)
}
