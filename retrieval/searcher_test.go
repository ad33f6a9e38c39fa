package retrieval

import (
	"context"
	"iter"
	"log/slog"
	"slices"
	"testing"

	"github.com/poiesic/dossier/ai/mock"
	"github.com/poiesic/dossier/core"
	"github.com/poiesic/dossier/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedEmbedder embeds every query as the same vector.
func fixedEmbedder(v []float32) *mock.MockEmbedder {
	m := mock.NewMockEmbedder()
	m.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return v, nil
	}
	return m
}

type fixture struct {
	repo     *badger.ChunkRepository
	graph    *core.Graph
	chunks   []*core.Chunk
	holmes   *core.Entity
	watson   *core.Entity
	lestrade *core.Entity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := badger.NewMemoryChunkRepository(nil)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	chunks := []*core.Chunk{
		{Index: 0, Contents: "Holmes lit his pipe and studied the letter.", Vector: []float32{1, 0, 0}},
		{Index: 1, Contents: "Watson described the wound in detail.", Vector: []float32{0.8, 0.6, 0}},
		{Index: 2, Contents: "Lestrade arrived with two constables.", Vector: []float32{0, 0, 1}},
		{Index: 3, Contents: "The weather in London was foul.", Vector: []float32{0, 1, 0}},
	}
	ctx := context.Background()
	require.NoError(t, repo.AddChunks(ctx, chunks...))

	holmes := &core.Entity{Name: "Sherlock Holmes", Type: "person", Importance: 10}
	watson := &core.Entity{Name: "Watson", Type: "person", Importance: 8}
	lestrade := &core.Entity{Name: "Lestrade", Type: "person", Importance: 6}
	for _, e := range []*core.Entity{holmes, watson, lestrade} {
		e.Id = core.IDFromContent(e.Tuple())
	}
	require.NoError(t, repo.IndexEntity(ctx, holmes.Id, chunks[0].Id))
	require.NoError(t, repo.IndexEntity(ctx, watson.Id, chunks[1].Id))
	require.NoError(t, repo.IndexEntity(ctx, lestrade.Id, chunks[2].Id))

	return &fixture{
		repo:     repo,
		graph:    core.NewGraph([]*core.Entity{holmes, watson, lestrade}, nil),
		chunks:   chunks,
		holmes:   holmes,
		watson:   watson,
		lestrade: lestrade,
	}
}

func TestNewSearcher(t *testing.T) {
	f := newFixture(t)
	embedder := mock.NewMockEmbedder()

	t.Run("valid configuration", func(t *testing.T) {
		s, err := NewSearcher(f.repo, f.graph, embedder, WithLogger(slog.Default()), WithMinSimilarity(0.5))
		require.NoError(t, err)
		assert.InDelta(t, 0.5, s.minSimilarity, 1e-9)
	})

	t.Run("nil chunk repository", func(t *testing.T) {
		_, err := NewSearcher(nil, f.graph, embedder)
		assert.Equal(t, ErrChunkRepositoryRequired, err)
	})

	t.Run("nil graph", func(t *testing.T) {
		_, err := NewSearcher(f.repo, nil, embedder)
		assert.Equal(t, ErrGraphRequired, err)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewSearcher(f.repo, f.graph, nil)
		assert.Equal(t, ErrEmbedderRequired, err)
	})
}

func TestSearch_SemanticOnly(t *testing.T) {
	f := newFixture(t)
	s, err := NewSearcher(f.repo, core.NewGraph(nil, nil), fixedEmbedder([]float32{1, 0, 0}), WithMinSimilarity(0.5))
	require.NoError(t, err)

	result, err := s.Search(context.Background(), "pipe smoke", 10)
	require.NoError(t, err)

	require.Len(t, result.Chunks, 2)
	assert.Equal(t, 0, result.Chunks[0].Chunk.Index)
	assert.InDelta(t, 1.0, result.Chunks[0].Score, 1e-6)
	assert.Equal(t, 1, result.Chunks[1].Chunk.Index)
	assert.InDelta(t, 0.8, result.Chunks[1].Score, 1e-6)
	assert.Empty(t, result.Entities)
}

func TestSearch_HybridScoring(t *testing.T) {
	f := newFixture(t)
	s, err := NewSearcher(f.repo, f.graph, fixedEmbedder([]float32{0.8, 0.6, 0}), WithMinSimilarity(0.9))
	require.NoError(t, err)

	// semantic: chunk 1 (1.0); graph: Watson -> chunk 1, Lestrade -> chunk 2
	result, err := s.Search(context.Background(), "Did Watson meet Lestrade?", 10)
	require.NoError(t, err)

	require.Len(t, result.Chunks, 2)
	assert.Equal(t, 1, result.Chunks[0].Chunk.Index)
	assert.InDelta(t, 1.5, result.Chunks[0].Score, 1e-6)
	assert.Equal(t, 2, result.Chunks[1].Chunk.Index)
	assert.InDelta(t, 1.2, result.Chunks[1].Score, 1e-6)

	require.Len(t, result.Entities, 2)
	assert.Equal(t, "Watson", result.Entities[0].Name)
}

func TestSearch_VerbatimBoost(t *testing.T) {
	f := newFixture(t)
	s, err := NewSearcher(f.repo, core.NewGraph(nil, nil), fixedEmbedder([]float32{0, 1, 0}), WithMinSimilarity(0.7))
	require.NoError(t, err)

	result, err := s.Search(context.Background(), "weather in London", 10)
	require.NoError(t, err)

	require.Len(t, result.Chunks, 1)
	assert.InDelta(t, 1.3, result.Chunks[0].Score, 1e-6)
}

func TestSearch_LimitsHits(t *testing.T) {
	f := newFixture(t)
	s, err := NewSearcher(f.repo, f.graph, fixedEmbedder([]float32{0, 0, 0}))
	require.NoError(t, err)

	result, err := s.Search(context.Background(), "Sherlock Holmes, Watson and Lestrade", 2)
	require.NoError(t, err)
	assert.Len(t, result.Chunks, 2)
	assert.Len(t, result.Entities, 3)
}

func TestSearch_NoHits(t *testing.T) {
	f := newFixture(t)
	s, err := NewSearcher(f.repo, f.graph, fixedEmbedder([]float32{0, 0, 0}))
	require.NoError(t, err)

	result, err := s.Search(context.Background(), "nothing relevant", 5)
	require.NoError(t, err)
	assert.Empty(t, result.Chunks)
}

type recordingMonitor struct {
	noopMonitor
	stages []string
}

func (m *recordingMonitor) Start(string)                      { m.stages = append(m.stages, "start") }
func (m *recordingMonitor) AfterSemanticSearch([]uint64)      { m.stages = append(m.stages, "semantic") }
func (m *recordingMonitor) AfterEntityMatch([]*core.Entity)   { m.stages = append(m.stages, "entities") }
func (m *recordingMonitor) AfterGraphSearch(iter.Seq[uint64]) { m.stages = append(m.stages, "graph") }
func (m *recordingMonitor) Finish([]*core.SearchResult)       { m.stages = append(m.stages, "finish") }

func TestSearchWithMonitor_Stages(t *testing.T) {
	f := newFixture(t)
	s, err := NewSearcher(f.repo, f.graph, fixedEmbedder([]float32{1, 0, 0}))
	require.NoError(t, err)

	m := &recordingMonitor{}
	_, err = s.SearchWithMonitor(context.Background(), "Watson", 5, m)
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "semantic", "entities", "graph", "finish"}, m.stages)

	// the logging monitor must accept every stage too
	_, err = s.SearchWithMonitor(context.Background(), "Watson", 5, NewLoggingMonitor(nil))
	require.NoError(t, err)
}

func TestMatchEntities(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "full name", query: "What did Sherlock Holmes say?", want: []string{"Sherlock Holmes"}},
		{name: "partial name does not match multi-word entity", query: "What did Holmes say?", want: nil},
		{name: "possessive", query: "Describe Watson's wound", want: []string{"Watson"}},
		{name: "ordered by importance", query: "lestrade and watson", want: []string{"Watson", "Lestrade"}},
		{name: "nothing", query: "the weather", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, e := range MatchEntities(f.graph, tt.query) {
				got = append(got, e.Name)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Nil(t, MatchEntities(nil, "Watson"))
}

func TestContainsAllQueryWords(t *testing.T) {
	assert.True(t, containsAllQueryWords("The weather in London was foul.", "London weather"))
	assert.False(t, containsAllQueryWords("The weather in London was foul.", "Paris weather"))
	assert.False(t, containsAllQueryWords("anything", "the of and"))
	assert.True(t, slices.Contains(tokenizeAndFilter("Holmes's pipe"), "holmes"))
}
