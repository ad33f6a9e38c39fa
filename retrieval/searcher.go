package retrieval

import (
	"context"
	"log/slog"
	"maps"
	"sort"
	"strings"

	"github.com/poiesic/dossier/ai"
	"github.com/poiesic/dossier/core"
	"github.com/poiesic/dossier/storage"
)

// DefaultMinSimilarity is the similarity a chunk needs to count as a semantic hit
// unless WithMinSimilarity says otherwise.
const DefaultMinSimilarity = 0.35

// Result is what a search found: scored chunks plus the graph entities the
// question named.
type Result struct {
	Chunks   []*core.SearchResult
	Entities []*core.Entity
}

type Searcher struct {
	chunkRepository storage.ChunkRepository
	graph           *core.Graph
	embedder        ai.Embedder
	minSimilarity   float32
	logger          *slog.Logger
}

type Option func(*Searcher) error

func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMinSimilarity sets the cosine similarity a chunk needs to count as a semantic hit.
func WithMinSimilarity(min float32) Option {
	return func(s *Searcher) error {
		s.minSimilarity = min
		return nil
	}
}

func NewSearcher(
	chunkRepository storage.ChunkRepository,
	graph *core.Graph,
	embedder ai.Embedder,
	opts ...Option,
) (*Searcher, error) {
	if chunkRepository == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if graph == nil {
		return nil, ErrGraphRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		chunkRepository: chunkRepository,
		graph:           graph,
		embedder:        embedder,
		minSimilarity:   DefaultMinSimilarity,
		logger:          slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Searcher) Search(ctx context.Context, query string, maxHits int) (*Result, error) {
	return s.SearchWithMonitor(ctx, query, maxHits, nil)
}

func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, maxHits int, monitor SearchMonitor) (*Result, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query)

	// 1. Semantic search
	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}

	matches, err := s.chunkRepository.FindSimilar(ctx, embedding, s.minSimilarity, maxHits)
	if err != nil {
		s.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}

	semanticScores := make(map[uint64]float32, len(matches))
	semanticIds := make([]uint64, 0, len(matches))
	for _, match := range matches {
		semanticScores[uint64(match.Chunk.Id)] = match.Score
		semanticIds = append(semanticIds, uint64(match.Chunk.Id))
	}
	monitor.AfterSemanticSearch(semanticIds)

	// 2. Entities named in the question
	entities := MatchEntities(s.graph, query)
	monitor.AfterEntityMatch(entities)

	// 3. Chunks mentioning those entities
	graphSet := make(map[uint64]bool)
	for _, entity := range entities {
		chunkIds, err := s.chunkRepository.GetChunkIDsByEntity(ctx, entity.Id)
		if err != nil {
			s.logger.Warn("failed to get chunks for entity", "entity", entity.Name, "err", err)
			continue
		}
		for _, id := range chunkIds {
			graphSet[uint64(id)] = true
		}
	}
	monitor.AfterGraphSearch(maps.Keys(graphSet))

	// 4. Combine and score
	allIds := make(map[core.ID]bool, len(semanticScores)+len(graphSet))
	for id := range semanticScores {
		allIds[core.ID(id)] = true
	}
	for id := range graphSet {
		allIds[core.ID(id)] = true
	}

	if len(allIds) == 0 {
		monitor.Finish(nil)
		return &Result{Chunks: []*core.SearchResult{}, Entities: entities}, nil
	}

	uniqueIds := make([]core.ID, 0, len(allIds))
	for id := range allIds {
		uniqueIds = append(uniqueIds, id)
	}

	chunks, err := s.chunkRepository.GetChunks(ctx, uniqueIds...)
	if err != nil {
		s.logger.Error("error retrieving chunks", "chunkCount", len(uniqueIds), "err", err)
		return nil, err
	}
	monitor.AfterChunkRetrieval(chunks)

	results := make([]*core.SearchResult, 0, len(chunks))
	for _, chunk := range chunks {
		similarity, inSemantic := semanticScores[uint64(chunk.Id)]
		inGraph := graphSet[uint64(chunk.Id)]

		var score float32
		switch {
		case inSemantic && inGraph:
			score = 1.5 * similarity
			monitor.SemanticAndGraphHit(chunk)
		case inGraph:
			score = 1.2
			monitor.GraphHit(chunk)
		default:
			score = similarity
			monitor.SemanticHit(chunk)
		}

		// Verbatim match boost
		if containsAllQueryWords(chunk.Contents, query) {
			score += 0.3
		}

		results = append(results, &core.SearchResult{
			Chunk: chunk,
			Score: score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.Index < results[j].Chunk.Index
	})
	if len(results) > maxHits {
		results = results[:maxHits]
	}
	monitor.Finish(results)

	return &Result{Chunks: results, Entities: entities}, nil
}

// MatchEntities returns the graph entities named in the query.
// A name matches when it appears verbatim or when every meaningful word of it
// is in the query. Results are ordered by importance, highest first.
func MatchEntities(graph *core.Graph, query string) []*core.Entity {
	if graph == nil {
		return nil
	}
	queryWords := wordSet(query)
	normalizedQuery := " " + core.NormalizeLabel(query) + " "

	var matched []*core.Entity
	for _, entity := range graph.Entities {
		name := core.NormalizeLabel(entity.Name)
		if name == "" {
			continue
		}
		if strings.Contains(normalizedQuery, " "+name+" ") || containsAllWords(queryWords, entity.Name) {
			matched = append(matched, entity)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Importance > matched[j].Importance
	})
	return matched
}
