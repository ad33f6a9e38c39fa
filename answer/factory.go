package answer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/dossier/ai"
	"github.com/poiesic/dossier/core"
	"github.com/poiesic/dossier/retrieval"
	"github.com/poiesic/dossier/storage/badger"
)

const defaultMaxHits = 5

// Factory builds answer engines. One Factory is shared by every dataset.
type Factory struct {
	embedder      ai.Embedder
	generator     ai.Generator
	maxHits       int
	minSimilarity float32
	logger        *slog.Logger
}

type Option func(*Factory) error

func WithLogger(logger *slog.Logger) Option {
	return func(f *Factory) error {
		if logger == nil {
			logger = slog.Default()
		}
		f.logger = logger
		return nil
	}
}

// WithMaxHits sets how many passages are placed in each prompt.
func WithMaxHits(n int) Option {
	return func(f *Factory) error {
		if n < 1 {
			return ErrInvalidMaxHits
		}
		f.maxHits = n
		return nil
	}
}

func WithMinSimilarity(min float32) Option {
	return func(f *Factory) error {
		f.minSimilarity = min
		return nil
	}
}

func NewFactory(embedder ai.Embedder, generator ai.Generator, opts ...Option) (*Factory, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}
	f := &Factory{
		embedder:      embedder,
		generator:     generator,
		maxHits:       defaultMaxHits,
		minSimilarity: retrieval.DefaultMinSimilarity,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// NewEngine loads chunks and graph into a fresh in-memory store and returns an
// engine answering as expertRole about domain.
func (f *Factory) NewEngine(ctx context.Context, chunks []core.Chunk, graph *core.Graph, expertRole, domain string) (*Engine, error) {
	if graph == nil {
		return nil, ErrGraphRequired
	}

	repo, err := badger.NewMemoryChunkRepository(f.logger)
	if err != nil {
		return nil, fmt.Errorf("opening chunk store: %w", err)
	}

	engine, err := f.load(ctx, repo, chunks, graph, expertRole, domain)
	if err != nil {
		repo.Close()
		return nil, err
	}
	return engine, nil
}

func (f *Factory) load(ctx context.Context, repo *badger.ChunkRepository, chunks []core.Chunk, graph *core.Graph, expertRole, domain string) (*Engine, error) {
	ptrs := make([]*core.Chunk, len(chunks))
	for i := range chunks {
		c := chunks[i]
		ptrs[i] = &c
	}
	if len(ptrs) > 0 {
		if err := repo.AddChunks(ctx, ptrs...); err != nil {
			return nil, fmt.Errorf("storing chunks: %w", err)
		}
	}

	for _, entity := range graph.Entities {
		if len(entity.ChunkIds) == 0 {
			continue
		}
		if err := repo.IndexEntity(ctx, entity.Id, entity.ChunkIds...); err != nil {
			return nil, fmt.Errorf("indexing entity %q: %w", entity.Name, err)
		}
	}

	searcher, err := retrieval.NewSearcher(repo, graph, f.embedder,
		retrieval.WithLogger(f.logger),
		retrieval.WithMinSimilarity(f.minSimilarity),
	)
	if err != nil {
		return nil, err
	}

	logger := f.logger.With("component", "answer-engine")
	logger.Debug("answer engine ready", "chunks", len(chunks), "entities", graph.EntityCount())

	return &Engine{
		repo:         repo,
		searcher:     searcher,
		graph:        graph,
		generator:    f.generator,
		systemPrompt: buildSystemPrompt(expertRole, domain),
		maxHits:      f.maxHits,
		logger:       logger,
	}, nil
}
