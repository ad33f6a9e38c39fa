package answer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/poiesic/dossier/ai"
	"github.com/poiesic/dossier/core"
	"github.com/poiesic/dossier/retrieval"
	"github.com/poiesic/dossier/storage/badger"
)

// Engine answers questions against one dataset. It is safe for concurrent use.
// Close waits for in-flight answers to finish.
type Engine struct {
	mu     sync.RWMutex
	closed bool

	repo         *badger.ChunkRepository
	searcher     *retrieval.Searcher
	graph        *core.Graph
	generator    ai.Generator
	systemPrompt string
	maxHits      int
	logger       *slog.Logger
}

var _ io.Closer = (*Engine)(nil)

func (e *Engine) Answer(ctx context.Context, question string) (string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return "", ErrEngineClosed
	}

	result, err := e.searcher.Search(ctx, question, e.maxHits)
	if err != nil {
		return "", fmt.Errorf("retrieving context: %w", err)
	}
	e.logger.Debug("retrieved context", "passages", len(result.Chunks), "entities", len(result.Entities))

	prompt := buildPrompt(question, result.Chunks, result.Entities, e.graph)
	answer, err := e.generator.Generate(ctx, e.systemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}
	return answer, nil
}

// Search exposes the engine's retrieval step.
func (e *Engine) Search(ctx context.Context, question string, maxHits int) (*retrieval.Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ErrEngineClosed
	}
	return e.searcher.Search(ctx, question, maxHits)
}

// Close releases the engine's chunk store. It is safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.repo.Close()
}
