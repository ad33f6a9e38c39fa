package dataset

import (
	"context"

	"github.com/poiesic/dossier/core"
)

// Chunker splits a source file into chunks.
type Chunker interface {
	Chunk(ctx context.Context, sourcePath string) ([]core.Chunk, error)
}

// GraphBuilder derives a knowledge graph from chunks.
type GraphBuilder interface {
	Build(ctx context.Context, chunks []core.Chunk) (*core.Graph, error)
}

// AnswerEngine answers questions about one built dataset. Engines that also
// implement io.Closer are closed when their dataset is reloaded or the manager
// shuts down.
type AnswerEngine interface {
	Answer(ctx context.Context, question string) (string, error)
}

// EngineFactory binds chunks and a graph to an answer engine.
type EngineFactory interface {
	NewEngine(ctx context.Context, chunks []core.Chunk, graph *core.Graph, expertRole, domain string) (AnswerEngine, error)
}

// EngineFactoryFunc adapts a function to EngineFactory.
type EngineFactoryFunc func(ctx context.Context, chunks []core.Chunk, graph *core.Graph, expertRole, domain string) (AnswerEngine, error)

func (f EngineFactoryFunc) NewEngine(ctx context.Context, chunks []core.Chunk, graph *core.Graph, expertRole, domain string) (AnswerEngine, error) {
	return f(ctx, chunks, graph, expertRole, domain)
}
