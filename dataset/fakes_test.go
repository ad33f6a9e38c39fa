package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/poiesic/dossier/core"
	"github.com/stretchr/testify/require"
)

type countingChunker struct {
	calls  atomic.Int32
	gate   chan struct{}
	panics atomic.Bool

	mu    sync.Mutex
	count int
	err   error
	paths []string
}

func (c *countingChunker) set(count int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count = count
	c.err = err
}

func (c *countingChunker) Chunk(ctx context.Context, sourcePath string) ([]core.Chunk, error) {
	c.calls.Add(1)
	if c.gate != nil {
		select {
		case <-c.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if c.panics.Load() {
		panic(fmt.Errorf("tokenizer state corrupted for %s", filepath.Base(sourcePath)))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, sourcePath)
	if c.err != nil {
		return nil, c.err
	}
	chunks := make([]core.Chunk, c.count)
	for i := range chunks {
		text := fmt.Sprintf("chunk %d", i)
		chunks[i] = core.Chunk{Id: core.IDFromContent(text), Index: i, Source: sourcePath, Contents: text}
	}
	return chunks, nil
}

type countingBuilder struct {
	calls atomic.Int32

	mu            sync.Mutex
	entities      int
	relationships int
	err           error
}

func (b *countingBuilder) set(entities, relationships int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entities = entities
	b.relationships = relationships
	b.err = err
}

func (b *countingBuilder) Build(ctx context.Context, chunks []core.Chunk) (*core.Graph, error) {
	b.calls.Add(1)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	entities := make([]*core.Entity, b.entities)
	for i := range entities {
		entities[i] = &core.Entity{Id: core.ID(i + 1), Name: fmt.Sprintf("entity %d", i), Type: "concept"}
	}
	relationships := make([]*core.Relationship, b.relationships)
	for i := range relationships {
		relationships[i] = &core.Relationship{Id: core.ID(100 + i), SourceId: 1, TargetId: 2, Type: "related_to"}
	}
	return core.NewGraph(entities, relationships), nil
}

type fakeEngine struct {
	mu        sync.Mutex
	questions []string
	answer    func(question string) (string, error)
	closed    atomic.Bool
}

func (e *fakeEngine) Answer(ctx context.Context, question string) (string, error) {
	e.mu.Lock()
	e.questions = append(e.questions, question)
	e.mu.Unlock()
	if e.answer != nil {
		return e.answer(question)
	}
	return "answer to " + question, nil
}

func (e *fakeEngine) Questions() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.questions...)
}

func (e *fakeEngine) Close() error {
	e.closed.Store(true)
	return nil
}

type countingFactory struct {
	calls atomic.Int32

	mu      sync.Mutex
	err     error
	engines []*fakeEngine
	roles   []string
	domains []string
	answer  func(question string) (string, error)
}

func (f *countingFactory) NewEngine(ctx context.Context, chunks []core.Chunk, graph *core.Graph, expertRole, domain string) (AnswerEngine, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	e := &fakeEngine{answer: f.answer}
	f.engines = append(f.engines, e)
	f.roles = append(f.roles, expertRole)
	f.domains = append(f.domains, domain)
	return e, nil
}

func (f *countingFactory) engine(i int) *fakeEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.engines[i]
}

type harness struct {
	chunker    *countingChunker
	builder    *countingBuilder
	factory    *countingFactory
	manager    *Manager
	dispatcher *Dispatcher
	source     string
}

// newHarness configures a "books" dataset backed by a temp file, plus a
// "missing" dataset whose source does not exist.
func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	source := filepath.Join(t.TempDir(), "books.txt")
	require.NoError(t, os.WriteFile(source, []byte("It was a dark and stormy night."), 0o644))

	registry, err := NewRegistry(
		Config{ID: "books", Name: "Books", SourcePath: source, ExpertRole: "You are a librarian", Domain: "the books"},
		Config{ID: "missing", SourcePath: filepath.Join(t.TempDir(), "nope.txt")},
	)
	require.NoError(t, err)

	h := &harness{
		chunker: &countingChunker{count: 10},
		builder: &countingBuilder{entities: 5, relationships: 3},
		factory: &countingFactory{},
		source:  source,
	}
	h.manager, err = NewManager(registry, h.chunker, h.builder, h.factory, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { h.manager.Close() })

	h.dispatcher, err = NewDispatcher(h.manager)
	require.NoError(t, err)
	return h
}

func (h *harness) buildCalls() (int32, int32, int32) {
	return h.chunker.calls.Load(), h.builder.calls.Load(), h.factory.calls.Load()
}
