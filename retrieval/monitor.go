package retrieval

import (
	"iter"
	"log/slog"
	"slices"

	"github.com/poiesic/dossier/core"
)

// SearchMonitor observes each stage of a search.
type SearchMonitor interface {
	Start(query string)
	AfterSemanticSearch(ids []uint64)
	AfterEntityMatch(entities []*core.Entity)
	AfterGraphSearch(ids iter.Seq[uint64])
	AfterChunkRetrieval(chunks []*core.Chunk)
	SemanticAndGraphHit(chunk *core.Chunk)
	SemanticHit(chunk *core.Chunk)
	GraphHit(chunk *core.Chunk)
	Finish(results []*core.SearchResult)
}

type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                      {}
func (n *noopMonitor) AfterSemanticSearch(_ []uint64)      {}
func (n *noopMonitor) AfterEntityMatch(_ []*core.Entity)   {}
func (n *noopMonitor) AfterGraphSearch(_ iter.Seq[uint64]) {}
func (n *noopMonitor) AfterChunkRetrieval(_ []*core.Chunk) {}
func (n *noopMonitor) SemanticAndGraphHit(_ *core.Chunk)   {}
func (n *noopMonitor) SemanticHit(_ *core.Chunk)           {}
func (n *noopMonitor) GraphHit(_ *core.Chunk)              {}
func (n *noopMonitor) Finish(_ []*core.SearchResult)       {}

// LoggingMonitor writes each search stage to a logger at debug level.
type LoggingMonitor struct {
	logger *slog.Logger
}

var _ SearchMonitor = (*LoggingMonitor)(nil)

func NewLoggingMonitor(logger *slog.Logger) *LoggingMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingMonitor{logger: logger}
}

func (m *LoggingMonitor) Start(query string) {
	m.logger.Debug("search started", "query", query)
}

func (m *LoggingMonitor) AfterSemanticSearch(ids []uint64) {
	m.logger.Debug("semantic search done", "hits", len(ids))
}

func (m *LoggingMonitor) AfterEntityMatch(entities []*core.Entity) {
	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.Name
	}
	m.logger.Debug("matched entities", "entities", names)
}

func (m *LoggingMonitor) AfterGraphSearch(ids iter.Seq[uint64]) {
	m.logger.Debug("graph search done", "hits", len(slices.Collect(ids)))
}

func (m *LoggingMonitor) AfterChunkRetrieval(chunks []*core.Chunk) {
	m.logger.Debug("retrieved chunks", "count", len(chunks))
}

func (m *LoggingMonitor) SemanticAndGraphHit(chunk *core.Chunk) {
	m.logger.Debug("semantic and graph hit", "chunk", chunk.Index)
}

func (m *LoggingMonitor) SemanticHit(chunk *core.Chunk) {
	m.logger.Debug("semantic hit", "chunk", chunk.Index)
}

func (m *LoggingMonitor) GraphHit(chunk *core.Chunk) {
	m.logger.Debug("graph hit", "chunk", chunk.Index)
}

func (m *LoggingMonitor) Finish(results []*core.SearchResult) {
	m.logger.Debug("search finished", "results", len(results))
}
