// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package graph

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/dossier/ai"
	"github.com/poiesic/dossier/core"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
)

// Builder extracts and merges a knowledge graph from chunks.
type Builder struct {
	extractor   ai.GraphExtractor
	pool        *ants.Pool
	maxAttempts int
	baseDelay   time.Duration
	progress    io.Writer
	logger      *slog.Logger
}

type Option func(*Builder) error

func WithPoolSize(size int) Option {
	return func(b *Builder) error {
		if size < 1 {
			size = 1
		}
		if b.pool != nil {
			b.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		b.pool = pool
		return nil
	}
}

// WithRetry configures how often a chunk's extraction is attempted and the
// initial delay between attempts.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(b *Builder) error {
		if maxAttempts < 1 {
			return ErrInvalidMaxAttempts
		}
		b.maxAttempts = maxAttempts
		b.baseDelay = baseDelay
		return nil
	}
}

// WithProgress reports extraction progress to w.
func WithProgress(w io.Writer) Option {
	return func(b *Builder) error {
		b.progress = w
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

func NewBuilder(extractor ai.GraphExtractor, opts ...Option) (*Builder, error) {
	if extractor == nil {
		return nil, ErrExtractorRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	b := &Builder{
		extractor:   extractor,
		pool:        pool,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(b); optErr != nil {
			b.Release()
			return nil, optErr
		}
	}

	b.logger = b.logger.With("component", "graph-builder")
	return b, nil
}

// Release releases the worker pool.
func (b *Builder) Release() {
	if b.pool != nil {
		b.pool.Release()
	}
}

// Build runs extraction over every chunk and merges the results.
// The returned graph lists entities and relationships in order of first mention.
func (b *Builder) Build(ctx context.Context, chunks []core.Chunk) (*core.Graph, error) {
	if len(chunks) == 0 {
		return core.NewGraph(nil, nil), nil
	}

	var tracker *ProgressTracker
	if b.progress != nil {
		tracker = NewProgressTracker(b.progress, len(chunks), max(len(chunks)/100, 1))
		tracker.Start()
		defer tracker.Finish()
	}

	results := make([]*ai.ExtractedGraph, len(chunks))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures int
		lastErr  error
	)

	for i := range chunks {
		wg.Add(1)
		err := b.pool.Submit(func() {
			defer wg.Done()
			graph, err := b.extract(ctx, chunks[i])
			if tracker != nil {
				tracker.Increment(1)
			}
			if err != nil {
				b.logger.Warn("skipping chunk after failed extraction", "chunk", chunks[i].Index, "err", err)
				mu.Lock()
				failures++
				lastErr = err
				mu.Unlock()
				return
			}
			results[i] = graph
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, err
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if failures == len(chunks) {
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, lastErr)
	}

	graph := merge(chunks, results)
	b.logger.Info("built knowledge graph",
		"chunks", len(chunks),
		"failed_chunks", failures,
		"entities", len(graph.Entities),
		"relationships", len(graph.Relationships))
	return graph, nil
}

func (b *Builder) extract(ctx context.Context, chunk core.Chunk) (*ai.ExtractedGraph, error) {
	var result *ai.ExtractedGraph
	err := RetryWithBackoff(ctx, b.logger.With("chunk", chunk.Index), b.maxAttempts, b.baseDelay, func(int) error {
		var err error
		result, err = b.extractor.ExtractGraph(ctx, chunk.Contents)
		return err
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = &ai.ExtractedGraph{}
	}
	return result, nil
}

// merge folds per-chunk extraction results into one graph.
// results[i] is nil when chunk i failed.
func merge(chunks []core.Chunk, results []*ai.ExtractedGraph) *core.Graph {
	var (
		entities      []*core.Entity
		relationships []*core.Relationship
		entityByID    = make(map[core.ID]*core.Entity)
		relByID       = make(map[core.ID]*core.Relationship)
	)

	for i, result := range results {
		if result == nil {
			continue
		}
		chunkID := chunks[i].Id

		// Relationship endpoints are names; resolve them against this chunk's entities.
		local := make(map[string]core.ID, len(result.Entities))
		for _, extracted := range result.Entities {
			candidate := &core.Entity{
				Name:        strings.TrimSpace(extracted.Name),
				Type:        core.NormalizeLabel(extracted.Type),
				Description: strings.TrimSpace(extracted.Description),
				Importance:  extracted.Importance,
			}
			if core.ValidateEntity(candidate) != nil {
				continue
			}
			candidate.Id = core.IDFromContent(candidate.Tuple())
			local[core.NormalizeLabel(candidate.Name)] = candidate.Id

			entity, ok := entityByID[candidate.Id]
			if !ok {
				entity = candidate
				entityByID[entity.Id] = entity
				entities = append(entities, entity)
			} else {
				entity.Importance = max(entity.Importance, candidate.Importance)
				if entity.Description == "" {
					entity.Description = candidate.Description
				}
			}
			entity.ChunkIds = appendUnique(entity.ChunkIds, chunkID)
		}

		for _, extracted := range result.Relationships {
			sourceID, sourceOK := local[core.NormalizeLabel(extracted.Source)]
			targetID, targetOK := local[core.NormalizeLabel(extracted.Target)]
			if !sourceOK || !targetOK {
				continue
			}
			candidate := &core.Relationship{
				SourceId:    sourceID,
				TargetId:    targetID,
				Type:        core.NormalizeLabel(extracted.Type),
				Description: strings.TrimSpace(extracted.Description),
				Weight:      extracted.Weight,
			}
			if core.ValidateRelationship(candidate) != nil {
				continue
			}
			candidate.Id = core.IDFromContent(candidate.Triple())

			rel, ok := relByID[candidate.Id]
			if !ok {
				rel = candidate
				relByID[rel.Id] = rel
				relationships = append(relationships, rel)
			} else {
				rel.Weight = max(rel.Weight, candidate.Weight)
				if rel.Description == "" {
					rel.Description = candidate.Description
				}
			}
			rel.ChunkIds = appendUnique(rel.ChunkIds, chunkID)
		}
	}

	return core.NewGraph(entities, relationships)
}

func appendUnique(ids []core.ID, id core.ID) []core.ID {
	if len(ids) > 0 && ids[len(ids)-1] == id {
		return ids
	}
	return append(ids, id)
}
