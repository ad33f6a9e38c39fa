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

package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/dossier/ai"
	"github.com/poiesic/dossier/core"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultBatchSize    = 16
)

// TextChunker splits plain text sources into embedded chunks.
type TextChunker struct {
	embedder     ai.Embedder
	pool         *ants.Pool
	chunkSize    int
	chunkOverlap int
	batchSize    int
	logger       *slog.Logger
}

type Option func(*TextChunker) error

func WithChunkSize(size int) Option {
	return func(c *TextChunker) error {
		c.chunkSize = size
		return nil
	}
}

func WithChunkOverlap(overlap int) Option {
	return func(c *TextChunker) error {
		c.chunkOverlap = overlap
		return nil
	}
}

// WithBatchSize sets how many chunks go into a single embedding call.
func WithBatchSize(size int) Option {
	return func(c *TextChunker) error {
		if size < 1 {
			size = 1
		}
		c.batchSize = size
		return nil
	}
}

func WithPoolSize(size int) Option {
	return func(c *TextChunker) error {
		if size < 1 {
			size = 1
		}
		if c.pool != nil {
			c.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		c.pool = pool
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *TextChunker) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

func NewTextChunker(embedder ai.Embedder, opts ...Option) (*TextChunker, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	c := &TextChunker{
		embedder:     embedder,
		pool:         pool,
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		batchSize:    DefaultBatchSize,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(c); optErr != nil {
			c.Release()
			return nil, optErr
		}
	}

	if c.chunkSize < 1 || c.chunkOverlap < 0 || c.chunkOverlap >= c.chunkSize {
		c.Release()
		return nil, fmt.Errorf("%w: size %d, overlap %d", ErrInvalidChunking, c.chunkSize, c.chunkOverlap)
	}

	c.logger = c.logger.With("component", "chunker")
	return c, nil
}

// Chunk reads sourcePath, splits it and embeds every chunk.
// Chunks come back in source order with Index starting at 0.
func (c *TextChunker) Chunk(ctx context.Context, sourcePath string) ([]core.Chunk, error) {
	chunks, err := c.split(ctx, sourcePath)
	if err != nil {
		return nil, err
	}

	c.logger.Info("split source", "source", sourcePath, "chunks", len(chunks))

	if err := c.embed(ctx, chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

func (c *TextChunker) split(ctx context.Context, sourcePath string) ([]core.Chunk, error) {
	f, err := os.Open(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadSource, err)
	}
	defer f.Close()

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(c.chunkSize),
		textsplitter.WithChunkOverlap(c.chunkOverlap),
	)
	docs, err := documentloaders.NewText(f).LoadAndSplit(ctx, splitter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadSource, err)
	}

	chunks := make([]core.Chunk, 0, len(docs))
	for _, doc := range docs {
		text := strings.TrimSpace(doc.PageContent)
		if text == "" {
			continue
		}
		index := len(chunks)
		chunks = append(chunks, core.Chunk{
			Id:       core.IDFromContent(strconv.Itoa(index) + ":" + text),
			Index:    index,
			Source:   sourcePath,
			Contents: text,
		})
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoChunks, sourcePath)
	}
	return chunks, nil
}

// Release releases the worker pool.
// The chunker should not be used after calling Release.
func (c *TextChunker) Release() {
	if c.pool != nil {
		c.pool.Release()
	}
}
