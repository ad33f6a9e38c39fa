package ingestion

import (
	"context"
	"fmt"
	"sync"

	"github.com/poiesic/dossier/core"
)

// embed fills in chunk vectors, one embedding call per batch.
// Batches run concurrently on the chunker's pool; the first error wins.
func (c *TextChunker) embed(ctx context.Context, chunks []core.Chunk) error {
	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for start := 0; start < len(chunks); start += c.batchSize {
		batch := chunks[start:min(start+c.batchSize, len(chunks))]
		wg.Add(1)
		err := c.pool.Submit(func() {
			defer wg.Done()
			if batchCtx.Err() != nil {
				return
			}
			if err := c.embedBatch(batchCtx, batch); err != nil {
				fail(err)
			}
		})
		if err != nil {
			wg.Done()
			fail(err)
			break
		}
	}
	wg.Wait()

	if firstErr == nil {
		firstErr = ctx.Err()
	}
	if firstErr != nil {
		c.logger.Error("error generating embeddings", "err", firstErr)
		return firstErr
	}
	return nil
}

func (c *TextChunker) embedBatch(ctx context.Context, batch []core.Chunk) error {
	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = batch[i].Contents
	}

	c.logger.Debug("generating embeddings for chunks", "chunks", len(texts), "first_index", batch[0].Index)
	vectors, err := c.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("%w: expected %d, received %d", ErrEmbeddingMismatch, len(batch), len(vectors))
	}

	for i := range batch {
		batch[i].Vector = vectors[i]
	}
	return nil
}
