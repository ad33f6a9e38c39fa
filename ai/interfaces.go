package ai

import "context"

// Embedder generates vector embeddings from text.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// GraphExtractor pulls entities and the relationships between them out of text.
// Implementations must be thread-safe for concurrent use.
type GraphExtractor interface {
	// ExtractGraph analyzes a passage and returns the entities it mentions
	// and the relationships it states. Relationship endpoints refer to
	// entity names. Returns an empty graph if nothing is found.
	ExtractGraph(ctx context.Context, text string) (*ExtractedGraph, error)
}

// Generator produces free text from a system prompt and a user prompt.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// ExtractedEntity is an entity identified in a passage.
type ExtractedEntity struct {
	// Name is the entity as written in the text, e.g. "Sherlock Holmes".
	Name string

	// Type categorizes the entity. Must match one of EntityTypes.
	Type string

	// Description is a short phrase about the entity taken from the passage.
	Description string

	// Importance is a score from 1-10 indicating how central the entity
	// is to the passage.
	Importance int
}

// ExtractedRelationship is a directed relationship stated in a passage.
type ExtractedRelationship struct {
	Source      string
	Target      string
	Type        string
	Description string

	// Weight is the extractor's confidence in the relationship, 0-1.
	Weight float64
}

// ExtractedGraph is the result of running extraction over one passage.
type ExtractedGraph struct {
	Entities      []ExtractedEntity
	Relationships []ExtractedRelationship
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// GraphExtractor returns the entity and relationship extraction service.
	GraphExtractor() GraphExtractor

	// Generator returns the answer generation service.
	Generator() Generator

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
