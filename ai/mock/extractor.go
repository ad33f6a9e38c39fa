package mock

import (
	"context"
	"strings"
	"sync"
	"unicode"

	"github.com/poiesic/dossier/ai"
)

// MockGraphExtractor is a test double for ai.GraphExtractor.
// It allows custom behavior injection via function fields.
type MockGraphExtractor struct {
	// ExtractGraphFunc is called by ExtractGraph if set.
	ExtractGraphFunc func(ctx context.Context, text string) (*ai.ExtractedGraph, error)

	mu        sync.Mutex
	callCount int
}

// NewMockGraphExtractor creates a mock graph extractor with default behavior.
func NewMockGraphExtractor() *MockGraphExtractor {
	return &MockGraphExtractor{}
}

// ExtractGraph extracts a simple graph from text.
// Default behavior: every capitalized word becomes a "person" entity and
// each entity is linked to the next one with a "mentioned_with" relationship.
func (m *MockGraphExtractor) ExtractGraph(ctx context.Context, text string) (*ai.ExtractedGraph, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.ExtractGraphFunc != nil {
		return m.ExtractGraphFunc(ctx, text)
	}

	graph := &ai.ExtractedGraph{}
	seen := make(map[string]bool)
	for _, word := range strings.Fields(text) {
		word = strings.TrimFunc(word, func(r rune) bool { return !unicode.IsLetter(r) })
		if word == "" || !unicode.IsUpper([]rune(word)[0]) || seen[word] {
			continue
		}
		seen[word] = true
		graph.Entities = append(graph.Entities, ai.ExtractedEntity{
			Name:       word,
			Type:       "person",
			Importance: 5,
		})
	}

	for i := 1; i < len(graph.Entities); i++ {
		graph.Relationships = append(graph.Relationships, ai.ExtractedRelationship{
			Source: graph.Entities[i-1].Name,
			Target: graph.Entities[i].Name,
			Type:   "mentioned_with",
			Weight: 0.5,
		})
	}

	return graph, nil
}

// CallCount returns the number of times ExtractGraph was called.
func (m *MockGraphExtractor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockGraphExtractor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.ExtractGraphFunc = nil
}
