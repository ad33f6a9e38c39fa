// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.GraphExtractor,
// ai.Generator and ai.AIProvider for use in unit tests. The mocks run without
// external AI services and behave deterministically.
//
// # Usage in Tests
//
//	mockProvider := mock.NewMockProvider()
//	graph, err := mockProvider.GraphExtractor().ExtractGraph(ctx, "Holmes met Watson")
//
//	// Custom behavior injection
//	gen := mock.NewMockGenerator()
//	gen.GenerateFunc = func(ctx context.Context, system, prompt string) (string, error) {
//	    return "", errors.New("model offline")
//	}
//
// All mocks are safe for concurrent use and count their calls.
//
// # Default Behavior
//
//   - MockEmbedder: Returns deterministic unit vectors based on a text hash
//   - MockGraphExtractor: Treats capitalized words as entities and links neighbours
//   - MockGenerator: Echoes the last line of the prompt
package mock
