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

// Package ai provides abstractions for the AI services used by dossier.
//
// This package defines interfaces for text embeddings, knowledge graph
// extraction and answer generation. Pipeline code depends on these
// interfaces rather than on a concrete model API.
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// Public constructors in ai/openai return interface types. Constructors in
// ai/mock return concrete types so tests can inject behavior and read call
// counts.
//
// # Usage Example
//
//	provider, err := openai.NewProvider(ai.NewConfig(ai.WithHost(host)))
//	if err != nil {
//	    return err
//	}
//	defer provider.Close()
//
//	graph, err := provider.GraphExtractor().ExtractGraph(ctx, passage)
package ai
