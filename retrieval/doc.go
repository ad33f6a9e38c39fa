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

// Package retrieval finds the chunks most relevant to a question.
//
// A Searcher combines two signals:
//
//   - semantic similarity between the question embedding and chunk embeddings
//   - knowledge graph hits, where an entity named in the question links to
//     the chunks that mention it
//
// Chunks found both ways score 1.5x their similarity, graph-only chunks score
// a flat 1.2, semantic-only chunks score their similarity, and a chunk
// containing every meaningful question word gets a further 0.3.
package retrieval
