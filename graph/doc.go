// Package graph builds a dataset's knowledge graph from its chunks.
//
// Builder runs an ai.GraphExtractor over every chunk on a worker pool,
// retrying transient failures with exponential backoff, then merges the
// per-chunk results. Entities are identified by their normalized
// (type, name) pair and relationships by (source, type, target), so the
// same entity mentioned in many chunks becomes a single node.
//
// A chunk whose extraction keeps failing is logged and skipped. The build
// as a whole fails only when every chunk fails.
package graph
