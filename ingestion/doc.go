// Package ingestion turns a dataset's source file into embedded chunks.
//
// TextChunker reads the file, splits it with langchaingo's recursive
// character splitter and embeds the chunks in batches on a worker pool.
package ingestion
