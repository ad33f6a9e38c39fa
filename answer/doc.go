// Package answer turns a built dataset into something that can answer questions.
//
// A Factory binds the chunks and knowledge graph of one dataset to an in-memory
// chunk store and a retrieval.Searcher. The resulting Engine retrieves context for
// each question and asks a Generator to answer in the dataset's expert voice.
package answer
