// Package driven declares what the core needs from the outside world:
// text extraction, chunk processing, vector storage, model backends,
// configuration and prompts.
//
// The model ports are deliberately small. Answering needs a Generator,
// indexing needs an Embedder, and only the composition root sees the
// Provider lifecycle. VectorIndex, EmbeddingService and LLMService may all
// be absent at runtime; services report that in their results instead of
// failing to start.
//
// This package imports domain and nothing else.
package driven
