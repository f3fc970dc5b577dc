package driven

import "context"

// Embedder maps text to vectors. Chunks and the queries searched against
// them must come from the same Embedder.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingService is an Embedder with a lifecycle.
type EmbeddingService interface {
	Embedder
	Provider
}
