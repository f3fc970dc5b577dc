package driven

import (
	"context"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// PostProcessor is one stage of turning extracted text into chunks.
// The first stage receives nil chunks and creates them from doc.Content;
// later stages filter or annotate what they are given.
type PostProcessor interface {
	Name() string
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline runs its stages in order and returns the final chunks.
type PostProcessorPipeline interface {
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
