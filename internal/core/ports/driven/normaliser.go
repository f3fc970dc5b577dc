package driven

import (
	"context"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// Normaliser extracts plain text from one family of file formats.
type Normaliser interface {
	SupportedMIMETypes() []string

	// Priority breaks ties when two normalisers claim a MIME type.
	// Format specific normalisers use 50-89, catch-alls 1-9.
	Priority() int

	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult carries the extracted text in Document.Content.
// Chunking happens later, in the post-processor pipeline.
type NormaliseResult struct {
	Document domain.Document
}
