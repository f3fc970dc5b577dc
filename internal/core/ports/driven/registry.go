package driven

import (
	"context"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// NormaliserRegistry routes a raw document to the highest priority
// normaliser for its MIME type. An empty MIME type is derived from the
// filename extension.
type NormaliserRegistry interface {
	// Normalise returns domain.ErrUnsupportedFormat when no normaliser matches.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
	Register(normaliser Normaliser)
	SupportedMIMETypes() []string
}
