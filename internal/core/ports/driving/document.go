package driving

import (
	"context"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// DocumentService exposes the index contents.
type DocumentService interface {
	// List groups indexed chunks by document.
	List(ctx context.Context) ([]domain.DocumentGroup, error)

	// ClearAll empties the index and resets the conversation's current session.
	ClearAll(ctx context.Context, conversationID string) (int, error)

	// Stats summarises the system for the conversation.
	Stats(ctx context.Context, conversationID string) (*domain.Stats, error)
}
