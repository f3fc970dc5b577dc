package driving

import (
	"context"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// AnswerService answers questions against the indexed documents.
type AnswerService interface {
	// Ask resolves the question's intent and scope, retrieves context and queries the model.
	// It never returns nil; failures are reported as an answer in error mode.
	Ask(ctx context.Context, conversationID, question string) *domain.Answer

	// History returns the conversation's memory in chronological order.
	History(conversationID string) []domain.Exchange

	// ClearHistory empties the conversation's memory.
	ClearHistory(conversationID string)
}
