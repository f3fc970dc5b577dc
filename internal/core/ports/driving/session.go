package driving

import "context"

// SessionService tracks upload sessions per conversation.
type SessionService interface {
	// Start begins a fresh upload session and makes it current.
	Start(conversationID string) string

	// Current returns the conversation's current session, if any.
	Current(conversationID string) (string, bool)

	// Members returns the filenames recorded in the current session.
	Members(conversationID string) []string

	// ClearCurrent deletes the current session's chunks and unsets it.
	// Returns the number of chunks removed.
	ClearCurrent(ctx context.Context, conversationID string) (int, error)
}
