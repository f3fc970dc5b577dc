package driven

import "context"

// Generator turns a conversation into the next assistant reply.
type Generator interface {
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)
}

// Provider is the lifecycle shared by every model backend.
type Provider interface {
	// ModelName is reported in stats and answer metadata.
	ModelName() string

	// Ping makes the cheapest request the backend offers. Used at startup
	// and by "config" to check credentials.
	Ping(ctx context.Context) error

	Close() error
}

// LLMService is a Generator with a lifecycle.
type LLMService interface {
	Generator
	Provider
}

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatOptions tunes a single Chat call. Zero values leave the provider default.
type ChatOptions struct {
	MaxTokens   int
	Temperature float64
}
