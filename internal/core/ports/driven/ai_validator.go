package driven

import "github.com/custodia-labs/docsearch/internal/core/domain"

// AIConfigValidator checks provider settings before they are saved by
// building the adapter and pinging it.
type AIConfigValidator interface {
	ValidateEmbedding(config *domain.EmbeddingSettings) error
	ValidateLLM(config *domain.LLMSettings) error
}
