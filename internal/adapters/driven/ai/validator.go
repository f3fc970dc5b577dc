package ai

import (
	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
)

var _ driven.AIConfigValidator = ConfigValidator{}

// ConfigValidator builds the adapter a settings change would select and
// pings it, so "config set" can refuse a key the provider rejects.
// Unconfigured settings always pass.
type ConfigValidator struct{}

func NewConfigValidator() ConfigValidator {
	return ConfigValidator{}
}

func (ConfigValidator) ValidateEmbedding(settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()
	return ping(svc)
}

func (ConfigValidator) ValidateLLM(settings *domain.LLMSettings) error {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()
	return ping(svc)
}
