package ai

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

func TestConfigValidator_ValidateEmbedding(t *testing.T) {
	okServer := ollamaStub(t, http.StatusOK)
	downServer := ollamaStub(t, http.StatusBadGateway)

	tests := []struct {
		name     string
		settings *domain.EmbeddingSettings
		wantErr  string
	}{
		{name: "nil settings", settings: nil},
		{name: "no provider", settings: &domain.EmbeddingSettings{Model: "m"}},
		{name: "local needs no server", settings: &domain.EmbeddingSettings{Provider: domain.AIProviderLocal}},
		{
			name:     "ollama reachable",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: okServer.URL},
		},
		{
			name:     "ollama down",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: downServer.URL},
			wantErr:  "ollama: status 502",
		},
		{
			name:     "anthropic",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic, APIKey: "key"},
			wantErr:  "does not support embeddings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewConfigValidator().ValidateEmbedding(tt.settings)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfigValidator_ValidateLLM(t *testing.T) {
	okServer := ollamaStub(t, http.StatusOK)
	downServer := ollamaStub(t, http.StatusServiceUnavailable)

	tests := []struct {
		name     string
		settings *domain.LLMSettings
		wantErr  string
	}{
		{name: "nil settings", settings: nil},
		{name: "no provider", settings: &domain.LLMSettings{Model: "m"}},
		{
			name:     "ollama reachable",
			settings: &domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: okServer.URL},
		},
		{
			name:     "ollama down",
			settings: &domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: downServer.URL},
			wantErr:  "ollama: status 503",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewConfigValidator().ValidateLLM(tt.settings)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
