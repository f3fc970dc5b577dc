package ai

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	localembed "github.com/custodia-labs/docsearch/internal/adapters/driven/embedding/local"
	ollamaembed "github.com/custodia-labs/docsearch/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// ollamaStub answers the /api/tags ping used by both Ollama adapters.
func ollamaStub(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name        string
		settings    *domain.EmbeddingSettings
		wantNil     bool
		errContains string
	}{
		{name: "nil settings", settings: nil, wantNil: true},
		{name: "empty settings", settings: &domain.EmbeddingSettings{}, wantNil: true},
		{
			name:     "local",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderLocal, Model: "hash-384"},
		},
		{
			name:     "ollama",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "nomic-embed-text"},
		},
		{
			name:     "openai with key",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, APIKey: "k"},
		},
		{
			name:     "openai without key",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI},
			wantNil:  true,
		},
		{
			name:        "anthropic",
			settings:    &domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"},
			wantNil:     true,
			errContains: "anthropic does not support embeddings",
		},
		{
			name:     "unknown provider",
			settings: &domain.EmbeddingSettings{Provider: "unknown"},
			wantNil:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)
			if tt.errContains != "" {
				assert.ErrorContains(t, err, tt.errContains)
			} else {
				assert.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, svc)
			} else {
				assert.NotNil(t, svc)
			}
		})
	}
}

func TestCreateEmbeddingService_LocalDimensions(t *testing.T) {
	svc, err := CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderLocal,
		Model:    "hash-384",
	})
	require.NoError(t, err)

	assert.IsType(t, &localembed.EmbeddingService{}, svc)
	assert.Equal(t, 384, svc.(*localembed.EmbeddingService).Dimensions())
	assert.Equal(t, "hash-384", svc.ModelName())
}

func TestCreateLLMService(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.LLMSettings
		wantNil  bool
	}{
		{name: "nil settings", settings: nil, wantNil: true},
		{name: "local is not a language model", settings: &domain.LLMSettings{Provider: domain.AIProviderLocal}, wantNil: true},
		{name: "openai without key", settings: &domain.LLMSettings{Provider: domain.AIProviderOpenAI}, wantNil: true},
		{name: "openai", settings: &domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", Model: "gpt-3.5-turbo"}},
		{name: "anthropic", settings: &domain.LLMSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"}},
		{name: "ollama", settings: &domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "llama3.2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateLLMService(tt.settings)
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			assert.NotEmpty(t, svc.ModelName())
		})
	}
}

func TestCreateAndValidateEmbeddingService_Reachable(t *testing.T) {
	srv := ollamaStub(t, http.StatusOK)

	svc, err := CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  srv.URL,
		Model:    "nomic-embed-text",
	})

	require.NoError(t, err)
	require.NotNil(t, svc)
	assert.Equal(t, 768, svc.(*ollamaembed.EmbeddingService).Dimensions())
}

func TestCreateAndValidateEmbeddingService_Unreachable(t *testing.T) {
	srv := ollamaStub(t, http.StatusInternalServerError)

	svc, err := CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  srv.URL,
	})

	assert.Nil(t, svc)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.ErrorContains(t, err, "docsearch config set")
}

func TestCreateAndValidateLLMService(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		srv := ollamaStub(t, http.StatusOK)
		svc, err := CreateAndValidateLLMService(&domain.LLMSettings{
			Provider: domain.AIProviderOllama,
			BaseURL:  srv.URL,
			Model:    "llama3.2",
		})
		require.NoError(t, err)
		assert.Equal(t, "llama3.2", svc.ModelName())
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := ollamaStub(t, http.StatusServiceUnavailable)
		svc, err := CreateAndValidateLLMService(&domain.LLMSettings{
			Provider: domain.AIProviderOllama,
			BaseURL:  srv.URL,
		})
		assert.Nil(t, svc)
		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	})

	t.Run("not configured", func(t *testing.T) {
		svc, err := CreateAndValidateLLMService(&domain.LLMSettings{})
		assert.NoError(t, err)
		assert.Nil(t, svc)
	})
}

func TestInitialise_CollectsWarnings(t *testing.T) {
	srv := ollamaStub(t, http.StatusInternalServerError)
	settings := domain.DefaultSettings()
	settings.LLM = domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: srv.URL}

	result := Initialise(settings)
	defer result.Close()

	require.NotNil(t, result.EmbeddingService, "local embedder needs no server")
	assert.Nil(t, result.LLMService)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "unavailable")
}

func TestInitialise_NoLanguageModel(t *testing.T) {
	settings := domain.DefaultSettings()
	settings.LLM.APIKey = ""

	result := Initialise(settings)
	defer result.Close()

	assert.Nil(t, result.LLMService)
	assert.Empty(t, result.Warnings)
}

func TestInitResult_Close_NilServices(t *testing.T) {
	result := &InitResult{}
	assert.NotPanics(t, result.Close)
}
