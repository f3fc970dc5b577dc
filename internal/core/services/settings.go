package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyChunkSize          = "rag.chunk_size"
	keyChunkOverlap       = "rag.chunk_overlap"
	keyTopK               = "rag.top_k"
	keyMinChunkLength     = "rag.min_chunk_length"
	keyExcerptLength      = "rag.excerpt_length"
	keyRequireVectorStore = "rag.require_vector_store"
	keyAnswerLanguage     = "rag.answer_language"

	keyMaxFileSize      = "ingest.max_file_size_mb"
	keySupportedFormats = "ingest.supported_formats"
	keySourceDir        = "ingest.source_dir"
	keyOCRLanguages     = "ingest.ocr_languages"

	keyEmbedProvider = "embedding.provider"
	keyEmbedModel    = "embedding.model"
	keyEmbedBaseURL  = "embedding.base_url"
	keyEmbedAPIKey   = "embedding.api_key"

	keyLLMProvider    = "llm.provider"
	keyLLMModel       = "llm.model"
	keyLLMBaseURL     = "llm.base_url"
	keyLLMAPIKey      = "llm.api_key"
	keyLLMTemperature = "llm.temperature"
	keyLLMMaxTokens   = "llm.max_tokens"

	keyIntentList      = "intents.list_documents"
	keyIntentSession   = "intents.current_session"
	keyIntentPermanent = "intents.permanent"
	keyIntentRules     = "intents.rules_file"

	keyServerHost    = "server.host"
	keyServerPort    = "server.port"
	keyServerTimeout = "server.request_timeout"

	keyRateRPS   = "ratelimit.requests_per_second"
	keyRateBurst = "ratelimit.burst"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindBool
	kindList
	kindDuration
	kindProvider
)

// settingKinds lists every recognised key and how its string form is parsed.
var settingKinds = map[string]valueKind{
	keyChunkSize:          kindInt,
	keyChunkOverlap:       kindInt,
	keyTopK:               kindInt,
	keyMinChunkLength:     kindInt,
	keyExcerptLength:      kindInt,
	keyRequireVectorStore: kindBool,
	keyAnswerLanguage:     kindString,
	keyMaxFileSize:        kindInt,
	keySupportedFormats:   kindList,
	keySourceDir:          kindString,
	keyOCRLanguages:       kindString,
	keyEmbedProvider:      kindProvider,
	keyEmbedModel:         kindString,
	keyEmbedBaseURL:       kindString,
	keyEmbedAPIKey:        kindString,
	keyLLMProvider:        kindProvider,
	keyLLMModel:           kindString,
	keyLLMBaseURL:         kindString,
	keyLLMAPIKey:          kindString,
	keyLLMTemperature:     kindFloat,
	keyLLMMaxTokens:       kindInt,
	keyIntentList:         kindList,
	keyIntentSession:      kindList,
	keyIntentPermanent:    kindList,
	keyIntentRules:        kindString,
	keyServerHost:         kindString,
	keyServerPort:         kindInt,
	keyServerTimeout:      kindDuration,
	keyRateRPS:            kindFloat,
	keyRateBurst:          kindInt,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
// API keys missing from the config fall back to OPENAI_API_KEY and ANTHROPIC_API_KEY.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.Settings, error) {
	d := domain.DefaultSettings()

	settings := &domain.Settings{
		RAG: domain.RAGSettings{
			ChunkSize:          s.getInt(keyChunkSize, d.RAG.ChunkSize),
			ChunkOverlap:       s.getIntAllowZero(keyChunkOverlap, d.RAG.ChunkOverlap),
			TopK:               s.getInt(keyTopK, d.RAG.TopK),
			MinChunkLength:     s.getIntAllowZero(keyMinChunkLength, d.RAG.MinChunkLength),
			ExcerptLength:      s.getInt(keyExcerptLength, d.RAG.ExcerptLength),
			RequireVectorStore: s.getBool(keyRequireVectorStore, d.RAG.RequireVectorStore),
			AnswerLanguage:     s.getString(keyAnswerLanguage, d.RAG.AnswerLanguage),
		},
		Ingest: domain.IngestSettings{
			MaxFileSizeMB:    s.getInt(keyMaxFileSize, d.Ingest.MaxFileSizeMB),
			SupportedFormats: normaliseFormats(s.getStrings(keySupportedFormats, d.Ingest.SupportedFormats)),
			SourceDir:        s.getString(keySourceDir, d.Ingest.SourceDir),
			OCRLanguages:     s.getString(keyOCRLanguages, d.Ingest.OCRLanguages),
		},
		Intents: domain.IntentSettings{
			Patterns: domain.IntentPatterns{
				ListDocuments:  s.getStrings(keyIntentList, d.Intents.Patterns.ListDocuments),
				CurrentSession: s.getStrings(keyIntentSession, d.Intents.Patterns.CurrentSession),
				Permanent:      s.getStrings(keyIntentPermanent, d.Intents.Patterns.Permanent),
			},
			RulesFile: s.configStore.GetString(keyIntentRules),
		},
		Server: domain.ServerSettings{
			Host:           s.getString(keyServerHost, d.Server.Host),
			Port:           s.getInt(keyServerPort, d.Server.Port),
			RequestTimeout: s.getDuration(keyServerTimeout, d.Server.RequestTimeout),
		},
		RateLimit: domain.RateLimitSettings{
			RequestsPerSecond: s.getFloat(keyRateRPS, d.RateLimit.RequestsPerSecond),
			Burst:             s.getInt(keyRateBurst, d.RateLimit.Burst),
		},
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
		},
		LLM: domain.LLMSettings{
			Provider:    s.getProvider(keyLLMProvider, d.LLM.Provider),
			BaseURL:     s.configStore.GetString(keyLLMBaseURL),
			Temperature: s.getFloat(keyLLMTemperature, d.LLM.Temperature),
			MaxTokens:   s.getInt(keyLLMMaxTokens, d.LLM.MaxTokens),
		},
	}

	settings.Embedding.Model = s.getString(keyEmbedModel, domain.DefaultEmbeddingModels()[settings.Embedding.Provider])
	settings.Embedding.APIKey = s.apiKey(keyEmbedAPIKey, settings.Embedding.Provider)
	settings.LLM.Model = s.getString(keyLLMModel, domain.DefaultLLMModels()[settings.LLM.Provider])
	settings.LLM.APIKey = s.apiKey(keyLLMAPIKey, settings.LLM.Provider)

	return settings, nil
}

// Set parses value according to the key's type and persists it.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	var parsed any
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, key)
		}
		parsed = n
	case kindFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be a number", domain.ErrInvalidInput, key)
		}
		parsed = f
	case kindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
		}
		parsed = b
	case kindList:
		parsed = splitList(value)
	case kindDuration:
		if _, err := time.ParseDuration(strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("%w: %s must be a duration such as 90s", domain.ErrInvalidInput, key)
		}
		parsed = strings.TrimSpace(value)
	case kindProvider:
		provider := domain.AIProvider(strings.ToLower(strings.TrimSpace(value)))
		if !provider.IsValid() {
			return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, value)
		}
		parsed = provider.String()
	default:
		parsed = value
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys returns the recognised configuration keys in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

// Validate checks that current settings can start the application.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	if settings.Embedding.Provider == domain.AIProviderAnthropic {
		return fmt.Errorf("%w: anthropic does not provide embeddings", domain.ErrInvalidInput)
	}
	if settings.Embedding.Provider.RequiresAPIKey() && settings.Embedding.APIKey == "" {
		return fmt.Errorf("%w: API key required for %s embeddings", domain.ErrInvalidInput, settings.Embedding.Provider)
	}
	if settings.LLM.Provider == domain.AIProviderLocal {
		return fmt.Errorf("%w: the local provider has no language model", domain.ErrInvalidInput)
	}
	if settings.LLM.Provider.RequiresAPIKey() && settings.LLM.APIKey == "" {
		return fmt.Errorf("%w: API key required for %s (set %s or llm.api_key)",
			domain.ErrInvalidInput, settings.LLM.Provider, envKeyFor(settings.LLM.Provider))
	}
	return nil
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

// getIntAllowZero is getInt for keys where zero is a meaningful setting.
func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getStrings(key string, defaultVal []string) []string {
	if vals := s.configStore.GetStringSlice(key); len(vals) > 0 {
		return vals
	}
	return defaultVal
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) apiKey(key string, provider domain.AIProvider) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	if env := envKeyFor(provider); env != "" {
		return s.getenv(env)
	}
	return ""
}

func envKeyFor(provider domain.AIProvider) string {
	switch provider {
	case domain.AIProviderOpenAI:
		return "OPENAI_API_KEY"
	case domain.AIProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return ""
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// normaliseFormats lowercases extensions and adds the leading dot.
func normaliseFormats(formats []string) []string {
	out := make([]string, 0, len(formats))
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		if !strings.HasPrefix(f, ".") {
			f = "." + f
		}
		out = append(out, f)
	}
	return out
}
