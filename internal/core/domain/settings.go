package domain

import (
	"fmt"
	"strings"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderLocal is the built-in offline hashing embedder.
	AIProviderLocal AIProvider = "local"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderLocal, AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderLocal
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderLocal:
		return "Local (offline hashing embedder)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model identifier.
	Model string

	// BaseURL is the API endpoint (for Ollama and OpenAI-compatible servers).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the language model identifier.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// Temperature is the sampling temperature.
	Temperature float64

	// MaxTokens caps the generated answer length.
	MaxTokens int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderLocal {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// RAGSettings holds chunking, retrieval and answering configuration.
type RAGSettings struct {
	ChunkSize      int
	ChunkOverlap   int
	TopK           int
	MinChunkLength int

	// ExcerptLength is the maximum number of characters shown per cited source.
	ExcerptLength int

	// RequireVectorStore turns the no-index fallback into an error.
	RequireVectorStore bool

	// AnswerLanguage is the language the model is asked to respond in.
	AnswerLanguage string
}

// IngestSettings holds ingestion limits and locations.
type IngestSettings struct {
	// MaxFileSizeMB is the largest accepted file in megabytes.
	MaxFileSizeMB int

	// SupportedFormats is the set of accepted extensions, lowercase with a leading dot.
	SupportedFormats []string

	// SourceDir holds the permanent corpus.
	SourceDir string

	// OCRLanguages is passed to the OCR tool (e.g. "eng+fra").
	OCRLanguages string
}

// MaxFileSize returns the limit in bytes.
func (s IngestSettings) MaxFileSize() int64 {
	return int64(s.MaxFileSizeMB) * 1024 * 1024
}

// Supports reports whether an extension (with or without dot, any case) is accepted.
func (s IngestSettings) Supports(ext string) bool {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	for _, f := range s.SupportedFormats {
		if strings.ToLower(f) == ext {
			return true
		}
	}
	return false
}

// IntentSettings holds intent pattern configuration.
type IntentSettings struct {
	Patterns IntentPatterns

	// RulesFile is an optional YAML file overriding Patterns.
	RulesFile string
}

// ServerSettings holds HTTP listener configuration.
type ServerSettings struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
}

// Addr returns host:port.
func (s ServerSettings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RateLimitSettings holds provider request limits.
type RateLimitSettings struct {
	// RequestsPerSecond is the sustained rate; zero disables limiting.
	RequestsPerSecond float64
	Burst             int
}

// Settings holds all application settings.
type Settings struct {
	RAG       RAGSettings
	Ingest    IngestSettings
	Intents   IntentSettings
	Server    ServerSettings
	RateLimit RateLimitSettings
	Embedding EmbeddingSettings
	LLM       LLMSettings
}

// DefaultSettings returns settings with sensible defaults.
// Embeddings work offline out of the box; the LLM needs an API key.
func DefaultSettings() Settings {
	return Settings{
		RAG: RAGSettings{
			ChunkSize:      1000,
			ChunkOverlap:   200,
			TopK:           5,
			MinChunkLength: 50,
			ExcerptLength:  200,
			AnswerLanguage: "the language of the question",
		},
		Ingest: IngestSettings{
			MaxFileSizeMB:    50,
			SupportedFormats: DefaultSupportedFormats(),
			SourceDir:        "./source",
			OCRLanguages:     "eng+fra",
		},
		Intents: IntentSettings{
			Patterns: DefaultIntentPatterns(),
		},
		Server: ServerSettings{
			Host:           "127.0.0.1",
			Port:           8000,
			RequestTimeout: 120 * time.Second,
		},
		RateLimit: RateLimitSettings{
			RequestsPerSecond: 5,
			Burst:             5,
		},
		Embedding: EmbeddingSettings{
			Provider: AIProviderLocal,
			Model:    DefaultEmbeddingModels()[AIProviderLocal],
		},
		LLM: LLMSettings{
			Provider:    AIProviderOpenAI,
			Model:       "gpt-3.5-turbo",
			Temperature: 0.7,
			MaxTokens:   2000,
		},
	}
}

// Validate checks values that would make chunking or retrieval meaningless.
func (s Settings) Validate() error {
	if s.RAG.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive", ErrInvalidInput)
	}
	if s.RAG.ChunkOverlap < 0 || s.RAG.ChunkOverlap >= s.RAG.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, chunk_size)", ErrInvalidInput)
	}
	if s.RAG.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive", ErrInvalidInput)
	}
	if s.Ingest.MaxFileSizeMB <= 0 {
		return fmt.Errorf("%w: max_file_size must be positive", ErrInvalidInput)
	}
	if len(s.Ingest.SupportedFormats) == 0 {
		return fmt.Errorf("%w: supported_formats is empty", ErrInvalidInput)
	}
	return nil
}

// DefaultSupportedFormats returns the extensions accepted out of the box.
func DefaultSupportedFormats() []string {
	return []string{
		".pdf", ".txt", ".md", ".html", ".docx", ".xlsx", ".csv",
		".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tiff",
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderLocal,
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderLocal:  "hash-384",
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// EmbeddingDimensions returns the vector size of each known embedding model.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"hash-384":               384,
		"nomic-embed-text":       768,
		"mxbai-embed-large":      1024,
		"all-minilm":             384,
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-3.5-turbo",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config for extensibility - new processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	// Key is processor name, value is processor-specific config.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// PipelineConfigFor builds the chunk pipeline configuration from RAG settings:
// chunker, then filter, then fingerprint.
func PipelineConfigFor(rag RAGSettings) PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker", "filter", "fingerprint"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": rag.ChunkSize,
				"overlap":    rag.ChunkOverlap,
			},
			"filter": {
				"min_length": rag.MinChunkLength,
			},
		},
	}
}

// DefaultPipelineConfig returns the default pipeline configuration.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfigFor(DefaultSettings().RAG)
}
