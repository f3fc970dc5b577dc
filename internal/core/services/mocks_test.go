package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	localembed "github.com/custodia-labs/docsearch/internal/adapters/driven/embedding/local"
	"github.com/custodia-labs/docsearch/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/normalisers"
	"github.com/custodia-labs/docsearch/internal/postprocessors"
)

// --- Mock implementations ---

// mockEmbeddingService wraps the local hashing embedder and can be made to fail.
type mockEmbeddingService struct {
	*localembed.EmbeddingService
	mu         sync.Mutex
	err        error
	batchCalls int
	embedCalls int
}

func newMockEmbedding() *mockEmbeddingService {
	return &mockEmbeddingService{EmbeddingService: localembed.NewEmbeddingService(localembed.Config{})}
}

func (m *mockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.embedCalls++
	err := m.err
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.EmbeddingService.Embed(ctx, text)
}

func (m *mockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batchCalls++
	err := m.err
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.EmbeddingService.EmbedBatch(ctx, texts)
}

// mockLLMService records the messages it receives.
type mockLLMService struct {
	mu       sync.Mutex
	reply    string
	err      error
	calls    int
	messages []driven.ChatMessage
}

func (m *mockLLMService) Chat(_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.messages = messages
	if m.err != nil {
		return "", m.err
	}
	if m.reply != "" {
		return m.reply, nil
	}
	return fmt.Sprintf("answer %d", m.calls), nil
}

func (m *mockLLMService) ModelName() string         { return "mock-llm" }
func (m *mockLLMService) Ping(context.Context) error { return nil }
func (m *mockLLMService) Close() error               { return nil }

// lastSystem returns the system prompt of the most recent call.
func (m *mockLLMService) lastSystem() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return ""
	}
	return m.messages[0].Content
}

// panickingLLM fails the way a buggy provider adapter would.
type panickingLLM struct{}

func (panickingLLM) Chat(context.Context, []driven.ChatMessage, driven.ChatOptions) (string, error) {
	panic("nil map in provider response")
}

// mockPromptStore serves fixed templates.
type mockPromptStore struct {
	err error
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	switch name {
	case driven.PromptRAGSystem:
		return "Answer from the excerpts. Respond in %s.", nil
	case driven.PromptConversationSystem:
		return "No documents available. Respond in %s.", nil
	default:
		return "", domain.ErrNotFound
	}
}

func (m *mockPromptStore) Reload() {}

// mockAIValidator records what it was asked to validate.
type mockAIValidator struct {
	embeddingErr  error
	llmErr        error
	lastEmbedding *domain.EmbeddingSettings
	lastLLM       *domain.LLMSettings
}

func (m *mockAIValidator) ValidateEmbedding(cfg *domain.EmbeddingSettings) error {
	m.lastEmbedding = cfg
	return m.embeddingErr
}

func (m *mockAIValidator) ValidateLLM(cfg *domain.LLMSettings) error {
	m.lastLLM = cfg
	return m.llmErr
}

// failingIndex is a vector index whose every call fails.
type failingIndex struct {
	*memory.VectorIndex
}

var errIndexDown = errors.New("index unavailable")

func (f failingIndex) ListDocuments(context.Context) ([]domain.DocumentGroup, error) {
	return nil, errIndexDown
}

func (f failingIndex) Delete(context.Context, domain.Scope) (int, error) {
	return 0, errIndexDown
}

func (f failingIndex) Count(context.Context, domain.Scope) (int, error) {
	return 0, errIndexDown
}

// --- Fixture ---

// fixture wires the services over an in-memory index, the local embedder and a mock LLM.
type fixture struct {
	settings  domain.Settings
	store     *memory.VectorIndex
	embedder  *mockEmbeddingService
	llm       *mockLLMService
	sessions  *SessionRegistry
	index     *IndexService
	resolver  *IntentResolver
	answers   *AnswerService
	ingest    *IngestService
	session   *SessionService
	documents *DocumentService
}

type fixtureOption func(*domain.Settings)

func withMinChunkLength(n int) fixtureOption {
	return func(s *domain.Settings) { s.RAG.MinChunkLength = n }
}

func withMaxFileSizeMB(n int) fixtureOption {
	return func(s *domain.Settings) { s.Ingest.MaxFileSizeMB = n }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	settings := domain.DefaultSettings()
	settings.RAG.MinChunkLength = 10
	for _, opt := range opts {
		opt(&settings)
	}

	pipeline, err := postprocessors.NewDefaultPipeline(domain.PipelineConfigFor(settings.RAG))
	require.NoError(t, err)

	f := &fixture{
		settings: settings,
		store:    memory.NewVectorIndex(),
		embedder: newMockEmbedding(),
		llm:      &mockLLMService{},
		sessions: NewSessionRegistry(),
		resolver: NewIntentResolver(settings.Intents.Patterns),
	}
	f.index = NewIndexService(f.store, f.embedder)
	f.answers = NewAnswerService(f.sessions, f.resolver, f.index, f.llm, &mockPromptStore{}, AnswerConfigFrom(settings))
	f.ingest = NewIngestService(settings.Ingest, normalisers.NewDefaultRegistry(settings.Ingest.OCRLanguages),
		pipeline, f.index, f.sessions)
	f.session = NewSessionService(f.sessions, f.index)
	f.documents = NewDocumentService(f.index, f.sessions, f.llm, settings.RAG)
	return f
}

// upload ingests files as one batch for the conversation.
func (f *fixture) upload(t *testing.T, conversationID string, files map[string]string) *domain.BatchResult {
	t.Helper()
	var uploads []domain.Upload
	for name, content := range files {
		uploads = append(uploads, domain.Upload{Filename: name, Content: []byte(content)})
	}
	result, err := f.ingest.IngestBatch(context.Background(), conversationID, uploads)
	require.NoError(t, err)
	return result
}

// permanent ingests a file into the permanent corpus.
func (f *fixture) permanent(t *testing.T, name, content string) {
	t.Helper()
	_, err := f.ingest.Ingest(context.Background(), domain.Upload{Filename: name, Content: []byte(content)}, "")
	require.NoError(t, err)
}
