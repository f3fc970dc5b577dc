package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	localembed "github.com/custodia-labs/docsearch/internal/adapters/driven/embedding/local"
	"github.com/custodia-labs/docsearch/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/core/services"
	"github.com/custodia-labs/docsearch/internal/normalisers"
	"github.com/custodia-labs/docsearch/internal/postprocessors"
)

// --- Mock implementations ---

// mockLLMService echoes the retrieved context back so tests can see what was grounded.
type mockLLMService struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockLLMService) Chat(_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return "Based on: " + messages[0].Content, nil
}

func (m *mockLLMService) ModelName() string         { return "mock-llm" }
func (m *mockLLMService) Ping(context.Context) error { return nil }
func (m *mockLLMService) Close() error               { return nil }

type mockPromptStore struct{}

func (mockPromptStore) Load(name string) (string, error) {
	if name == driven.PromptRAGSystem {
		return "Answer in %s from:", nil
	}
	return "Chat in %s.", nil
}

func (mockPromptStore) Reload() {}

// --- Fixture ---

type testServer struct {
	echo     *echo.Echo
	llm      *mockLLMService
	settings domain.Settings
}

type serverOption func(*domain.Settings)

func withMaxFileSizeMB(n int) serverOption {
	return func(s *domain.Settings) { s.Ingest.MaxFileSizeMB = n }
}

func withSourceDir(dir string) serverOption {
	return func(s *domain.Settings) { s.Ingest.SourceDir = dir }
}

// newTestServer wires the real services over an in-memory index and the local embedder.
func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	return buildServer(t, memory.NewVectorIndex(), opts...)
}

// newServerWithoutIndex wires the services with no vector store.
func newServerWithoutIndex(t *testing.T) *testServer {
	t.Helper()
	return buildServer(t, nil)
}

func buildServer(t *testing.T, store driven.VectorIndex, opts ...serverOption) *testServer {
	t.Helper()

	settings := domain.DefaultSettings()
	settings.RAG.MinChunkLength = 10
	settings.Server.RequestTimeout = 0
	for _, opt := range opts {
		opt(&settings)
	}

	pipeline, err := postprocessors.NewDefaultPipeline(domain.PipelineConfigFor(settings.RAG))
	require.NoError(t, err)

	var index *services.IndexService
	if store != nil {
		index = services.NewIndexService(store, localembed.NewEmbeddingService(localembed.Config{}))
	}
	llm := &mockLLMService{}
	sessions := services.NewSessionRegistry()

	deps := &Dependencies{
		Answers: services.NewAnswerService(sessions, services.NewIntentResolver(settings.Intents.Patterns),
			index, llm, mockPromptStore{}, services.AnswerConfigFrom(settings)),
		Documents: services.NewDocumentService(index, sessions, llm, settings.RAG),
		Ingest: services.NewIngestService(settings.Ingest, normalisers.NewDefaultRegistry(settings.Ingest.OCRLanguages),
			pipeline, index, sessions),
		Sessions:       services.NewSessionService(sessions, index),
		IngestSettings: settings.Ingest,
		Server:         settings.Server,
		Version:        "test",
	}
	return &testServer{echo: NewServer(deps), llm: llm, settings: settings}
}

// do sends a request through the full middleware stack.
func (s *testServer) do(t *testing.T, method, path, conversation string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if conversation != "" {
		req.Header.Set(HeaderConversationID, conversation)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

// upload posts files as a multipart form.
func (s *testServer) upload(t *testing.T, conversation string, files map[string][]byte) *httptest.ResponseRecorder {
	t.Helper()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, name := range names {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(files[name])
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	if conversation != "" {
		req.Header.Set(HeaderConversationID, conversation)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
