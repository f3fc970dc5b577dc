package cli

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// mockAnswerService implements driving.AnswerService.
type mockAnswerService struct {
	questions []string
	history   []domain.Exchange
	cleared   bool
	lastConv  string
}

func (m *mockAnswerService) Ask(_ context.Context, conversationID, question string) *domain.Answer {
	m.lastConv = conversationID
	m.questions = append(m.questions, question)
	return &domain.Answer{
		Answer:   "answer to " + question,
		Question: question,
		Mode:     domain.AnswerModeRAG,
		Context:  "all documents",
		Sources: []domain.Source{
			{Text: "excerpt...", Filename: "report.pdf", Page: 2, Rank: 1, Score: 0.91},
		},
	}
}

func (m *mockAnswerService) History(conversationID string) []domain.Exchange {
	m.lastConv = conversationID
	return m.history
}

func (m *mockAnswerService) ClearHistory(conversationID string) {
	m.lastConv = conversationID
	m.cleared = true
}

// mockDocumentService implements driving.DocumentService.
type mockDocumentService struct {
	groups   []domain.DocumentGroup
	stats    *domain.Stats
	cleared  int
	listErr  error
	lastConv string
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.DocumentGroup, error) {
	return m.groups, m.listErr
}

func (m *mockDocumentService) ClearAll(_ context.Context, conversationID string) (int, error) {
	m.lastConv = conversationID
	return m.cleared, nil
}

func (m *mockDocumentService) Stats(_ context.Context, conversationID string) (*domain.Stats, error) {
	m.lastConv = conversationID
	if m.stats == nil {
		return &domain.Stats{}, nil
	}
	return m.stats, nil
}

// mockIngestService implements driving.IngestService.
type mockIngestService struct {
	ingested []domain.Upload
	loaded   []string
	batch    []domain.Upload
	failOn   string
}

func (m *mockIngestService) Ingest(_ context.Context, upload domain.Upload, _ string) (*domain.IngestOutcome, error) {
	if upload.Filename == m.failOn {
		return nil, domain.ErrUnsupportedFormat
	}
	m.ingested = append(m.ingested, upload)
	return &domain.IngestOutcome{
		Filename: upload.Filename,
		FileType: domain.FileType(upload.Filename),
		FileSize: upload.Size(),
		Chunks:   1,
		Inserted: 1,
	}, nil
}

func (m *mockIngestService) IngestBatch(
	_ context.Context, _ string, uploads []domain.Upload,
) (*domain.BatchResult, error) {
	m.batch = uploads
	result := &domain.BatchResult{SessionID: "session-1"}
	for _, u := range uploads {
		result.Documents = append(result.Documents, domain.IngestOutcome{Filename: u.Filename, FileSize: u.Size(), Chunks: 1})
	}
	return result, nil
}

func (m *mockIngestService) LoadDirectory(_ context.Context, dir string) (*domain.BatchResult, error) {
	m.loaded = append(m.loaded, dir)
	return &domain.BatchResult{
		Documents: []domain.IngestOutcome{{Filename: "loaded.txt", FileSize: 2048, Chunks: 3}},
	}, nil
}

func (m *mockIngestService) Refresh(_ context.Context, path string) (*domain.IngestOutcome, error) {
	return &domain.IngestOutcome{Filename: path, Chunks: 1}, nil
}

func (m *mockIngestService) Remove(_ context.Context, _ string) (int, error) {
	return 0, nil
}

// mockSessionService implements driving.SessionService.
type mockSessionService struct {
	current string
	members []string
	deleted int
}

func (m *mockSessionService) Start(_ string) string {
	m.current = "new-session"
	return m.current
}

func (m *mockSessionService) Current(_ string) (string, bool) {
	return m.current, m.current != ""
}

func (m *mockSessionService) Members(_ string) []string {
	return m.members
}

func (m *mockSessionService) ClearCurrent(_ context.Context, _ string) (int, error) {
	n := m.deleted
	m.current = ""
	return n, nil
}

// mockSettingsService implements driving.SettingsService.
type mockSettingsService struct {
	settings    domain.Settings
	values      map[string]string
	validateErr error
	pingErr     error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{
		settings: domain.DefaultSettings(),
		values:   make(map[string]string),
	}
}

func (m *mockSettingsService) Get() (*domain.Settings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if key == "bogus" {
		return errors.New("invalid input: unknown setting \"bogus\"")
	}
	m.values[key] = value
	switch key {
	case "llm.provider":
		m.settings.LLM.Provider = domain.AIProvider(value)
	case "llm.model":
		m.settings.LLM.Model = value
	case "llm.api_key":
		m.settings.LLM.APIKey = value
	}
	return nil
}

func (m *mockSettingsService) Keys() []string {
	return []string{"rag.chunk_size", "rag.top_k"}
}

func (m *mockSettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

func (m *mockSettingsService) Validate() error {
	return m.validateErr
}

func (m *mockSettingsService) ValidateEmbeddingConfig() error {
	return m.pingErr
}

func (m *mockSettingsService) ValidateLLMConfig() error {
	return m.pingErr
}

// mockWatchService implements driving.WatchService.
type mockWatchService struct {
	dir string
	err error
}

func (m *mockWatchService) Watch(_ context.Context, dir string) error {
	m.dir = dir
	return m.err
}

// testServices is the set of mocks installed by setupTestServices.
type testServices struct {
	answers   *mockAnswerService
	documents *mockDocumentService
	ingest    *mockIngestService
	sessions  *mockSessionService
	settings  *mockSettingsService
	watch     *mockWatchService
}

// setupTestServices installs fresh mocks and returns a cleanup that restores
// the previous services and resets command flags.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		answers: &mockAnswerService{},
		documents: &mockDocumentService{
			groups: []domain.DocumentGroup{
				{Filename: "handbook.pdf", Source: "source/handbook.pdf", SourceType: "pdf", ChunkCount: 12},
				{
					Filename: "notes.md", Source: "upload", SourceType: "md", SessionTag: "sess-1",
					ChunkCount: 2, UploadedAt: time.Now().Add(-time.Hour),
				},
			},
		},
		ingest:   &mockIngestService{},
		sessions: &mockSessionService{},
		settings: newMockSettingsService(),
		watch:    &mockWatchService{},
	}

	prevAnswer, prevDocs, prevIngest := answerService, documentService, ingestService
	prevSessions, prevSettings, prevWatch := sessionService, settingsService, watchService

	SetServices(&Services{
		Answer:    ts.answers,
		Documents: ts.documents,
		Ingest:    ts.ingest,
		Sessions:  ts.sessions,
		Settings:  ts.settings,
		Watch:     ts.watch,
	})

	return ts, func() {
		answerService, documentService, ingestService = prevAnswer, prevDocs, prevIngest
		sessionService, settingsService, watchService = prevSessions, prevSettings, prevWatch
		resetFlags()
	}
}

func resetFlags() {
	conversation = domain.DefaultConversation
	verbose, inMemory, dataDir = false, false, defaultDataDir()
	askJSON = false
	documentsJSON = false
	historyClear = false
	ingestPermanent = true
	serveHost, servePort, serveWatch = "", 0, false
	rootCmd.SetArgs(nil)
	rootCmd.SetIn(nil)
}
