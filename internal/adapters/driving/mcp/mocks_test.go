package mcp

import (
	"context"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	answer       *domain.Answer
	history      map[string][]domain.Exchange
	lastConv     string
	lastQuestion string
	cleared      []string
}

func (m *mockAnswerService) Ask(_ context.Context, conversationID, question string) *domain.Answer {
	m.lastConv = conversationID
	m.lastQuestion = question
	if m.answer != nil {
		return m.answer
	}
	return &domain.Answer{Answer: "ok", Question: question, Mode: domain.AnswerModeRAG, Sources: []domain.Source{}}
}

func (m *mockAnswerService) History(conversationID string) []domain.Exchange {
	return m.history[conversationID]
}

func (m *mockAnswerService) ClearHistory(conversationID string) {
	m.cleared = append(m.cleared, conversationID)
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	groups []domain.DocumentGroup
	err    error
}

func (m *mockDocumentService) List(context.Context) ([]domain.DocumentGroup, error) {
	return m.groups, m.err
}

func (m *mockDocumentService) ClearAll(context.Context, string) (int, error) {
	return len(m.groups), m.err
}

func (m *mockDocumentService) Stats(context.Context, string) (*domain.Stats, error) {
	return &domain.Stats{}, m.err
}

// mockSessionService is a mock implementation of driving.SessionService.
type mockSessionService struct {
	current string
	deleted int
	err     error
}

func (m *mockSessionService) Start(string) string { return "new" }

func (m *mockSessionService) Current(string) (string, bool) {
	return m.current, m.current != ""
}

func (m *mockSessionService) Members(string) []string { return nil }

func (m *mockSessionService) ClearCurrent(context.Context, string) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.current = ""
	return m.deleted, nil
}
