package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/core/ports/driving"
	"github.com/custodia-labs/docsearch/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService exposes the index contents and system statistics.
type DocumentService struct {
	index    *IndexService
	sessions *SessionRegistry
	llm      driven.Provider
	rag      domain.RAGSettings
}

// NewDocumentService creates a document service. index and llm may be nil.
func NewDocumentService(
	index *IndexService, sessions *SessionRegistry, llm driven.Provider, rag domain.RAGSettings,
) *DocumentService {
	return &DocumentService{index: index, sessions: sessions, llm: llm, rag: rag}
}

// List groups indexed chunks by document.
func (s *DocumentService) List(ctx context.Context) ([]domain.DocumentGroup, error) {
	groups, err := s.index.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return groups, nil
}

// ClearAll deletes every chunk and resets the conversation's current session.
func (s *DocumentService) ClearAll(ctx context.Context, conversationID string) (int, error) {
	n, err := s.index.Delete(ctx, domain.AllDocuments())
	if err != nil {
		return 0, fmt.Errorf("clear index: %w", err)
	}
	s.sessions.Get(conversationID).reset("")
	logger.Info("Cleared index (%d chunks)", n)
	return n, nil
}

// Stats summarises the system for the conversation.
func (s *DocumentService) Stats(ctx context.Context, conversationID string) (*domain.Stats, error) {
	sc := s.sessions.Get(conversationID)
	current, _ := sc.Current()

	stats := &domain.Stats{
		EmbeddingModel:   s.index.EmbeddingModel(),
		ChunkSize:        s.rag.ChunkSize,
		TopK:             s.rag.TopK,
		HasVectorStore:   s.index.Available(),
		MemoryMessages:   sc.MemoryLen(),
		CurrentSessionID: current,
	}
	if s.llm != nil {
		stats.Model = s.llm.ModelName()
	}
	if !stats.HasVectorStore {
		return stats, nil
	}

	chunks, err := s.index.Count(ctx, domain.AllDocuments())
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	groups, err := s.index.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	stats.VectorStoreDocuments = chunks
	stats.AvailableDocuments = len(groups)
	return stats, nil
}
