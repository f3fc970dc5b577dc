package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/logger"
)

// IndexService pairs a vector index with the embedding model that feeds it.
// Chunks and queries are always embedded by the same service.
type IndexService struct {
	index    driven.VectorIndex
	embedder driven.EmbeddingService
}

// NewIndexService creates an index service. It returns nil when index is nil,
// which callers treat as "no vector store configured".
func NewIndexService(index driven.VectorIndex, embedder driven.EmbeddingService) *IndexService {
	if index == nil {
		return nil
	}
	return &IndexService{index: index, embedder: embedder}
}

// Available reports whether a vector store is configured.
func (s *IndexService) Available() bool {
	return s != nil && s.index != nil
}

// EmbeddingModel returns the embedding model name, or "" without an embedder.
func (s *IndexService) EmbeddingModel() string {
	if s == nil || s.embedder == nil {
		return ""
	}
	return s.embedder.ModelName()
}

// Insert embeds every chunk and then stores them with their record.
// If embedding fails nothing is written.
func (s *IndexService) Insert(ctx context.Context, record domain.DocumentRecord, chunks []domain.Chunk) (int, error) {
	if !s.Available() {
		return 0, domain.ErrNoVectorStore
	}
	if len(chunks) == 0 {
		return 0, nil
	}
	embedded, err := s.embed(ctx, chunks)
	if err != nil {
		return 0, err
	}

	inserted, err := s.index.Insert(ctx, record, embedded)
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", record.Filename, err)
	}
	logger.Debug("Indexed %s: %d of %d chunks new", record.Filename, inserted, len(chunks))
	return inserted, nil
}

// Replace embeds the new chunks first and only then swaps them in for the
// permanent chunks from source. If embedding fails the old chunks stay.
func (s *IndexService) Replace(
	ctx context.Context, source string, record domain.DocumentRecord, chunks []domain.Chunk,
) (int, error) {
	if !s.Available() {
		return 0, domain.ErrNoVectorStore
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("%w: no chunks to replace %s with", domain.ErrInvalidInput, source)
	}
	embedded, err := s.embed(ctx, chunks)
	if err != nil {
		return 0, err
	}

	inserted, err := s.index.Replace(ctx, source, record, embedded)
	if err != nil {
		return 0, fmt.Errorf("replace %s: %w", source, err)
	}
	logger.Debug("Reindexed %s: %d of %d chunks new", source, inserted, len(chunks))
	return inserted, nil
}

// embed returns copies of chunks carrying their embeddings.
func (s *IndexService) embed(ctx context.Context, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingFailure, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks", domain.ErrEmbeddingFailure, len(vectors), len(chunks))
	}

	embedded := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		c.Embedding = vectors[i]
		embedded[i] = c
	}
	return embedded, nil
}

// Search embeds the query and returns the k nearest chunks within scope.
// An empty scope returns no results without calling the embedder.
func (s *IndexService) Search(ctx context.Context, query string, k int, scope domain.Scope) ([]domain.RetrievalResult, error) {
	if !s.Available() {
		return nil, domain.ErrNoVectorStore
	}
	if scope.IsEmpty() || k <= 0 {
		return []domain.RetrievalResult{}, nil
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingFailure, err)
	}
	results, err := s.index.Search(ctx, vector, k, scope)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if results == nil {
		results = []domain.RetrievalResult{}
	}
	return results, nil
}

// Delete removes every chunk in scope.
func (s *IndexService) Delete(ctx context.Context, scope domain.Scope) (int, error) {
	if !s.Available() {
		return 0, nil
	}
	return s.index.Delete(ctx, scope)
}

// DeleteSource removes the permanent chunks that came from source and no other document.
func (s *IndexService) DeleteSource(ctx context.Context, source string) (int, error) {
	if !s.Available() {
		return 0, nil
	}
	return s.index.DeleteSource(ctx, source)
}

// ListDocuments groups the index contents by document.
func (s *IndexService) ListDocuments(ctx context.Context) ([]domain.DocumentGroup, error) {
	if !s.Available() {
		return []domain.DocumentGroup{}, nil
	}
	return s.index.ListDocuments(ctx)
}

// Count returns the number of chunks in scope.
func (s *IndexService) Count(ctx context.Context, scope domain.Scope) (int, error) {
	if !s.Available() {
		return 0, nil
	}
	return s.index.Count(ctx, scope)
}
