package api

import (
	"strings"
	"time"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

type askRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id"`
}

func (r *askRequest) validate() error {
	r.Question = strings.TrimSpace(r.Question)
	if r.Question == "" {
		return NewValidationError("question")
	}
	return nil
}

type loadDocumentsRequest struct {
	Directory string `json:"directory"`
}

type ingestResponse struct {
	Message            string                 `json:"message"`
	DocumentsProcessed int                    `json:"documents_processed"`
	Documents          []domain.IngestOutcome `json:"documents"`
	Failures           []domain.IngestFailure `json:"failures"`
	SessionID          string                 `json:"session_id,omitempty"`
}

func newIngestResponse(result *domain.BatchResult, noun string) ingestResponse {
	resp := ingestResponse{
		DocumentsProcessed: result.Processed(),
		Documents:          result.Documents,
		Failures:           result.Failures,
		SessionID:          result.SessionID,
	}
	if resp.Documents == nil {
		resp.Documents = []domain.IngestOutcome{}
	}
	if resp.Failures == nil {
		resp.Failures = []domain.IngestFailure{}
	}
	switch {
	case resp.DocumentsProcessed == 0:
		resp.Message = "No documents were processed"
	case len(resp.Failures) > 0:
		resp.Message = "Some documents were " + noun
	default:
		resp.Message = "Documents " + noun + " successfully"
	}
	return resp
}

type documentView struct {
	Filename   string    `json:"filename"`
	Source     string    `json:"source"`
	SourceType string    `json:"source_type"`
	SessionID  string    `json:"session_id,omitempty"`
	Scope      string    `json:"scope"`
	Chunks     int       `json:"chunks"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type documentsResponse struct {
	Documents        []documentView `json:"documents"`
	Total            int            `json:"total"`
	CurrentSessionID string         `json:"current_session_id,omitempty"`
}

func newDocumentsResponse(groups []domain.DocumentGroup, current string) documentsResponse {
	views := make([]documentView, len(groups))
	for i, g := range groups {
		views[i] = documentView{
			Filename:   g.Filename,
			Source:     g.Source,
			SourceType: g.SourceType,
			SessionID:  g.SessionTag,
			Scope:      g.Label(),
			Chunks:     g.ChunkCount,
			UploadedAt: g.UploadedAt,
		}
	}
	return documentsResponse{Documents: views, Total: len(views), CurrentSessionID: current}
}

type clearResponse struct {
	Message       string `json:"message"`
	DeletedChunks int    `json:"deleted_chunks"`
	SessionID     string `json:"session_id,omitempty"`
}

type historyResponse struct {
	ConversationID string            `json:"conversation_id"`
	History        []domain.Exchange `json:"history"`
}
