package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question       string `json:"question" jsonschema:"the question to answer from the indexed documents"`
	ConversationID string `json:"conversation_id,omitempty" jsonschema:"conversation whose session and memory to use (default: default)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer  string          `json:"answer"`
	Mode    string          `json:"mode"`
	Context string          `json:"context"`
	Sources []domain.Source `json:"sources"`
}

// ListDocumentsInput is the (empty) input schema for the list_documents tool.
type ListDocumentsInput struct{}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput is one indexed document.
type DocumentOutput struct {
	Filename   string `json:"filename"`
	Source     string `json:"source"`
	SourceType string `json:"source_type"`
	Scope      string `json:"scope"`
	Chunks     int    `json:"chunks"`
}

// ConversationInput names a conversation.
type ConversationInput struct {
	ConversationID string `json:"conversation_id,omitempty" jsonschema:"conversation to act on (default: default)"`
}

// ClearSessionOutput is the output schema for the clear_session tool.
type ClearSessionOutput struct {
	SessionID     string `json:"session_id,omitempty"`
	DeletedChunks int    `json:"deleted_chunks"`
}

// HistoryInput is the input schema for the history tool.
type HistoryInput struct {
	ConversationID string `json:"conversation_id,omitempty" jsonschema:"conversation to read (default: default)"`
	Clear          bool   `json:"clear,omitempty" jsonschema:"empty the memory after reading it"`
}

// HistoryOutput is the output schema for the history tool.
type HistoryOutput struct {
	History []domain.Exchange `json:"history"`
	Count   int               `json:"count"`
}

var errToolUnavailable = errors.New("tool not available on this server")

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the indexed documents, citing the excerpts used",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the indexed documents grouped by file",
	}, s.handleListDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "clear_session",
		Description: "Delete the documents uploaded in the conversation's current session",
	}, s.handleClearSession)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "history",
		Description: "Read (and optionally clear) the conversation memory",
	}, s.handleHistory)
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, AskOutput{}, errors.New("question is required")
	}

	answer := s.ports.Answer.Ask(ctx, conversation(input.ConversationID), input.Question)
	return nil, AskOutput{
		Answer:  answer.Answer,
		Mode:    string(answer.Mode),
		Context: answer.Context,
		Sources: answer.Sources,
	}, nil
}

func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	if s.ports.Documents == nil {
		return nil, ListDocumentsOutput{}, errToolUnavailable
	}

	groups, err := s.ports.Documents.List(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	output := ListDocumentsOutput{
		Documents: documentOutputs(groups),
		Count:     len(groups),
	}
	return nil, output, nil
}

func (s *Server) handleClearSession(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ConversationInput,
) (*mcp.CallToolResult, ClearSessionOutput, error) {
	if s.ports.Sessions == nil {
		return nil, ClearSessionOutput{}, errToolUnavailable
	}

	conv := conversation(input.ConversationID)
	current, _ := s.ports.Sessions.Current(conv)
	n, err := s.ports.Sessions.ClearCurrent(ctx, conv)
	if err != nil {
		return nil, ClearSessionOutput{}, err
	}
	return nil, ClearSessionOutput{SessionID: current, DeletedChunks: n}, nil
}

func (s *Server) handleHistory(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input HistoryInput,
) (*mcp.CallToolResult, HistoryOutput, error) {
	conv := conversation(input.ConversationID)
	history := s.ports.Answer.History(conv)
	if history == nil {
		history = []domain.Exchange{}
	}
	if input.Clear {
		s.ports.Answer.ClearHistory(conv)
	}
	return nil, HistoryOutput{History: history, Count: len(history)}, nil
}

func documentOutputs(groups []domain.DocumentGroup) []DocumentOutput {
	out := make([]DocumentOutput, len(groups))
	for i, g := range groups {
		out[i] = DocumentOutput{
			Filename:   g.Filename,
			Source:     g.Source,
			SourceType: g.SourceType,
			Scope:      g.Label(),
			Chunks:     g.ChunkCount,
		}
	}
	return out
}

func conversation(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return domain.DefaultConversation
}
