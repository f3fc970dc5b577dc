package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

func TestExtractConversationID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "valid history URI",
			uri:      "docsearch://conversations/c-123/history",
			expected: "c-123",
		},
		{
			name:     "invalid prefix",
			uri:      "file://conversations/c-123/history",
			expected: "",
		},
		{
			name:     "missing history suffix",
			uri:      "docsearch://conversations/c-123",
			expected: "",
		},
		{
			name:     "empty id",
			uri:      "docsearch://conversations//history",
			expected: "",
		},
		{
			name:     "nested path",
			uri:      "docsearch://conversations/a/b/history",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractConversationID(tt.uri))
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleDocumentsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil document service returns empty list", func(t *testing.T) {
		server := newTestServer(t, &Ports{})

		result, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("docsearch://documents"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("returns documents", func(t *testing.T) {
		docs := &mockDocumentService{groups: []domain.DocumentGroup{
			{Filename: "handbook.pdf", Source: "/srv/docs/handbook.pdf", SourceType: "pdf", ChunkCount: 12},
		}}
		server := newTestServer(t, &Ports{Documents: docs})

		result, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("docsearch://documents"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
		assert.Contains(t, result.Contents[0].Text, "handbook.pdf")
		assert.Contains(t, result.Contents[0].Text, `"scope": "permanent"`)
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		server := newTestServer(t, &Ports{Documents: &mockDocumentService{err: errors.New("storage error")}})

		_, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("docsearch://documents"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing documents")
	})
}

func TestServer_handleHistoryResource(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid URI returns not found", func(t *testing.T) {
		server := newTestServer(t, &Ports{})

		_, err := server.handleHistoryResource(ctx, makeReadResourceRequest("docsearch://invalid/uri"))

		require.Error(t, err)
	})

	t.Run("returns the conversation memory", func(t *testing.T) {
		answers := &mockAnswerService{history: map[string][]domain.Exchange{
			"c1": {{Question: "What is DocSearch?", Answer: "A RAG system."}},
		}}
		server := newTestServer(t, &Ports{Answer: answers})

		result, err := server.handleHistoryResource(ctx, makeReadResourceRequest("docsearch://conversations/c1/history"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Contains(t, result.Contents[0].Text, "What is DocSearch?")
	})

	t.Run("unknown conversation is empty", func(t *testing.T) {
		server := newTestServer(t, &Ports{})

		result, err := server.handleHistoryResource(ctx, makeReadResourceRequest("docsearch://conversations/nobody/history"))

		require.NoError(t, err)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})
}
