// Package mcp provides an MCP (Model Context Protocol) server adapter for docsearch.
// It lets AI assistants ask questions against the indexed documents and manage
// their conversation's upload session.
package mcp

import "errors"

// ErrMissingAnswerService is returned when the answer service is not provided.
var ErrMissingAnswerService = errors.New("mcp: answer service is required")
