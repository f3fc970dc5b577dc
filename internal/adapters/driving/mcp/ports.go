package mcp

import (
	"github.com/custodia-labs/docsearch/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the MCP server.
type Ports struct {
	// Answer answers questions and owns conversation memory.
	Answer driving.AnswerService

	// Documents lists the index contents.
	Documents driving.DocumentService

	// Sessions clears upload sessions.
	Sessions driving.SessionService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Answer == nil {
		return ErrMissingAnswerService
	}
	// Documents and Sessions are optional; their tools report unavailability.
	return nil
}
