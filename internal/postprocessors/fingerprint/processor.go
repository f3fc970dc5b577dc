// Package fingerprint provides a processor that keys chunks by a hash of their normalised text.
package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// Processor sets each chunk's ID to its content fingerprint.
type Processor struct{}

// New creates a new fingerprint processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "fingerprint"
}

// Process assigns IDs in place and returns the chunks.
func (p *Processor) Process(_ context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	for i := range chunks {
		chunks[i].ID = Of(chunks[i].Content)
	}
	return chunks, nil
}

// Of returns the hex SHA-256 of text with whitespace runs collapsed and trimmed.
func Of(text string) string {
	normalised := strings.Join(strings.Fields(text), " ")
	sum := sha256.Sum256([]byte(normalised))
	return hex.EncodeToString(sum[:])
}
