// Package filter provides a processor that drops chunks carrying no retrievable signal.
package filter

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// DefaultMinLength is the default minimum trimmed chunk length in characters.
const DefaultMinLength = 50

// Processor removes chunks that are too short or contain no letter or digit.
// Surviving chunks keep their original positions.
type Processor struct {
	minLength int
}

// Option configures the filter processor.
type Option func(*Processor)

// WithMinLength sets the minimum trimmed length. Chunks of exactly this length are kept.
func WithMinLength(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.minLength = n
		}
	}
}

// New creates a new filter processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{minLength: DefaultMinLength}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "filter"
}

// Process returns the chunks that pass Keep.
func (p *Processor) Process(_ context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	kept := make([]domain.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if p.Keep(c.Content) {
			kept = append(kept, c)
		}
	}
	return kept, nil
}

// Keep reports whether text is long enough and has alphanumeric content.
func (p *Processor) Keep(text string) bool {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < p.minLength {
		return false
	}
	return strings.IndexFunc(trimmed, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}
