// Package chunker provides a recursive separator-aware text chunking processor.
package chunker

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// DefaultSeparators are tried in order: paragraphs, lines, sentences, words, characters.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Processor splits document content into overlapping chunks that never exceed the
// configured size, preferring the coarsest separator that fits.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithSeparators replaces the separator priority list.
// The list should end with "" so oversized runs can always be split.
func WithSeparators(separators ...string) Option {
	return func(p *Processor) {
		if len(separators) > 0 {
			p.separators = separators
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
// Positions are assigned here, before any filtering downstream.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if strings.TrimSpace(doc.Content) == "" {
		// Empty content produces no chunks
		return nil, nil
	}

	content := doc.Content
	texts := p.split(content, p.separators)

	totalPages := doc.TotalPages
	if totalPages < 1 {
		totalPages = 1
	}

	chunks := make([]domain.Chunk, 0, len(texts))
	cursor := 0
	for i, text := range texts {
		offset := locate(content, text, cursor)
		cursor = offset

		chunks = append(chunks, domain.Chunk{
			DocumentID:    doc.ID,
			Content:       text,
			Position:      i,
			EstimatedPage: EstimatePage(offset, len(content), totalPages),
			Metadata:      map[string]any{"offset": offset},
		})
	}

	return chunks, nil
}

// EstimatePage maps a byte offset to a page proportionally, clamped to [1, totalPages].
func EstimatePage(offset, contentLen, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if contentLen <= 0 {
		return 1
	}
	page := int(float64(offset)/float64(contentLen)*float64(totalPages)) + 1
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// locate finds text at or after cursor, falling back to the first occurrence
// and then to the cursor itself when whitespace was collapsed during merging.
func locate(content, text string, cursor int) int {
	if idx := strings.Index(content[cursor:], text); idx >= 0 {
		return cursor + idx
	}
	if idx := strings.Index(content, text); idx >= 0 {
		return idx
	}
	return cursor
}

// split recursively splits text with the first separator present in it,
// descending to finer separators for pieces that are still too long.
func (p *Processor) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var finer []string
	for i, s := range separators {
		if s == "" {
			separator = s
			break
		}
		if strings.Contains(text, s) {
			separator = s
			finer = separators[i+1:]
			break
		}
	}

	var pieces []string
	if separator == "" {
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
	} else {
		for _, s := range strings.Split(text, separator) {
			if s != "" {
				pieces = append(pieces, s)
			}
		}
	}

	var out, fitting []string
	for _, piece := range pieces {
		if utf8.RuneCountInString(piece) < p.chunkSize {
			fitting = append(fitting, piece)
			continue
		}
		if len(fitting) > 0 {
			out = append(out, p.merge(fitting, separator)...)
			fitting = nil
		}
		if len(finer) == 0 {
			out = append(out, piece)
		} else {
			out = append(out, p.split(piece, finer)...)
		}
	}
	if len(fitting) > 0 {
		out = append(out, p.merge(fitting, separator)...)
	}
	return out
}

// merge joins consecutive pieces into chunks of at most chunkSize characters,
// carrying up to overlap characters of trailing pieces into the next chunk.
func (p *Processor) merge(pieces []string, separator string) []string {
	sepLen := utf8.RuneCountInString(separator)
	joinCost := func(n int) int {
		if n > 0 {
			return sepLen
		}
		return 0
	}

	var docs, current []string
	total := 0
	for _, piece := range pieces {
		n := utf8.RuneCountInString(piece)
		if total+n+joinCost(len(current)) > p.chunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, separator)); doc != "" {
				docs = append(docs, doc)
			}
			for total > p.overlap || (total > 0 && total+n+joinCost(len(current)) > p.chunkSize) {
				total -= utf8.RuneCountInString(current[0]) + joinCost(len(current)-1)
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n + joinCost(len(current)-1)
	}
	if doc := strings.TrimSpace(strings.Join(current, separator)); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}
