package pdf

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	output []byte
	err    error
	name   string
	args   []string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.name = name
	m.args = args
	return m.output, m.err
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}

func TestNormaliser_Metadata(t *testing.T) {
	n := New()
	assert.Equal(t, []string{"application/pdf"}, n.SupportedMIMETypes())
	assert.Equal(t, 50, n.Priority())
}

func TestNormalise_NilDocument(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_WithMockRunner(t *testing.T) {
	runner := &mockRunner{output: []byte("PDF Title\n\nPage one text.\n\fPage two text.\n\fPage three.\n\f")}
	n := NewWithRunner(runner)

	result, err := n.Normalise(context.Background(), &domain.RawDocument{
		URI:      "/uploads/report.pdf",
		MIMEType: "application/pdf",
		Content:  []byte("%PDF-1.4 fake"),
	})
	require.NoError(t, err)

	assert.Equal(t, "pdftotext", runner.name)
	require.Len(t, runner.args, 5)
	assert.True(t, strings.HasSuffix(runner.args[3], ".pdf"))
	assert.Equal(t, "-", runner.args[4])

	doc := result.Document
	assert.Equal(t, "PDF Title", doc.Title)
	assert.Equal(t, 3, doc.TotalPages)
	assert.Equal(t, "pdf", doc.Metadata["format"])
	assert.Equal(t, "application/pdf", doc.Metadata["mime_type"])
	assert.Contains(t, doc.Content, "Page two text.")
	assert.NotContains(t, doc.Content, "\f")
}

func TestNormalise_RunnerError(t *testing.T) {
	n := NewWithRunner(&mockRunner{err: errors.New("pdftotext crashed")})

	result, err := n.Normalise(context.Background(), &domain.RawDocument{URI: "a.pdf", Content: []byte("x")})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrExtractionFailure)
	assert.Contains(t, err.Error(), "pdftotext failed")
}

func TestExtractTitle_FallsBackToFilename(t *testing.T) {
	assert.Equal(t, "my document", extractTitle("", &domain.RawDocument{URI: "/path/to/my_document.pdf"}))
}

func TestInstallInstructions(t *testing.T) {
	instructions := InstallInstructions()
	assert.Contains(t, instructions, "pdftotext")
	assert.Contains(t, instructions, "brew install poppler")
	assert.Contains(t, instructions, "apt install poppler-utils")
}

func TestErrPDFToolNotFound(t *testing.T) {
	assert.Contains(t, ErrPDFToolNotFound.Error(), "pdftotext")
}

// Integration test - only runs if pdftotext is available.
func TestNormalise_Integration(t *testing.T) {
	if err := CheckAvailable(); err != nil {
		t.Skip("pdftotext not available, skipping integration test")
	}

	_, err := New().Normalise(context.Background(), &domain.RawDocument{URI: "broken.pdf", Content: []byte("not a pdf")})
	assert.ErrorIs(t, err, domain.ErrExtractionFailure)
}
