// Package pdf provides a Normaliser for PDF files backed by poppler's pdftotext.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/normalisers/extract"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

const tool = "pdftotext"

// ErrPDFToolNotFound is returned when pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// Normaliser extracts text from PDF documents.
type Normaliser struct {
	runner extract.CommandRunner
}

// New creates a PDF normaliser that shells out to pdftotext.
func New() *Normaliser {
	return &Normaliser{runner: lookupRunner{}}
}

// NewWithRunner creates a PDF normaliser with a custom command runner.
func NewWithRunner(runner extract.CommandRunner) *Normaliser {
	return &Normaliser{runner: runner}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise runs pdftotext over the document. pdftotext ends every page with
// a form feed, which gives the page count.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	var out []byte
	err := extract.WithTempFile(raw.Content, ".pdf", func(path string) error {
		var runErr error
		out, runErr = n.runner.Run(ctx, tool, "-layout", "-enc", "UTF-8", path, "-")
		return runErr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: pdftotext failed: %w", domain.ErrExtractionFailure, err)
	}

	text := strings.TrimRight(string(out), "\f\n ")
	pages := strings.Count(text, "\f") + 1
	content := strings.TrimSpace(strings.ReplaceAll(text, "\f", "\n\n"))

	doc := extract.NewDocument(raw, extractTitle(content, raw), content, "pdf", pages)
	return &driven.NormaliseResult{Document: doc}, nil
}

func extractTitle(content string, raw *domain.RawDocument) string {
	return extract.FirstLineTitle(content, raw)
}

// CheckAvailable reports whether pdftotext can be found.
func CheckAvailable() error {
	if _, err := exec.LookPath(tool); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns how to install pdftotext.
func InstallInstructions() string {
	return `PDF support requires pdftotext from poppler:
  macOS:         brew install poppler
  Debian/Ubuntu: apt install poppler-utils
  Fedora:        dnf install poppler-utils`
}

// lookupRunner checks PATH before delegating to extract.ExecRunner.
type lookupRunner struct{}

func (lookupRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if err := CheckAvailable(); err != nil {
		return nil, err
	}
	return extract.ExecRunner{}.Run(ctx, name, args...)
}
