// Package image provides an OCR Normaliser for raster images using tesseract.
package image

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/normalisers/extract"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

const tool = "tesseract"

// DefaultLanguages is the tesseract language list used when none is configured.
const DefaultLanguages = "eng"

// ErrOCRToolNotFound is returned when tesseract is not installed.
var ErrOCRToolNotFound = errors.New("tesseract not found in PATH")

// Normaliser extracts text from images with OCR.
type Normaliser struct {
	runner    extract.CommandRunner
	languages string
}

// New creates an OCR normaliser for the given tesseract languages ("eng+fra").
func New(languages string) *Normaliser {
	return NewWithRunner(lookupRunner{}, languages)
}

// NewWithRunner creates an OCR normaliser with a custom command runner.
func NewWithRunner(runner extract.CommandRunner, languages string) *Normaliser {
	if languages == "" {
		languages = DefaultLanguages
	}
	return &Normaliser{runner: runner, languages: languages}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"image/png",
		"image/jpeg",
		"image/gif",
		"image/bmp",
		"image/tiff",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise runs tesseract and returns the recognised text.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	suffix := strings.ToLower(filepath.Ext(raw.URI))
	var out []byte
	err := extract.WithTempFile(raw.Content, suffix, func(path string) error {
		var runErr error
		out, runErr = n.runner.Run(ctx, tool, path, "stdout", "-l", n.languages)
		return runErr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: tesseract failed: %w", domain.ErrExtractionFailure, err)
	}

	content := strings.TrimSpace(strings.ReplaceAll(string(out), "\f", ""))
	doc := extract.NewDocument(raw, extract.TitleFromURI(raw), content, "image", 1)
	doc.Metadata["ocr_languages"] = n.languages
	return &driven.NormaliseResult{Document: doc}, nil
}

// CheckAvailable reports whether tesseract can be found.
func CheckAvailable() error {
	if _, err := exec.LookPath(tool); err != nil {
		return ErrOCRToolNotFound
	}
	return nil
}

type lookupRunner struct{}

func (lookupRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if err := CheckAvailable(); err != nil {
		return nil, err
	}
	return extract.ExecRunner{}.Run(ctx, name, args...)
}
