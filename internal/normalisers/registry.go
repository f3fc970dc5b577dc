package normalisers

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/normalisers/csv"
	"github.com/custodia-labs/docsearch/internal/normalisers/docx"
	"github.com/custodia-labs/docsearch/internal/normalisers/html"
	"github.com/custodia-labs/docsearch/internal/normalisers/image"
	"github.com/custodia-labs/docsearch/internal/normalisers/markdown"
	"github.com/custodia-labs/docsearch/internal/normalisers/pdf"
	"github.com/custodia-labs/docsearch/internal/normalisers/plaintext"
	"github.com/custodia-labs/docsearch/internal/normalisers/xlsx"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// extensionMIME maps lowercase file extensions to the MIME types normalisers declare.
var extensionMIME = map[string]string{
	".txt":  "text/plain",
	".log":  "text/x-log",
	".json": "application/json",
	".xml":  "application/xml",
	".md":   "text/markdown",
	".html": "text/html",
	".htm":  "text/html",
	".csv":  "text/csv",
	".docx": docx.MIMEType,
	".xlsx": xlsx.MIMEType,
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

// MIMEForFile returns the MIME type for a filename's extension, or "".
func MIMEForFile(filename string) string {
	return extensionMIME[strings.ToLower(filepath.Ext(filename))]
}

// Registry dispatches raw documents to the highest-priority normaliser for their MIME type.
type Registry struct {
	mu     sync.RWMutex
	byMIME map[string][]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byMIME: make(map[string][]driven.Normaliser)}
}

// NewDefaultRegistry creates a registry with every built-in normaliser.
// ocrLanguages is passed to tesseract for image files.
func NewDefaultRegistry(ocrLanguages string) *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(csv.New())
	r.Register(docx.New())
	r.Register(xlsx.New())
	r.Register(pdf.New())
	r.Register(image.New(ocrLanguages))
	return r
}

// Register adds a normaliser for each MIME type it supports.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, mime := range n.SupportedMIMETypes() {
		list := append(r.byMIME[mime], n)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.byMIME[mime] = list
	}
}

// SupportedMIMETypes returns all registered MIME types, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.byMIME))
	for mime := range r.byMIME {
		out = append(out, mime)
	}
	sort.Strings(out)
	return out
}

// Normalise selects a normaliser for raw and runs it.
// An empty MIMEType is derived from the URI extension.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	mime := raw.MIMEType
	if mime == "" {
		mime = MIMEForFile(raw.URI)
		raw.MIMEType = mime
	}
	// Drop parameters such as "; charset=utf-8".
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}

	r.mu.RLock()
	candidates := r.byMIME[mime]
	r.mu.RUnlock()

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, filepath.Ext(raw.URI))
	}
	return candidates[0].Normalise(ctx, raw)
}
