// Package extract holds helpers shared by the format normalisers.
package extract

import (
	"archive/zip"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// NewDocument builds a normalised document from raw input and extracted text.
// The raw metadata is copied and annotated with the MIME type and format.
func NewDocument(raw *domain.RawDocument, title, content, format string, pages int) domain.Document {
	meta := CopyMetadata(raw.Metadata)
	if meta == nil {
		meta = make(map[string]any, 2)
	}
	meta["mime_type"] = raw.MIMEType
	meta["format"] = format

	return domain.Document{
		ID:         uuid.New().String(),
		URI:        raw.URI,
		Title:      title,
		Content:    content,
		TotalPages: pages,
		Metadata:   meta,
		CreatedAt:  time.Now(),
	}
}

// TitleFromURI turns "reports/q3_sales-summary.pdf" into "q3 sales summary".
// A "title" metadata entry set by the caller wins over the filename.
func TitleFromURI(raw *domain.RawDocument) string {
	if raw.Metadata != nil {
		if title, ok := raw.Metadata["title"].(string); ok && title != "" {
			return title
		}
	}

	name := filepath.Base(raw.URI)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}

// FirstLineTitle returns the first non-blank line shorter than 200 bytes,
// falling back to the filename.
func FirstLineTitle(content string, raw *domain.RawDocument) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.Trim(line, "\x00"))
		if line != "" && len(line) < 200 {
			return line
		}
	}
	return TitleFromURI(raw)
}

// CopyMetadata creates a shallow copy of metadata.
func CopyMetadata(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// ZipEntry reads a named file from an OOXML archive.
// Returns domain.ErrNotFound when the archive has no such entry.
func ZipEntry(r *zip.Reader, name string) ([]byte, error) {
	for _, f := range r.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, domain.ErrNotFound
}

// Table renders tabular rows as text. The first row is the header and each
// following row becomes "header: value" pairs joined by "; ", which keeps
// column meaning attached to every value after chunking.
func Table(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	header := rows[0]
	var b strings.Builder
	b.WriteString(strings.Join(nonEmpty(header), " | "))
	for _, row := range rows[1:] {
		var pairs []string
		for i, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			name := ""
			if i < len(header) {
				name = strings.TrimSpace(header[i])
			}
			if name == "" {
				pairs = append(pairs, cell)
			} else {
				pairs = append(pairs, name+": "+cell)
			}
		}
		if len(pairs) > 0 {
			b.WriteByte('\n')
			b.WriteString(strings.Join(pairs, "; "))
		}
	}
	return strings.TrimSpace(b.String())
}

func nonEmpty(cells []string) []string {
	out := make([]string, 0, len(cells))
	for _, c := range cells {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
