// Package docx provides a Normaliser for Word (OOXML) documents.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/normalisers/extract"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// MIMEType is the OOXML word processing content type.
const MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts paragraph and table text from word/document.xml.
// The page count comes from docProps/app.xml when Word recorded one.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a docx archive: %w", domain.ErrExtractionFailure, err)
	}

	body, err := extract.ZipEntry(reader, "word/document.xml")
	if err != nil {
		return nil, fmt.Errorf("%w: word/document.xml: %w", domain.ErrExtractionFailure, err)
	}
	content, err := bodyText(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExtractionFailure, err)
	}

	title := coreTitle(reader)
	if title == "" {
		title = extract.TitleFromURI(raw)
	}

	doc := extract.NewDocument(raw, title, content, "docx", appPages(reader))
	return &driven.NormaliseResult{Document: doc}, nil
}

// bodyText walks the document XML collecting w:t runs.
// Paragraph ends (including those inside table cells) become newlines.
func bodyText(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		out    strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				out.WriteByte('\t')
			case "br", "cr":
				out.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				out.Write(t)
			}
		}
	}

	lines := strings.Split(out.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\t ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

// coreTitle returns dc:title from docProps/core.xml.
func coreTitle(reader *zip.Reader) string {
	data, err := extract.ZipEntry(reader, "docProps/core.xml")
	if err != nil {
		return ""
	}
	var core struct {
		Title string `xml:"title"`
	}
	if err := xml.Unmarshal(data, &core); err != nil {
		return ""
	}
	return strings.TrimSpace(core.Title)
}

// appPages returns the Pages property from docProps/app.xml, or 0.
func appPages(reader *zip.Reader) int {
	data, err := extract.ZipEntry(reader, "docProps/app.xml")
	if err != nil {
		return 0
	}
	var app struct {
		Pages string `xml:"Pages"`
	}
	if err := xml.Unmarshal(data, &app); err != nil {
		return 0
	}
	pages, _ := strconv.Atoi(strings.TrimSpace(app.Pages))
	return pages
}
