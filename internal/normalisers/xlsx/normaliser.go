// Package xlsx provides a Normaliser for Excel (OOXML) workbooks.
//
// Each worksheet is rendered as a section headed by its name, with rows
// written as header: value pairs. The sheet count is reported as the page
// count so chunk page estimates point at the right sheet.
package xlsx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/normalisers/extract"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// MIMEType is the OOXML spreadsheet content type.
const MIMEType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Normaliser handles XLSX workbooks.
type Normaliser struct{}

// New creates a new XLSX normaliser.
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

// Normalise extracts every worksheet's cell values.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: not an xlsx archive: %w", domain.ErrExtractionFailure, err)
	}

	sheets, err := listSheets(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExtractionFailure, err)
	}
	shared, err := sharedStrings(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: shared strings: %w", domain.ErrExtractionFailure, err)
	}

	var sections []string
	for _, sheet := range sheets {
		data, err := extract.ZipEntry(reader, sheet.path)
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %q: %w", domain.ErrExtractionFailure, sheet.name, err)
		}
		rows, err := sheetRows(data, shared)
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %q: %w", domain.ErrExtractionFailure, sheet.name, err)
		}
		if table := extract.Table(rows); table != "" {
			sections = append(sections, "Sheet: "+sheet.name+"\n"+table)
		}
	}

	// Sheets are separated by form feeds so each one counts as a page.
	doc := extract.NewDocument(raw, extract.TitleFromURI(raw), strings.Join(sections, "\n\f\n"), "xlsx", len(sheets))
	doc.Metadata["sheets"] = len(sheets)
	return &driven.NormaliseResult{Document: doc}, nil
}

type sheetRef struct {
	name string
	path string
}

// listSheets resolves workbook sheet order to worksheet part paths.
func listSheets(reader *zip.Reader) ([]sheetRef, error) {
	data, err := extract.ZipEntry(reader, "xl/workbook.xml")
	if err != nil {
		return nil, fmt.Errorf("xl/workbook.xml: %w", err)
	}
	var wb struct {
		Sheets []struct {
			Name string `xml:"name,attr"`
			RID  string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
		} `xml:"sheets>sheet"`
	}
	if err := xml.Unmarshal(data, &wb); err != nil {
		return nil, fmt.Errorf("xl/workbook.xml: %w", err)
	}

	targets := map[string]string{}
	if rels, err := extract.ZipEntry(reader, "xl/_rels/workbook.xml.rels"); err == nil {
		var rs struct {
			Rels []struct {
				ID     string `xml:"Id,attr"`
				Target string `xml:"Target,attr"`
			} `xml:"Relationship"`
		}
		if err := xml.Unmarshal(rels, &rs); err == nil {
			for _, r := range rs.Rels {
				target := strings.TrimPrefix(r.Target, "/")
				if !strings.HasPrefix(target, "xl/") {
					target = path.Join("xl", target)
				}
				targets[r.ID] = target
			}
		}
	}

	sheets := make([]sheetRef, len(wb.Sheets))
	for i, s := range wb.Sheets {
		p, ok := targets[s.RID]
		if !ok {
			p = fmt.Sprintf("xl/worksheets/sheet%d.xml", i+1)
		}
		sheets[i] = sheetRef{name: s.Name, path: p}
	}
	return sheets, nil
}

// sharedStrings loads the workbook string table. It is optional.
func sharedStrings(reader *zip.Reader) ([]string, error) {
	data, err := extract.ZipEntry(reader, "xl/sharedStrings.xml")
	if err != nil {
		return nil, nil
	}
	var sst struct {
		Items []richText `xml:"si"`
	}
	if err := xml.Unmarshal(data, &sst); err != nil {
		return nil, err
	}
	out := make([]string, len(sst.Items))
	for i, item := range sst.Items {
		out[i] = item.String()
	}
	return out, nil
}

// richText is a string item: either a plain <t> or a list of <r><t> runs.
type richText struct {
	T    string `xml:"t"`
	Runs []struct {
		T string `xml:"t"`
	} `xml:"r"`
}

func (r richText) String() string {
	if len(r.Runs) == 0 {
		return r.T
	}
	var b strings.Builder
	for _, run := range r.Runs {
		b.WriteString(run.T)
	}
	return b.String()
}

type cell struct {
	Ref    string   `xml:"r,attr"`
	Type   string   `xml:"t,attr"`
	Value  string   `xml:"v"`
	Inline richText `xml:"is"`
}

// sheetRows returns cell values laid out by column, filling gaps with "".
func sheetRows(data []byte, shared []string) ([][]string, error) {
	var ws struct {
		Rows []struct {
			Cells []cell `xml:"c"`
		} `xml:"sheetData>row"`
	}
	if err := xml.Unmarshal(data, &ws); err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(ws.Rows))
	for _, r := range ws.Rows {
		var row []string
		for i, c := range r.Cells {
			col := columnIndex(c.Ref)
			if col < 0 {
				col = i
			}
			for len(row) <= col {
				row = append(row, "")
			}
			row[col] = cellValue(c, shared)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func cellValue(c cell, shared []string) string {
	switch c.Type {
	case "s":
		idx, err := strconv.Atoi(strings.TrimSpace(c.Value))
		if err != nil || idx < 0 || idx >= len(shared) {
			return ""
		}
		return shared[idx]
	case "inlineStr":
		return c.Inline.String()
	case "b":
		if c.Value == "1" {
			return "TRUE"
		}
		return "FALSE"
	default:
		return c.Value
	}
}

// columnIndex converts the letters of a cell reference ("C7") to a zero-based column.
func columnIndex(ref string) int {
	col := 0
	n := 0
	for _, r := range ref {
		if r < 'A' || r > 'Z' {
			break
		}
		col = col*26 + int(r-'A'+1)
		n++
	}
	if n == 0 {
		return -1
	}
	return col - 1
}
