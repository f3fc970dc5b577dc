package xlsx

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
)

func buildXLSX(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for name, body := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

const (
	workbookXML = `<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<sheets><sheet name="Budget" sheetId="1" r:id="rId1"/><sheet name="Notes" sheetId="2" r:id="rId2"/></sheets>
</workbook>`
	relsXML = `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Target="worksheets/sheet1.xml"/>
<Relationship Id="rId2" Target="/xl/worksheets/notes.xml"/>
</Relationships>`
	sharedXML = `<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
<si><t>Item</t></si><si><t>Cost</t></si><si><r><t>Lap</t></r><r><t>top</t></r></si>
</sst>`
	sheet1XML = `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>
<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c></row>
<row r="2"><c r="A2" t="s"><v>2</v></c><c r="B2"><v>1200</v></c></row>
<row r="3"><c r="B3"><v>15</v></c></row>
</sheetData></worksheet>`
	notesXML = `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>
<row r="1"><c r="A1" t="inlineStr"><is><t>Remark</t></is></c><c r="C1" t="b"><v>1</v></c></row>
</sheetData></worksheet>`
)

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}

func TestNormalise_Workbook(t *testing.T) {
	content := buildXLSX(t, map[string]string{
		"xl/workbook.xml":            workbookXML,
		"xl/_rels/workbook.xml.rels": relsXML,
		"xl/sharedStrings.xml":       sharedXML,
		"xl/worksheets/sheet1.xml":   sheet1XML,
		"xl/worksheets/notes.xml":    notesXML,
	})

	result, err := New().Normalise(context.Background(), &domain.RawDocument{
		URI:      "budget_2024.xlsx",
		MIMEType: MIMEType,
		Content:  content,
	})
	require.NoError(t, err)

	doc := result.Document
	assert.Equal(t, "budget 2024", doc.Title)
	assert.Equal(t, 2, doc.TotalPages)
	assert.Equal(t, 2, doc.Metadata["sheets"])
	assert.Equal(t,
		"Sheet: Budget\nItem | Cost\nItem: Laptop; Cost: 1200\nCost: 15\n\f\nSheet: Notes\nRemark | TRUE",
		doc.Content)
}

func TestNormalise_SheetPathFallback(t *testing.T) {
	content := buildXLSX(t, map[string]string{
		"xl/workbook.xml":          workbookXML,
		"xl/worksheets/sheet1.xml": sheet1XML,
		"xl/worksheets/sheet2.xml": notesXML,
	})

	result, err := New().Normalise(context.Background(), &domain.RawDocument{URI: "b.xlsx", Content: content})

	require.NoError(t, err)
	// Without shared strings the "s" cells are empty.
	assert.Contains(t, result.Document.Content, "Sheet: Notes\nRemark | TRUE")
}

func TestNormalise_Failures(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = New().Normalise(context.Background(), &domain.RawDocument{URI: "a.xlsx", Content: []byte("nope")})
	assert.ErrorIs(t, err, domain.ErrExtractionFailure)

	noWorkbook := buildXLSX(t, map[string]string{"xl/worksheets/sheet1.xml": sheet1XML})
	_, err = New().Normalise(context.Background(), &domain.RawDocument{URI: "a.xlsx", Content: noWorkbook})
	assert.ErrorIs(t, err, domain.ErrExtractionFailure)

	missingSheet := buildXLSX(t, map[string]string{"xl/workbook.xml": workbookXML})
	_, err = New().Normalise(context.Background(), &domain.RawDocument{URI: "a.xlsx", Content: missingSheet})
	assert.ErrorIs(t, err, domain.ErrExtractionFailure)
}

func TestColumnIndex(t *testing.T) {
	assert.Equal(t, 0, columnIndex("A1"))
	assert.Equal(t, 2, columnIndex("C7"))
	assert.Equal(t, 26, columnIndex("AA3"))
	assert.Equal(t, -1, columnIndex("12"))
}
