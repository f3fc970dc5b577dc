package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
)

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}

func TestNormaliser_Metadata(t *testing.T) {
	n := New()
	assert.Contains(t, n.SupportedMIMETypes(), "text/plain")
	assert.Equal(t, 5, n.Priority())
}

func TestNormalise_NilDocument(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_Text(t *testing.T) {
	raw := &domain.RawDocument{
		URI:      "uploads/team_meeting-notes.txt",
		MIMEType: "text/plain",
		Content:  []byte("Line one\r\nLine two"),
	}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)

	doc := result.Document
	assert.Equal(t, "team meeting notes", doc.Title)
	assert.Equal(t, "Line one\nLine two", doc.Content)
	assert.Equal(t, 1, doc.TotalPages)
	assert.Equal(t, "text", doc.Metadata["format"])
	assert.Equal(t, "text/plain", doc.Metadata["mime_type"])
}

func TestNormalise_FormFeedsCountPages(t *testing.T) {
	raw := &domain.RawDocument{URI: "a.txt", Content: []byte("p1\fp2\fp3")}

	result, err := New().Normalise(context.Background(), raw)

	require.NoError(t, err)
	assert.Equal(t, 3, result.Document.TotalPages)
}

func TestNormalise_InvalidUTF8(t *testing.T) {
	raw := &domain.RawDocument{URI: "a.txt", Content: []byte{0xff, 0xfe, 0x00}}

	_, err := New().Normalise(context.Background(), raw)

	assert.ErrorIs(t, err, domain.ErrExtractionFailure)
}
