package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// Document is extracted text with metadata.
// It is the canonical representation after normalisation and the input to chunking.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// URI is the original location (file path or upload filename).
	URI string

	// Title is the human-readable title.
	Title string

	// Content is the full text content after normalisation.
	// This is the complete document text before chunking.
	Content string

	// TotalPages is the declared page count, or 0 if unknown.
	TotalPages int

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any

	// CreatedAt is when the document was extracted.
	CreatedAt time.Time
}

// DocumentRecord is an ingested file as the index remembers it.
// Records are immutable once written; re-uploads create new chunks rather than mutations.
type DocumentRecord struct {
	// ID is a sortable unique identifier (ULID).
	ID string

	// Filename is the base name of the uploaded file.
	Filename string

	// Source is where the file came from ("upload" or a path under the source directory).
	Source string

	// SourceType is the declared type, derived from the extension without the dot.
	SourceType string

	// Size is the raw byte count.
	Size int64

	// Owner is the caller identity supplied by the surrounding layer, if any.
	Owner string

	// SessionTag is the upload session, or empty for the permanent corpus.
	SessionTag string

	// TotalPages is the extracted page count, or 0 if unknown.
	TotalPages int

	// IngestedAt is when the record was written.
	IngestedAt time.Time
}

// IsPermanent reports whether the record belongs to the permanent corpus.
func (r DocumentRecord) IsPermanent() bool {
	return r.SessionTag == ""
}

// Chunk is a bounded text segment derived from a document.
// Chunks are created by the post-processing pipeline and owned by the vector index once inserted.
type Chunk struct {
	// ID is the content fingerprint: a hash of the normalised chunk text.
	ID string

	// DocumentID links to the DocumentRecord.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Filename is the source document's filename.
	Filename string

	// Source is the source document's origin.
	Source string

	// SourceType is the source document's declared type.
	SourceType string

	// SessionTag is the upload session, or empty for the permanent corpus.
	// It is never reassigned once set.
	SessionTag string

	// Position is the ordinal position within the document.
	Position int

	// EstimatedPage is the page the chunk most likely came from, starting at 1.
	EstimatedPage int

	// Embedding is the vector representation for similarity search.
	Embedding []float32

	// CreatedAt is the upload timestamp.
	CreatedAt time.Time

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any
}

// DocumentGroup is one entry of a document listing: the chunks sharing a filename and source.
type DocumentGroup struct {
	Filename   string
	Source     string
	SourceType string
	SessionTag string
	ChunkCount int
	UploadedAt time.Time
}

// Label returns "permanent" for the permanent corpus, otherwise the session tag.
func (g DocumentGroup) Label() string {
	if g.SessionTag == "" {
		return "permanent"
	}
	return g.SessionTag
}

// FileType returns the lowercase extension of a filename without the leading dot.
func FileType(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}
