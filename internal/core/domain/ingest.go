package domain

// Upload is one file handed to the ingestion pipeline.
type Upload struct {
	Filename string
	Content  []byte

	// Source overrides the default "upload" origin label.
	Source string

	// Owner is the caller identity supplied by the surrounding layer.
	Owner string
}

// Size returns the byte count of the upload.
func (u Upload) Size() int64 {
	return int64(len(u.Content))
}

// IngestOutcome describes one successfully ingested file.
type IngestOutcome struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	FileType   string `json:"file_type"`
	FileSize   int64  `json:"file_size"`

	// Chunks is the number of chunks produced after filtering.
	Chunks int `json:"chunks"`

	// Inserted is the number of chunks that were new to the index.
	Inserted int `json:"inserted"`
}

// IngestFailure describes one file that was skipped.
type IngestFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`

	// Err is the underlying error, kept for errors.Is checks.
	Err error `json:"-"`
}

// BatchResult is the outcome of ingesting a batch of uploads.
// Earlier successes are kept when later files fail.
type BatchResult struct {
	SessionID string          `json:"session_id,omitempty"`
	Documents []IngestOutcome `json:"documents"`
	Failures  []IngestFailure `json:"failures,omitempty"`
}

// Processed returns the number of files that were ingested.
func (b BatchResult) Processed() int {
	return len(b.Documents)
}
