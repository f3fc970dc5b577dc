package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPermissionDenied indicates the caller may not perform the operation.
	ErrPermissionDenied = errors.New("permission denied")

	// Ingestion Errors.

	// ErrUnsupportedFormat indicates a file extension that no extractor handles.
	// Batch ingestion skips the file and continues.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrOversizedFile indicates a file larger than the configured limit.
	// It is raised before any extraction work.
	ErrOversizedFile = errors.New("file too large")

	// ErrExtractionFailure indicates a parser or OCR failure for a supported format.
	ErrExtractionFailure = errors.New("extraction failed")

	// AI Errors.

	// ErrEmbeddingFailure indicates the embedding call for an insert or search failed.
	// The operation is aborted and may be retried.
	ErrEmbeddingFailure = errors.New("embedding failed")

	// ErrModelInvocation indicates the language model call failed.
	ErrModelInvocation = errors.New("model invocation failed")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrNoVectorStore indicates no vector index is configured.
	ErrNoVectorStore = errors.New("no vector store configured")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)
