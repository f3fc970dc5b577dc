package driven

import (
	"context"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// VectorIndex stores embedded chunks and answers filtered similarity queries.
// Chunks are keyed by content fingerprint within their session; re-inserting an
// existing key stores no new vector but records the new document as another
// owner of it. A chunk is removed once its last owner is.
type VectorIndex interface {
	// Insert stores a document record and its embedded chunks atomically.
	// Returns the number of chunks that were not already present.
	Insert(ctx context.Context, record domain.DocumentRecord, chunks []domain.Chunk) (int, error)

	// Search returns the k chunks most similar to the query vector within scope,
	// by descending cosine similarity with ties in insertion order.
	// An empty index or scope yields an empty slice, not an error.
	Search(ctx context.Context, query []float32, k int, scope domain.Scope) ([]domain.RetrievalResult, error)

	// Delete removes every chunk and document record matching scope.
	// Returns the number of chunks removed.
	Delete(ctx context.Context, scope domain.Scope) (int, error)

	// DeleteSource removes the permanent records that came from source, and
	// every chunk no other document still owns. Returns the number of chunks removed.
	DeleteSource(ctx context.Context, source string) (int, error)

	// Replace swaps the permanent records from source for record and its chunks
	// in one step: on error the previous contents are untouched.
	// Returns the number of chunks that were not already present.
	Replace(ctx context.Context, source string, record domain.DocumentRecord, chunks []domain.Chunk) (int, error)

	// ListDocuments groups the current contents by filename, source and session.
	// A chunk shared by several documents counts towards each of them.
	ListDocuments(ctx context.Context) ([]domain.DocumentGroup, error)

	// Count returns the number of chunks matching scope.
	Count(ctx context.Context, scope domain.Scope) (int, error)

	// Close releases resources.
	Close() error
}
