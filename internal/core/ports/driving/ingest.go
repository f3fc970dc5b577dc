package driving

import (
	"context"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// IngestService turns files into indexed chunks.
type IngestService interface {
	// Ingest processes one file under the given session tag (empty for permanent).
	Ingest(ctx context.Context, upload domain.Upload, sessionTag string) (*domain.IngestOutcome, error)

	// IngestBatch starts a new upload session for the conversation and ingests each file,
	// continuing past per-file failures.
	IngestBatch(ctx context.Context, conversationID string, uploads []domain.Upload) (*domain.BatchResult, error)

	// LoadDirectory ingests every supported file below dir into the permanent corpus.
	LoadDirectory(ctx context.Context, dir string) (*domain.BatchResult, error)

	// Refresh re-ingests one file of the permanent corpus in place of its previous version.
	Refresh(ctx context.Context, path string) (*domain.IngestOutcome, error)

	// Remove deletes the permanent chunks that came from the given source path.
	Remove(ctx context.Context, source string) (int, error)
}
