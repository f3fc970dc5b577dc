package driven

import (
	"context"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// DirectoryWatcher reports file changes below a directory.
type DirectoryWatcher interface {
	// Watch streams changes until ctx is cancelled. The channel is closed on return.
	Watch(ctx context.Context, dir string) (<-chan domain.FileChange, error)
}
