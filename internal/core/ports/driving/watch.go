package driving

import "context"

// WatchService keeps the permanent corpus in step with a directory on disk.
type WatchService interface {
	// Watch loads dir into the permanent corpus, then re-ingests created or
	// modified files and removes deleted ones until ctx is cancelled.
	Watch(ctx context.Context, dir string) error
}
