package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/core/ports/driving"
	"github.com/custodia-labs/docsearch/internal/logger"
)

// Verify interface compliance.
var _ driving.WatchService = (*WatchService)(nil)

// WatchService mirrors a source directory into the permanent corpus.
type WatchService struct {
	watcher driven.DirectoryWatcher
	ingest  *IngestService

	// applied is called after each handled change. Used by tests.
	applied func(domain.FileChange, error)
}

// NewWatchService creates a watch service.
func NewWatchService(watcher driven.DirectoryWatcher, ingest *IngestService) *WatchService {
	return &WatchService{watcher: watcher, ingest: ingest}
}

// Watch loads dir, then follows its changes until ctx is cancelled.
func (s *WatchService) Watch(ctx context.Context, dir string) error {
	if s.watcher == nil {
		return errors.New("no directory watcher configured")
	}

	// Subscribe before the initial load so nothing written during it is missed.
	changes, err := s.watcher.Watch(ctx, dir)
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	result, err := s.ingest.LoadDirectory(ctx, dir)
	if err != nil {
		return err
	}
	logger.Info("Loaded %d documents from %s (%d skipped)", result.Processed(), dir, len(result.Failures))

	for change := range changes {
		err := s.apply(ctx, change)
		if err != nil {
			logger.Warn("%s %s: %v", change.Type, change.Path, err)
		}
		if s.applied != nil {
			s.applied(change, err)
		}
	}
	return nil
}

// apply replaces a file's chunks with its current content, or drops them when
// the file is gone. A file that fails to re-ingest keeps its previous chunks.
func (s *WatchService) apply(ctx context.Context, change domain.FileChange) error {
	if !s.ingest.Accepts(change.Path) {
		return nil
	}

	if change.Type != domain.ChangeDeleted {
		outcome, err := s.ingest.Refresh(ctx, change.Path)
		if err == nil {
			logger.Info("Indexed %s (%d chunks)", change.Path, outcome.Chunks)
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}

	_, err := s.ingest.Remove(ctx, change.Path)
	return err
}
