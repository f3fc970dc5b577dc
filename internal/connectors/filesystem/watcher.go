// Package filesystem watches a directory tree with fsnotify and reports
// file changes to the ingestion layer.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/logger"
)

// Verify interface compliance.
var _ driven.DirectoryWatcher = (*Watcher)(nil)

// ErrWatcherClosed is returned by Watch after Close.
var ErrWatcherClosed = errors.New("filesystem watcher closed")

// changeBuffer is the capacity of the change channel.
const changeBuffer = 64

// Watcher reports changes to non-hidden files below a directory.
// New subdirectories are watched as they appear.
type Watcher struct {
	mu       sync.Mutex
	closed   bool
	watchers []*fsnotify.Watcher
}

// New creates a watcher.
func New() *Watcher {
	return &Watcher{}
}

// Watch streams changes below dir until ctx is cancelled or Close is called.
func (w *Watcher) Watch(ctx context.Context, dir string) (<-chan domain.FileChange, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: directory %s", domain.ErrNotFound, dir)
		}
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, dir)
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, ErrWatcherClosed
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w.watchers = append(w.watchers, fsw)
	w.mu.Unlock()

	if err := addTree(fsw, dir); err != nil {
		fsw.Close()
		return nil, err
	}

	changes := make(chan domain.FileChange, changeBuffer)
	go w.run(ctx, fsw, changes)
	return changes, nil
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher, changes chan<- domain.FileChange) {
	defer close(changes)
	defer fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 && isDir(event.Name) && !hidden(event.Name) {
				if err := addTree(fsw, event.Name); err != nil {
					logger.Warn("watch %s: %v", event.Name, err)
				}
				continue
			}
			change := handleFsEvent(event)
			if change == nil {
				continue
			}
			select {
			case changes <- *change:
			case <-ctx.Done():
				return
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher: %v", err)
		}
	}
}

// Close stops every active watch.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	var errs []error
	for _, fsw := range w.watchers {
		if err := fsw.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	w.watchers = nil
	return errors.Join(errs...)
}

// handleFsEvent maps an fsnotify event to a file change.
// Directories, hidden files and chmod-only events produce nil.
func handleFsEvent(event fsnotify.Event) *domain.FileChange {
	if hidden(event.Name) {
		return nil
	}

	var kind domain.ChangeType
	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		kind = domain.ChangeDeleted
	case event.Op&fsnotify.Create != 0:
		kind = domain.ChangeCreated
	case event.Op&fsnotify.Write != 0:
		kind = domain.ChangeUpdated
	default:
		return nil
	}

	if kind != domain.ChangeDeleted && isDir(event.Name) {
		return nil
	}
	return &domain.FileChange{Type: kind, Path: filepath.Clean(event.Name)}
}

// addTree watches dir and every non-hidden directory below it.
func addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && hidden(path) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func hidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
