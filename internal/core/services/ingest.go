package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/core/ports/driving"
	"github.com/custodia-labs/docsearch/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// UploadSource labels files received through an upload.
const UploadSource = "upload"

// loadWorkers bounds how many files LoadDirectory extracts at once.
const loadWorkers = 4

// IngestService extracts, chunks and indexes files.
type IngestService struct {
	settings  domain.IngestSettings
	normalise driven.NormaliserRegistry
	pipeline  driven.PostProcessorPipeline
	index     *IndexService
	sessions  *SessionRegistry
	now       func() time.Time
}

// NewIngestService creates an ingestion service.
func NewIngestService(
	settings domain.IngestSettings,
	normalise driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	index *IndexService,
	sessions *SessionRegistry,
) *IngestService {
	return &IngestService{
		settings:  settings,
		normalise: normalise,
		pipeline:  pipeline,
		index:     index,
		sessions:  sessions,
		now:       time.Now,
	}
}

// prepared is a file that has been extracted and chunked but not yet indexed.
type prepared struct {
	record domain.DocumentRecord
	chunks []domain.Chunk
}

// Ingest processes one file under sessionTag ("" for the permanent corpus).
func (s *IngestService) Ingest(ctx context.Context, upload domain.Upload, sessionTag string) (*domain.IngestOutcome, error) {
	if !s.index.Available() {
		return nil, domain.ErrNoVectorStore
	}
	p, err := s.prepare(ctx, upload, sessionTag)
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, p)
}

// IngestBatch starts a new session for the conversation and ingests each upload into it.
// A failed file is reported and skipped; earlier files stay indexed.
func (s *IngestService) IngestBatch(
	ctx context.Context, conversationID string, uploads []domain.Upload,
) (*domain.BatchResult, error) {
	if !s.index.Available() {
		return nil, domain.ErrNoVectorStore
	}

	sc := s.sessions.Get(conversationID)
	sessionID := sc.StartSession()
	logger.Section("Upload")
	logger.Info("Conversation %q: session %s, %d files", sc.ID(), sessionID, len(uploads))

	result := &domain.BatchResult{
		SessionID: sessionID,
		Documents: []domain.IngestOutcome{},
	}
	for _, upload := range uploads {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		outcome, err := s.Ingest(ctx, upload, sessionID)
		if err != nil {
			logger.Warn("Skipped %s: %v", upload.Filename, err)
			result.Failures = append(result.Failures, failure(upload.Filename, err))
			continue
		}
		sc.RecordMember(sessionID, outcome.Filename)
		result.Documents = append(result.Documents, *outcome)
	}
	return result, nil
}

// LoadDirectory ingests every supported file below dir into the permanent corpus.
// Files are extracted in parallel and indexed in path order.
func (s *IngestService) LoadDirectory(ctx context.Context, dir string) (*domain.BatchResult, error) {
	if !s.index.Available() {
		return nil, domain.ErrNoVectorStore
	}
	paths, err := s.listFiles(dir)
	if err != nil {
		return nil, err
	}
	logger.Section("Load directory")
	logger.Info("Loading %d files from %s", len(paths), dir)

	preps := make([]*prepared, len(paths))
	errs := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadWorkers)
	for i, path := range paths {
		g.Go(func() error {
			content, err := os.ReadFile(path)
			if err != nil {
				errs[i] = fmt.Errorf("read: %w", err)
				return nil
			}
			preps[i], errs[i] = s.prepare(gctx, domain.Upload{
				Filename: filepath.Base(path),
				Content:  content,
				Source:   path,
			}, "")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &domain.BatchResult{Documents: []domain.IngestOutcome{}}
	for i, path := range paths {
		if errs[i] == nil {
			var outcome *domain.IngestOutcome
			outcome, errs[i] = s.commit(ctx, preps[i])
			if errs[i] == nil {
				result.Documents = append(result.Documents, *outcome)
				continue
			}
		}
		logger.Warn("Skipped %s: %v", path, errs[i])
		result.Failures = append(result.Failures, failure(path, errs[i]))
	}
	return result, nil
}

// Refresh re-ingests the file at path into the permanent corpus, replacing
// what was indexed from it before. The file is extracted, chunked and embedded
// before anything is removed, so a failure leaves the previous version searchable.
func (s *IngestService) Refresh(ctx context.Context, path string) (*domain.IngestOutcome, error) {
	if !s.index.Available() {
		return nil, domain.ErrNoVectorStore
	}
	source := filepath.Clean(path)
	content, err := os.ReadFile(source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, source)
		}
		return nil, fmt.Errorf("read: %w", err)
	}
	p, err := s.prepare(ctx, domain.Upload{
		Filename: filepath.Base(source),
		Content:  content,
		Source:   source,
	}, "")
	if err != nil {
		return nil, err
	}

	inserted, err := s.index.Replace(ctx, source, p.record, p.chunks)
	if err != nil {
		return nil, err
	}
	return outcome(p, inserted), nil
}

// Remove deletes the permanent chunks that came from source.
func (s *IngestService) Remove(ctx context.Context, source string) (int, error) {
	n, err := s.index.DeleteSource(ctx, filepath.Clean(source))
	if err != nil {
		return 0, fmt.Errorf("remove %s: %w", source, err)
	}
	logger.Info("Removed %d chunks from %s", n, source)
	return n, nil
}

// Accepts reports whether a path has a supported extension. Hidden files are never accepted.
func (s *IngestService) Accepts(path string) bool {
	name := filepath.Base(path)
	return !strings.HasPrefix(name, ".") && s.settings.Supports(filepath.Ext(name))
}

// prepare validates, extracts and chunks one upload. The checks run in a fixed
// order: extension, then size, then extraction.
func (s *IngestService) prepare(ctx context.Context, upload domain.Upload, sessionTag string) (*prepared, error) {
	filename := filepath.Base(strings.TrimSpace(upload.Filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return nil, fmt.Errorf("%w: missing filename", domain.ErrInvalidInput)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !s.settings.Supports(ext) {
		if ext == "" {
			ext = "(none)"
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, ext)
	}

	if limit := s.settings.MaxFileSize(); upload.Size() > limit {
		return nil, fmt.Errorf("%w: %s is %s, the limit is %s", domain.ErrOversizedFile,
			filename, humanize.IBytes(uint64(upload.Size())), humanize.IBytes(uint64(limit)))
	}

	source := upload.Source
	if source == "" {
		source = UploadSource
	} else if source != UploadSource {
		source = filepath.Clean(source)
	}

	result, err := s.normalise.Normalise(ctx, &domain.RawDocument{
		URI:      filename,
		Content:  upload.Content,
		Metadata: map[string]any{"source": source},
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedFormat) || errors.Is(err, domain.ErrExtractionFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrExtractionFailure, err)
	}
	doc := result.Document
	if strings.TrimSpace(doc.Content) == "" {
		return nil, fmt.Errorf("%w: no text found in %s", domain.ErrExtractionFailure, filename)
	}

	chunks, err := s.pipeline.Process(ctx, &doc)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", filename, err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no indexable text in %s", domain.ErrExtractionFailure, filename)
	}

	now := s.now()
	record := domain.DocumentRecord{
		ID:         ulid.Make().String(),
		Filename:   filename,
		Source:     source,
		SourceType: domain.FileType(filename),
		Size:       upload.Size(),
		Owner:      upload.Owner,
		SessionTag: sessionTag,
		TotalPages: doc.TotalPages,
		IngestedAt: now,
	}
	for i := range chunks {
		chunks[i].DocumentID = record.ID
		chunks[i].Filename = record.Filename
		chunks[i].Source = record.Source
		chunks[i].SourceType = record.SourceType
		chunks[i].SessionTag = sessionTag
		chunks[i].CreatedAt = now
	}
	return &prepared{record: record, chunks: chunks}, nil
}

func (s *IngestService) commit(ctx context.Context, p *prepared) (*domain.IngestOutcome, error) {
	inserted, err := s.index.Insert(ctx, p.record, p.chunks)
	if err != nil {
		return nil, err
	}
	logger.Info("Ingested %s (%s): %d chunks, %d new", p.record.Filename,
		humanize.IBytes(uint64(p.record.Size)), len(p.chunks), inserted)
	return outcome(p, inserted), nil
}

func outcome(p *prepared, inserted int) *domain.IngestOutcome {
	return &domain.IngestOutcome{
		DocumentID: p.record.ID,
		Filename:   p.record.Filename,
		FileType:   p.record.SourceType,
		FileSize:   p.record.Size,
		Chunks:     len(p.chunks),
		Inserted:   inserted,
	}
}

// listFiles returns the supported files below dir in lexical order, skipping hidden directories.
func (s *IngestService) listFiles(dir string) ([]string, error) {
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

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && s.Accepts(path) {
			paths = append(paths, filepath.Clean(path))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

func failure(filename string, err error) domain.IngestFailure {
	return domain.IngestFailure{Filename: filename, Error: err.Error(), Err: err}
}
