package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [paths...]",
	Short: "Index files or directories",
	Long: `Extract, chunk and index documents.

Directories are walked recursively. With no paths, the configured source
directory (ingest.source_dir) is loaded.

By default documents join the permanent corpus. With --permanent=false the
files are uploaded as a new session of the conversation instead.

Examples:
  docsearch ingest
  docsearch ingest ./contracts report.pdf
  docsearch ingest --permanent=false notes.md`,
	RunE: runIngest,
}

// ingestPermanent is a flag for the ingest command.
var ingestPermanent bool

func init() {
	ingestCmd.Flags().BoolVar(&ingestPermanent, "permanent", true, "add to the permanent corpus instead of a new session")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	if len(args) == 0 {
		if settingsService == nil {
			return errors.New("settings service not configured")
		}
		settings, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		args = []string{settings.Ingest.SourceDir}
	}

	if !ingestPermanent {
		return ingestSession(cmd, args)
	}

	total := &domain.BatchResult{}
	for _, path := range args {
		result, err := ingestPath(cmd, path)
		if err != nil {
			total.Failures = append(total.Failures, domain.IngestFailure{Filename: path, Error: err.Error(), Err: err})
			continue
		}
		total.Documents = append(total.Documents, result.Documents...)
		total.Failures = append(total.Failures, result.Failures...)
	}

	printBatch(cmd, total)
	if total.Processed() == 0 && len(total.Failures) > 0 {
		return errors.New("no documents were indexed")
	}
	return nil
}

func ingestPath(cmd *cobra.Command, path string) (*domain.BatchResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return ingestService.LoadDirectory(cmd.Context(), path)
	}

	upload, err := readFile(path)
	if err != nil {
		return nil, err
	}
	outcome, err := ingestService.Ingest(cmd.Context(), upload, "")
	if err != nil {
		return nil, err
	}
	return &domain.BatchResult{Documents: []domain.IngestOutcome{*outcome}}, nil
}

func ingestSession(cmd *cobra.Command, paths []string) error {
	uploads := make([]domain.Upload, 0, len(paths))
	for _, path := range paths {
		upload, err := readFile(path)
		if err != nil {
			return err
		}
		uploads = append(uploads, upload)
	}

	result, err := ingestService.IngestBatch(cmd.Context(), conversation, uploads)
	if result == nil {
		return fmt.Errorf("failed to ingest: %w", err)
	}
	printBatch(cmd, result)
	cmd.Printf("Session: %s\n", result.SessionID)
	return nil
}

func readFile(path string) (domain.Upload, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.Upload{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return domain.Upload{
		Filename: filepath.Base(path),
		Content:  content,
		Source:   path,
	}, nil
}

func printBatch(cmd *cobra.Command, result *domain.BatchResult) {
	for _, doc := range result.Documents {
		cmd.Printf("  indexed  %s (%s, %d chunks)\n", doc.Filename, humanize.Bytes(uint64(doc.FileSize)), doc.Chunks)
	}
	for _, f := range result.Failures {
		cmd.Printf("  failed   %s: %s\n", f.Filename, f.Error)
	}
	cmd.Printf("Processed %d documents, %d failed.\n", result.Processed(), len(result.Failures))
}
