package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docsearch/internal/adapters/driving/api"
	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API.

Endpoints:
  POST   /upload          upload files into a new session
  POST   /ask             ask a question
  GET    /documents       list indexed documents
  DELETE /session         delete the current session's documents
  DELETE /clear-all       delete every document
  GET    /history         read the conversation memory
  DELETE /history         clear the conversation memory
  GET    /stats           index and model statistics
  POST   /load-documents  load the source directory

Callers select their conversation with the X-Conversation-ID header.

With --watch, the source directory is loaded and kept in sync while serving.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// Flags for the serve command.
var (
	serveHost  string
	servePort  int
	serveWatch bool
)

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (default from server.host)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default from server.port)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "watch the source directory while serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	if answerService == nil || documentService == nil {
		return errors.New("answer service not configured")
	}

	if err := settingsService.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	stats, err := documentService.Stats(cmd.Context(), conversation)
	if err != nil {
		return fmt.Errorf("failed to inspect index: %w", err)
	}
	if !stats.HasVectorStore {
		if settings.RAG.RequireVectorStore {
			return fmt.Errorf("refusing to serve: %w", domain.ErrNoVectorStore)
		}
		logger.Warn("No vector store: questions will be answered from conversation only")
	}

	server := settings.Server
	if serveHost != "" {
		server.Host = serveHost
	}
	if servePort > 0 {
		server.Port = servePort
	}

	e := api.NewServer(&api.Dependencies{
		Answers:        answerService,
		Documents:      documentService,
		Ingest:         ingestService,
		Sessions:       sessionService,
		IngestSettings: settings.Ingest,
		Server:         server,
		Version:        version,
	})

	g, ctx := errgroup.WithContext(cmd.Context())
	if serveWatch {
		if watchService == nil {
			return errors.New("watch service not configured")
		}
		g.Go(func() error {
			return watchService.Watch(ctx, settings.Ingest.SourceDir)
		})
	}
	g.Go(func() error {
		cmd.Printf("docsearch API listening on http://%s\n", server.Addr())
		return api.Run(ctx, e, server.Addr())
	})
	return g.Wait()
}
