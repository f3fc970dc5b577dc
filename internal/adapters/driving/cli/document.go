package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "List indexed documents",
	Long:    `List indexed documents grouped by file, with their scope and chunk count.`,
	Args:    cobra.NoArgs,
	RunE:    runDocuments,
}

var clearAllCmd = &cobra.Command{
	Use:   "clear-all",
	Short: "Delete every indexed document",
	Long: `Delete every chunk from the index, permanent documents included, and reset
the conversation's current session.`,
	Args: cobra.NoArgs,
	RunE: runClearAll,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index and model statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

// documentsJSON is a flag for the documents command.
var documentsJSON bool

func init() {
	documentsCmd.Flags().BoolVar(&documentsJSON, "json", false, "output documents as JSON")
	rootCmd.AddCommand(documentsCmd)
	rootCmd.AddCommand(clearAllCmd)
	rootCmd.AddCommand(statsCmd)
}

func runDocuments(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	groups, err := documentService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if documentsJSON {
		data, err := json.MarshalIndent(groups, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal documents: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(groups) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}

	current := ""
	if sessionService != nil {
		current, _ = sessionService.Current(conversation)
	}

	cmd.Println("Documents:")
	cmd.Println()
	for _, g := range groups {
		scope := g.Label()
		if current != "" && g.SessionTag == current {
			scope += " (current)"
		}
		cmd.Printf("  %s\n", g.Filename)
		cmd.Printf("    Type:     %s\n", g.SourceType)
		cmd.Printf("    Scope:    %s\n", scope)
		cmd.Printf("    Chunks:   %d\n", g.ChunkCount)
		if g.Source != "" && g.Source != g.Filename {
			cmd.Printf("    Source:   %s\n", g.Source)
		}
		if !g.UploadedAt.IsZero() {
			cmd.Printf("    Indexed:  %s\n", humanize.Time(g.UploadedAt))
		}
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(groups))
	return nil
}

func runClearAll(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	n, err := documentService.ClearAll(cmd.Context(), conversation)
	if err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}

	cmd.Printf("Deleted %s chunks.\n", humanize.Comma(int64(n)))
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	stats, err := documentService.Stats(cmd.Context(), conversation)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	vectorStore := "no"
	if stats.HasVectorStore {
		vectorStore = "yes"
	}
	model := stats.Model
	if model == "" {
		model = "(not configured)"
	}

	cmd.Println("Statistics")
	cmd.Println("==========")
	cmd.Printf("  Model:            %s\n", model)
	cmd.Printf("  Embedding model:  %s\n", stats.EmbeddingModel)
	cmd.Printf("  Chunk size:       %d\n", stats.ChunkSize)
	cmd.Printf("  Top k:            %d\n", stats.TopK)
	cmd.Printf("  Vector store:     %s\n", vectorStore)
	cmd.Printf("  Chunks:           %s\n", humanize.Comma(int64(stats.VectorStoreDocuments)))
	cmd.Printf("  Documents:        %s\n", humanize.Comma(int64(stats.AvailableDocuments)))
	cmd.Printf("  Memory messages:  %d\n", stats.MemoryMessages)
	if stats.CurrentSessionID != "" {
		cmd.Printf("  Current session:  %s\n", stats.CurrentSessionID)
	}
	return nil
}
