package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Keep a directory indexed as it changes",
	Long: `Load a directory into the permanent corpus, then re-index files as they are
created or modified and drop files that are deleted. Runs until interrupted.

With no argument, watches the configured source directory (ingest.source_dir).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchService == nil {
		return errors.New("watch service not configured")
	}

	var dir string
	if len(args) == 1 {
		dir = args[0]
	} else {
		if settingsService == nil {
			return errors.New("settings service not configured")
		}
		settings, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		dir = settings.Ingest.SourceDir
	}

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", dir)
	if err := watchService.Watch(cmd.Context(), dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	return nil
}
