package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect or clear the current upload session",
	Args:  cobra.NoArgs,
	RunE:  runSessionShow,
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the documents of the current session",
	Long: `Delete every chunk uploaded in the conversation's current session and end
the session. Permanent documents are kept.`,
	Args: cobra.NoArgs,
	RunE: runSessionClear,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the conversation memory",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

// historyClear is a flag for the history command.
var historyClear bool

func init() {
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "clear the memory instead of showing it")

	sessionCmd.AddCommand(sessionClearCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(historyCmd)
}

func runSessionShow(cmd *cobra.Command, _ []string) error {
	if sessionService == nil {
		return errors.New("session service not configured")
	}

	current, ok := sessionService.Current(conversation)
	if !ok {
		cmd.Println("No active session.")
		return nil
	}

	cmd.Printf("Session: %s\n", current)
	members := sessionService.Members(conversation)
	if len(members) == 0 {
		return nil
	}
	cmd.Println("Files:")
	for _, m := range members {
		cmd.Printf("  %s\n", m)
	}
	return nil
}

func runSessionClear(cmd *cobra.Command, _ []string) error {
	if sessionService == nil {
		return errors.New("session service not configured")
	}

	current, ok := sessionService.Current(conversation)
	if !ok {
		cmd.Println("No active session.")
		return nil
	}

	n, err := sessionService.ClearCurrent(cmd.Context(), conversation)
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	cmd.Printf("Session %s cleared (%d chunks deleted).\n", current, n)
	return nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}

	if historyClear {
		answerService.ClearHistory(conversation)
		cmd.Println("History cleared.")
		return nil
	}

	history := answerService.History(conversation)
	if len(history) == 0 {
		cmd.Println("No history.")
		return nil
	}

	for i, ex := range history {
		cmd.Printf("[%d] %s\n", i+1, ex.AskedAt.Format("2006-01-02 15:04:05"))
		cmd.Printf("  Q: %s\n", ex.Question)
		cmd.Printf("  A: %s\n", ex.Answer)
		cmd.Println()
	}
	return nil
}
