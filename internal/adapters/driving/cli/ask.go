package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the indexed documents",
	Long: `Ask a question and print the answer with the excerpts it was based on.

With no argument, reads questions line by line from stdin until EOF or "exit".
Questions in one interactive run share the conversation memory.

Examples:
  docsearch ask "what does the contract say about termination?"
  docsearch ask "list the documents"
  docsearch ask`,
	RunE: runAsk,
}

// askJSON is a flag for the ask command.
var askJSON bool

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}

	if len(args) > 0 {
		return printAnswer(cmd, answerService.Ask(cmd.Context(), conversation, strings.Join(args, " ")))
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	for {
		cmd.Print("> ")
		line, err := reader.ReadString('\n')
		question := strings.TrimSpace(line)
		if question == "exit" || question == "quit" {
			return nil
		}
		if question != "" {
			if perr := printAnswer(cmd, answerService.Ask(cmd.Context(), conversation, question)); perr != nil {
				return perr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				cmd.Println()
				return nil
			}
			return fmt.Errorf("reading question: %w", err)
		}
		if cmd.Context().Err() != nil {
			return nil
		}
	}
}

func printAnswer(cmd *cobra.Command, answer *domain.Answer) error {
	if askJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(answer.Answer)
	if len(answer.Sources) > 0 {
		cmd.Println()
		cmd.Printf("Sources (%s):\n", answer.Context)
		for _, src := range answer.Sources {
			cmd.Printf("  [%d] %s, page %d (%.2f)\n", src.Rank, src.Filename, src.Page, src.Score)
			cmd.Printf("      %s\n", src.Text)
		}
	}
	cmd.Println()
	return nil
}
