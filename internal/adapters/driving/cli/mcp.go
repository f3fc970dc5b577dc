package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsearch/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose docsearch to AI assistants over the Model Context Protocol",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server",
	Long: `Run an MCP server backed by the same index and sessions as the HTTP API.

Tools:      ask, list_documents, clear_session, history
Resources:  docsearch://documents
            docsearch://conversations/{id}/history

The server speaks JSON-RPC on stdio unless --port is given, in which case it
serves the streamable HTTP transport on that port.

To register it with a desktop assistant:

  {"mcpServers": {"docsearch": {"command": "docsearch", "args": ["mcp", "serve"]}}}`,
	Example: `  docsearch mcp serve
  docsearch mcp serve --port 8090`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "serve over HTTP on this port instead of stdio")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, _ := cmd.Flags().GetInt("port")

	server, err := mcp.NewServer(&mcp.Ports{
		Answer:    answerService,
		Documents: documentService,
		Sessions:  sessionService,
	}, version)
	if err != nil {
		return err
	}

	if port <= 0 {
		return server.Run(cmd.Context())
	}
	return server.RunHTTP(cmd.Context(), fmt.Sprintf(":%d", port))
}
