package cli

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fundlink/internal/adapters/driving/mcp"
)

var (
	mcpPort int
	mcpHost string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol server",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the fund index to MCP clients",
	Long: `Start a Model Context Protocol server so assistants can query the fund
index and cite platform pages.

Without --port the server speaks JSON-RPC on stdio, which is what desktop
clients launch. With --port it serves streamable HTTP on --host.

Tools:
  query_funds   similarity search with citations
  resolve_link  map text to its platform page
  source_stats  sources, index size and the last ingestion run

Resources:
  fundlink://sources             tracked sources
  fundlink://sources/{sourceId}  one source
  fundlink://catalog             information categories and URL patterns`,
	Example: `  fundlink mcp serve
  fundlink mcp serve --port 8080
  fundlink mcp serve --port 8080 --host 0.0.0.0`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "HTTP port (0 serves stdio)")
	mcpServeCmd.Flags().StringVar(&mcpHost, "host", "localhost", "HTTP bind address")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	if mcpPort < 0 || mcpPort > 65535 {
		return fmt.Errorf("invalid port %d", mcpPort)
	}

	index, err := indexService()
	if err != nil {
		return err
	}
	resolver, err := resolverService()
	if err != nil {
		return err
	}

	// Sources and pipeline are optional; the stats tool reports what it has.
	ports := &mcp.Ports{
		Index:    index,
		Resolver: resolver,
		Sources:  svc.Sources,
		Pipeline: svc.Pipeline,
	}

	server, err := mcp.NewServer(ports, mcp.WithVersion(version))
	if err != nil {
		return err
	}

	if mcpPort == 0 {
		return server.Run(cmd.Context())
	}

	addr := net.JoinHostPort(mcpHost, strconv.Itoa(mcpPort))
	fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://%s\n", addr)
	return server.RunHTTP(cmd.Context(), addr)
}
