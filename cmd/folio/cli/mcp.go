package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	fmcp "github.com/foliodev/folio/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server exposing the contact inbox and
the admin bindings as read-only tools. Supports stdio (default) and HTTP
transports.

In stdio mode, the MCP server communicates over stdin/stdout using JSON-RPC.
In HTTP mode, the server listens on the specified port.`,
		Example: `  folio mcp                              # stdio mode
  folio mcp --transport http --port 3001  # Streamable HTTP mode`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("transport") {
				transport = viper.GetString("mcp.transport")
			}
			return runMCP(transport, port)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")

	return cmd
}

func runMCP(transport string, port int) error {
	logger, err := newLogger(false)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer store.Close()

	mcpSrv := fmcp.NewMCPServer(store, appVersion, logger)

	switch transport {
	case "stdio":
		return mcpSrv.ServeStdio()
	case "http":
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return mcpSrv.RunHTTP(ctx, fmt.Sprintf(":%d", port))
	default:
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", transport)
	}
}
