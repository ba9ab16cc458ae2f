package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	arcomcp "github.com/arcoapp/arco-admin/internal/mcp"
	"github.com/arcoapp/arco-admin/internal/service"
)

func newMCPCmd() *cobra.Command {
	var (
		transport   string
		port        int
		allowWrites bool
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes accounts, feedback
and dashboard counters as tools for AI agents. Supports stdio (default) and
HTTP transports.

The archive and restore tools are only registered with --allow-writes
(or mcp.allow_writes in the config file).`,
		Example: `  arco mcp                                 # stdio mode
  arco mcp --transport http --port 3001    # Streamable HTTP mode
  arco mcp --allow-writes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(cmd, transport, port, allowWrites)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "", "Transport mode: stdio or http (default from mcp.transport)")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")
	cmd.Flags().BoolVar(&allowWrites, "allow-writes", false, "Register the archive and restore tools")

	return cmd
}

func runMCP(cmd *cobra.Command, transport string, port int, allowWrites bool) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	if transport == "" {
		transport = cfg.MCP.Transport
	}
	if !cmd.Flags().Changed("allow-writes") {
		allowWrites = cfg.MCP.AllowWrites
	}

	// stdout carries the protocol in stdio mode, so logs go to stderr.
	logger, err := newLogger(os.Stderr, cfg.Logging, false)
	if err != nil {
		return err
	}

	store, err := openStore(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	srv := arcomcp.NewMCPServer(
		service.NewUserService(store, cfg.Auth.BcryptCost, logger),
		service.NewFeedbackService(store, logger),
		arcomcp.Options{
			Version:      versionString(),
			AllowWrites:  allowWrites,
			DefaultLimit: cfg.MCP.DefaultLimit,
			Logger:       logger,
		},
	)

	switch transport {
	case "", "stdio":
		return srv.ServeStdio()
	case "http":
		return srv.ServeHTTP(fmt.Sprintf(":%d", port))
	default:
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", transport)
	}
}
