package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/arcoapp/arco-admin/internal/service"
)

// MCPServer wraps the mcp-go server with the admin tools and resources. It
// lets AI agents inspect accounts, feedback and dashboard counters, and
// optionally archive or restore accounts.
type MCPServer struct {
	users       *service.UserService
	feedback    *service.FeedbackService
	allowWrites bool
	limit       int
	logger      *slog.Logger
	server      *server.MCPServer
}

// Options configures NewMCPServer.
type Options struct {
	Version string
	Logger  *slog.Logger

	// AllowWrites registers the archive and restore tools.
	AllowWrites bool

	// DefaultLimit caps list results when the caller gives no limit.
	DefaultLimit int
}

// NewMCPServer creates an MCPServer pre-loaded with all tools and resources.
// The returned server is ready to serve over stdio or HTTP.
func NewMCPServer(users *service.UserService, feedback *service.FeedbackService, opts Options) *MCPServer {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = defaultListLimit
	}
	s := &MCPServer{
		users:       users,
		feedback:    feedback,
		allowWrites: opts.AllowWrites,
		limit:       clamp(opts.DefaultLimit, 1, maxListLimit),
		logger:      opts.Logger,
	}

	mcpServer := server.NewMCPServer(
		"Arco Admin",
		opts.Version,
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go MCPServer instance.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio starts the MCP server in stdio mode, for clients that launch
// the server as a subprocess.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode", "writes", s.allowWrites)
	return server.ServeStdio(s.server)
}

// ServeHTTP starts the MCP server in Streamable HTTP mode, listening on
// the given address (e.g. ":3001").
func (s *MCPServer) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.server)
	s.logger.Info("MCP HTTP server starting", "addr", addr, "writes", s.allowWrites)
	return httpServer.Start(addr)
}

func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(true),
	}
}

func mutatingAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint:    boolPtr(false),
		DestructiveHint: boolPtr(false),
		IdempotentHint:  boolPtr(true),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
