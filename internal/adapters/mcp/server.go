package mcpadapter

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/workspace-search/internal/core/ports"
)

const (
	serverName    = "workspace-search"
	serverVersion = "1.0.0"
)

// Server exposes hybrid retrieval as an MCP tool over stdio so agent hosts
// can search workspaces directly. Stdout belongs to the protocol; all
// logging must go to stderr.
type Server struct {
	mcp       *server.MCPServer
	retriever ports.Retriever
	logger    *slog.Logger
}

func NewServer(retriever ports.Retriever, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		mcp:       server.NewMCPServer(serverName, serverVersion),
		retriever: retriever,
		logger:    logger,
	}
	s.mcp.AddTool(searchWorkspaceTool(), s.handleSearchWorkspace)
	return s
}

// Serve blocks until the stdio transport closes.
func (s *Server) Serve(ctx context.Context) error {
	_ = ctx
	return server.ServeStdio(s.mcp)
}
