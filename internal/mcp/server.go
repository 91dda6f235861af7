package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/repoflow-ai/repoflow/internal/lifecycle"
	"github.com/repoflow-ai/repoflow/internal/rag"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes repository question answering
// over stdio.
type Server struct {
	engine  *rag.Engine
	manager *lifecycle.Manager
	mcp     *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(engine *rag.Engine, manager *lifecycle.Manager) *Server {
	s := &Server{
		engine:  engine,
		manager: manager,
	}

	s.mcp = server.NewMCPServer(
		"repoflow",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(askRepositoryTool, s.handleAskRepository)
	s.mcp.AddTool(searchChunksTool, s.handleSearchChunks)
	s.mcp.AddTool(indexStatusTool, s.handleIndexStatus)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
