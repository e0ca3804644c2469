package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/avellore/ragstack/internal/rag"
	"github.com/avellore/ragstack/pkg/logger_i"
)

const serverVersion = "0.3.0"

// Server exposes retrieval over the Model Context Protocol so editor agents
// can query the content index without going through the HTTP API.
type Server struct {
	ragService rag.Service
	server     *mcp.Server
	logger     *logger_i.Logger
}

func NewServer(ragService rag.Service) *Server {
	impl := &mcp.Implementation{
		Name:    "ragstack",
		Version: serverVersion,
	}

	s := &Server{
		ragService: ragService,
		server:     mcp.NewServer(impl, nil),
		logger:     logger_i.NewLogger("MCPServer"),
	}

	s.registerTools()
	return s
}

// Run serves over stdio until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("MCP server starting on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
