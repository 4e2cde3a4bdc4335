package mcpserver

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"stylecanvas/internal/service"
	"stylecanvas/internal/storage"
)

// Server is the MCP server for the sync engine. It exposes tools so AI
// agents can inspect and mutate the canvas document alongside the
// websocket observers.
type Server struct {
	mcp  *server.MCPServer
	sync *service.SyncService

	// Optional revision history (nil when running without SQLite)
	revisions *storage.RevisionStore
}

// Deps holds the dependencies passed from the entry point.
type Deps struct {
	Sync      *service.SyncService
	Revisions *storage.RevisionStore
}

// New creates and configures an MCP server with all design tools.
func New(deps Deps) *Server {
	s := &Server{
		sync:      deps.Sync,
		revisions: deps.Revisions,
	}

	s.mcp = server.NewMCPServer(
		"stylecanvas-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerDesignTools()
	s.registerHistoryTools()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Println("mcp: starting stdio server")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func requiredString(args map[string]any, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}
