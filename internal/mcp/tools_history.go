package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerHistoryTools() {
	s.mcp.AddTool(mcp.NewTool("list_revisions",
		mcp.WithDescription("List recent document revisions, newest first"),
		mcp.WithString("documentPath", mcp.Description("Document path"), mcp.Required()),
		mcp.WithNumber("limit", mcp.Description("Max revisions to return (default 50)")),
	), s.handleListRevisions)

	s.mcp.AddTool(mcp.NewTool("get_revision",
		mcp.WithDescription("Load one revision and its full document snapshot"),
		mcp.WithString("revisionId", mcp.Description("Revision ID"), mcp.Required()),
	), s.handleGetRevision)
}

func (s *Server) handleListRevisions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.revisions == nil {
		return nil, fmt.Errorf("revision history is disabled")
	}
	args := req.GetArguments()
	docPath, err := requiredString(args, "documentPath")
	if err != nil {
		return nil, err
	}
	limit, _ := args["limit"].(float64)

	revs, err := s.revisions.List(docPath, int(limit))
	if err != nil {
		return nil, err
	}
	return jsonResult(revs)
}

func (s *Server) handleGetRevision(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.revisions == nil {
		return nil, fmt.Errorf("revision history is disabled")
	}
	args := req.GetArguments()
	revisionID, err := requiredString(args, "revisionId")
	if err != nil {
		return nil, err
	}

	rev, doc, err := s.revisions.Get(revisionID)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{
		"revision": rev,
		"document": doc,
	})
}
