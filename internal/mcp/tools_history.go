package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerHistoryTools() {
	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the last change to a page"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleUndo)

	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the most recently undone change to a page"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleRedo)

	s.mcp.AddTool(mcp.NewTool("get_history",
		mcp.WithDescription("Return the undo tree of a page"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleGetHistory)
}

func (s *Server) handleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req.GetArguments())
	if err != nil {
		return nil, err
	}
	doc, err := s.layout.Undo(pageID)
	if err != nil {
		return nil, fmt.Errorf("undo: %w", err)
	}
	s.emitLayoutChanged(ctx, pageID, "undo")
	return jsonResult(doc)
}

func (s *Server) handleRedo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req.GetArguments())
	if err != nil {
		return nil, err
	}
	doc, err := s.layout.Redo(pageID)
	if err != nil {
		return nil, fmt.Errorf("redo: %w", err)
	}
	s.emitLayoutChanged(ctx, pageID, "redo")
	return jsonResult(doc)
}

func (s *Server) handleGetHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req.GetArguments())
	if err != nil {
		return nil, err
	}
	tree, err := s.layout.History(pageID)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	if tree == nil {
		return textResult("No history"), nil
	}
	return jsonResult(tree)
}
