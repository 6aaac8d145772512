package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"blockgrid/internal/domain"
	"blockgrid/internal/layout"
)

const zoneHelp = "Drop zone relative to the target: before, after, left or right"

func (s *Server) registerLayoutTools() {
	// ── get_document ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Return the block tree of a page: top-level blocks and rows of columns"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleGetDocument)

	// ── get_layout ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_layout",
		mcp.WithDescription("Return the computed on-screen bounds of every block and row on a page"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleGetLayout)

	// ── insert_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("insert_block",
		mcp.WithDescription("Insert a new block before or after a target, or at the end of the page"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("type", mcp.Description("Block type: paragraph, heading, image, code, list, database"), mcp.Required()),
		mcp.WithString("blockId", mcp.Description("ID for the new block (optional, generated if omitted)")),
		mcp.WithString("targetId", mcp.Description("Block to insert next to (optional, appends if omitted)")),
		mcp.WithString("zone", mcp.Description("before or after (default after)")),
		mcp.WithString("content", mcp.Description("JSON content for the block (optional)")),
	), s.handleInsertBlock)

	// ── move_block ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_block",
		mcp.WithDescription("Move a block or row before or after another block. Moving the last block out of a column dissolves it."),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("blockId", mcp.Description("Block or row to move"), mcp.Required()),
		mcp.WithString("targetId", mcp.Description("Target block"), mcp.Required()),
		mcp.WithString("zone", mcp.Description("before or after"), mcp.Required()),
	), s.handleMoveBlock)

	// ── split_into_columns ─────────────────────────────
	s.mcp.AddTool(mcp.NewTool("split_into_columns",
		mcp.WithDescription("Place a block in a new column to the left or right of a target, creating a row if needed"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("blockId", mcp.Description("Block to place"), mcp.Required()),
		mcp.WithString("targetId", mcp.Description("Target block"), mcp.Required()),
		mcp.WithString("zone", mcp.Description("left or right"), mcp.Required()),
	), s.handleSplitIntoColumns)

	// ── drag_block ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("drag_block",
		mcp.WithDescription("Drag a block onto a zone of a target exactly as a pointer would, including zone suppression rules"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("blockId", mcp.Description("Block or row to drag"), mcp.Required()),
		mcp.WithString("targetId", mcp.Description("Target block"), mcp.Required()),
		mcp.WithString("zone", mcp.Description(zoneHelp), mcp.Required()),
	), s.handleDragBlock)

	// ── remove_from_row ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("remove_from_row",
		mcp.WithDescription("Take a block out of its column and place it below the row"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("blockId", mcp.Description("Block inside a row"), mcp.Required()),
	), s.handleRemoveFromRow)

	// ── resize_columns ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("resize_columns",
		mcp.WithDescription("Move the divider between two columns of a row. Widths clamp at the minimum column width."),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("rowId", mcp.Description("Row ID"), mcp.Required()),
		mcp.WithNumber("divider", mcp.Description("Index of the column left of the divider"), mcp.Required()),
		mcp.WithNumber("deltaPx", mcp.Description("Pixels to move the divider; positive widens the left column"), mcp.Required()),
		mcp.WithNumber("rowWidthPx", mcp.Description("Row width in pixels (default 720)")),
	), s.handleResizeColumns)

	// ── delete_block (destructive) ─────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_block",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete a block or a whole row. Requires user approval."),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("blockId", mcp.Description("Block or row to delete"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteBlock)
}

func boolPtr(v bool) *bool { return &v }

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleGetDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req.GetArguments())
	if err != nil {
		return nil, err
	}
	doc, err := s.layout.GetDocument(pageID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return jsonResult(doc)
}

func (s *Server) handleGetLayout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req.GetArguments())
	if err != nil {
		return nil, err
	}
	doc, err := s.layout.GetDocument(pageID)
	if err != nil {
		return nil, fmt.Errorf("get layout: %w", err)
	}
	return jsonResult(layout.NewEngine(layout.DefaultMetrics()).Compute(doc))
}

func (s *Server) handleInsertBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	pageID, err := s.resolvePageID(args)
	if err != nil {
		return nil, err
	}
	blockType, err := requireString(args, "type")
	if err != nil {
		return nil, err
	}
	b := domain.Block{
		ID:   req.GetString("blockId", ""),
		Type: domain.BlockType(blockType),
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if content := req.GetString("content", ""); content != "" {
		if !json.Valid([]byte(content)) {
			return nil, fmt.Errorf("content must be valid JSON")
		}
		b.Content = json.RawMessage(content)
	}

	targetID := req.GetString("targetId", "")
	z := domain.ZoneAfter
	if targetID != "" {
		if raw := req.GetString("zone", ""); raw != "" {
			if z, err = parseZone(raw); err != nil {
				return nil, err
			}
		}
	}
	doc, err := s.layout.InsertBlock(pageID, b, targetID, z)
	if err != nil {
		return nil, fmt.Errorf("insert block: %w", err)
	}
	s.emitLayoutChanged(ctx, pageID, "insert_block")
	return jsonResult(doc)
}

func (s *Server) handleMoveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.pairEdit(ctx, req, "move_block", s.layout.MoveBlock)
}

func (s *Server) handleSplitIntoColumns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.pairEdit(ctx, req, "split_into_columns", s.layout.SplitIntoColumns)
}

// pairEdit runs an edit that places blockId at zone of targetId.
func (s *Server) pairEdit(ctx context.Context, req mcp.CallToolRequest, tool string, edit func(pageID, id, targetID string, z domain.Zone) (domain.Document, error)) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	pageID, err := s.resolvePageID(args)
	if err != nil {
		return nil, err
	}
	id, err := requireString(args, "blockId")
	if err != nil {
		return nil, err
	}
	targetID, err := requireString(args, "targetId")
	if err != nil {
		return nil, err
	}
	z, err := parseZone(req.GetString("zone", ""))
	if err != nil {
		return nil, err
	}
	doc, err := edit(pageID, id, targetID, z)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", tool, err)
	}
	s.emitLayoutChanged(ctx, pageID, tool)
	return jsonResult(doc)
}

func (s *Server) handleDragBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	pageID, err := s.resolvePageID(args)
	if err != nil {
		return nil, err
	}
	id, err := requireString(args, "blockId")
	if err != nil {
		return nil, err
	}
	targetID, err := requireString(args, "targetId")
	if err != nil {
		return nil, err
	}
	z, err := parseZone(req.GetString("zone", ""))
	if err != nil {
		return nil, err
	}

	doc, err := s.layout.GetDocument(pageID)
	if err != nil {
		return nil, err
	}
	cfg := s.layout.Config()
	plan, err := planGesture(doc, layout.DefaultMetrics(), id, targetID, z, cfg.Layout.EdgeThresholdPx, cfg.AutoScroll.EdgeZonePx)
	if err != nil {
		return nil, fmt.Errorf("drag_block: %w", err)
	}
	out, err := s.replayGesture(pageID, id, z, plan)
	if err != nil {
		return nil, fmt.Errorf("drag_block: %w", err)
	}
	s.emitLayoutChanged(ctx, pageID, "drag_block")
	return jsonResult(out)
}

func (s *Server) handleRemoveFromRow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	pageID, err := s.resolvePageID(args)
	if err != nil {
		return nil, err
	}
	id, err := requireString(args, "blockId")
	if err != nil {
		return nil, err
	}
	doc, err := s.layout.RemoveFromRow(pageID, id)
	if err != nil {
		return nil, fmt.Errorf("remove_from_row: %w", err)
	}
	s.emitLayoutChanged(ctx, pageID, "remove_from_row")
	return jsonResult(doc)
}

func (s *Server) handleResizeColumns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	pageID, err := s.resolvePageID(args)
	if err != nil {
		return nil, err
	}
	rowID, err := requireString(args, "rowId")
	if err != nil {
		return nil, err
	}
	divider, _ := args["divider"].(float64)
	deltaPx, _ := args["deltaPx"].(float64)
	rowWidth, ok := args["rowWidthPx"].(float64)
	if !ok || rowWidth <= 0 {
		rowWidth = layout.DefaultWidth
	}

	doc, clamped, err := s.layout.ResizeColumns(pageID, rowID, int(divider), deltaPx, rowWidth)
	if err != nil {
		return nil, fmt.Errorf("resize_columns: %w", err)
	}
	s.emitLayoutChanged(ctx, pageID, "resize_columns")
	return jsonResult(map[string]any{"clamped": clamped, "document": doc})
}

func (s *Server) handleDeleteBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	pageID, err := s.resolvePageID(args)
	if err != nil {
		return nil, err
	}
	id, err := requireString(args, "blockId")
	if err != nil {
		return nil, err
	}

	meta, _ := json.Marshal(map[string]string{"pageId": pageID, "blockId": id})
	approved, err := s.approval.Request("delete_block", fmt.Sprintf("Delete %s from page %s", id, pageID), string(meta))
	if err != nil {
		return nil, err
	}
	if !approved {
		return textResult("Deletion was not approved"), nil
	}

	doc, err := s.layout.DeleteBlock(pageID, id)
	if err != nil {
		return nil, fmt.Errorf("delete_block: %w", err)
	}
	s.emitLayoutChanged(ctx, pageID, "delete_block")
	return jsonResult(doc)
}
