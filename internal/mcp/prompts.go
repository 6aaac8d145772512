package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("side_by_side",
		mcp.WithPromptDescription("Place two blocks next to each other in a row of columns"),
		mcp.WithArgument("leftBlockId",
			mcp.ArgumentDescription("Block that should end up in the left column"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("rightBlockId",
			mcp.ArgumentDescription("Block that should end up in the right column"),
			mcp.RequiredArgument(),
		),
	), s.handleSideBySidePrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("tidy_page",
		mcp.WithPromptDescription("Review the layout of the active page and propose a cleaner arrangement"),
		mcp.WithArgument("goal",
			mcp.ArgumentDescription("What the page should look like when done"),
		),
	), s.handleTidyPagePrompt)
}

func (s *Server) handleSideBySidePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	left := req.Params.Arguments["leftBlockId"]
	right := req.Params.Arguments["rightBlockId"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Put %s and %s side by side", left, right),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Put block "%s" to the left of block "%s" on the active page. Follow these steps:

1. Use get_document to see where both blocks are
2. If "%s" already sits in a row that has the maximum number of columns, use remove_from_row on one of its neighbours first
3. Use split_into_columns with blockId "%s", targetId "%s" and zone "left"
4. If the columns look unbalanced, use resize_columns on the new row

Report the final tree when done.`, left, right, right, left, right),
				},
			},
		},
	}, nil
}

func (s *Server) handleTidyPagePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	goal := req.Params.Arguments["goal"]
	if goal == "" {
		goal = "a readable single flow with related blocks grouped"
	}
	return &mcp.GetPromptResult{
		Description: "Tidy the active page",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Rearrange the active page so that it becomes %s. Follow these steps:

1. Use get_document and get_layout to understand the current tree
2. Propose the new order and any rows of columns before changing anything
3. Apply the changes with move_block, split_into_columns and remove_from_row
4. Use undo if a step does not look right

Never delete blocks unless the user asks for it.`, goal),
				},
			},
		},
	}, nil
}
