package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerHistoryTools() {
	s.addTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the newest event group of a workspace"),
		mcp.WithString("workspaceId", mcp.Description("Workspace ID (optional)")),
	), s.handleUndo)

	s.addTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the most recently undone event group"),
		mcp.WithString("workspaceId", mcp.Description("Workspace ID (optional)")),
	), s.handleRedo)

	s.addTool(mcp.NewTool("history_depth",
		mcp.WithDescription("Report the undo and redo stack depths"),
		mcp.WithString("workspaceId", mcp.Description("Workspace ID (optional)")),
	), s.handleHistoryDepth)
}

func (s *Server) handleUndo(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ws, err := s.resolveWorkspace(req.GetArguments())
	if err != nil {
		return nil, err
	}
	if ws.UndoDepth() == 0 {
		return textResult("Nothing to undo"), nil
	}
	ws.Undo(false)
	return textResult(fmt.Sprintf("Undone; %d group(s) remain", ws.UndoDepth())), nil
}

func (s *Server) handleRedo(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ws, err := s.resolveWorkspace(req.GetArguments())
	if err != nil {
		return nil, err
	}
	if ws.RedoDepth() == 0 {
		return textResult("Nothing to redo"), nil
	}
	ws.Undo(true)
	return textResult("Redone"), nil
}

func (s *Server) handleHistoryDepth(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ws, err := s.resolveWorkspace(req.GetArguments())
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]int{
		"undo": ws.UndoDepth(),
		"redo": ws.RedoDepth(),
	})
}
