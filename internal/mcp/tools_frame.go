package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"blockwork/internal/workspace"
	"blockwork/pkg/geometry"
)

func (s *Server) registerFrameTools() {
	// ── create_frame ───────────────────────────────────
	s.addTool(mcp.NewTool("create_frame",
		mcp.WithDescription("Create a frame; top-level blocks inside its content area become members"),
		mcp.WithString("title", mcp.Description("Frame title"), mcp.Required()),
		mcp.WithNumber("left", mcp.Description("Left edge"), mcp.Required()),
		mcp.WithNumber("top", mcp.Description("Top edge"), mcp.Required()),
		mcp.WithNumber("right", mcp.Description("Right edge"), mcp.Required()),
		mcp.WithNumber("bottom", mcp.Description("Bottom edge"), mcp.Required()),
		mcp.WithString("workspaceId", mcp.Description("Workspace ID (optional)")),
	), s.handleCreateFrame)

	// ── retitle_frame ──────────────────────────────────
	s.addTool(mcp.NewTool("retitle_frame",
		mcp.WithDescription("Change a frame's title"),
		mcp.WithString("frameId", mcp.Description("Frame ID"), mcp.Required()),
		mcp.WithString("title", mcp.Description("New title"), mcp.Required()),
		mcp.WithString("workspaceId", mcp.Description("Workspace ID (optional)")),
	), s.handleRetitleFrame)

	// ── move_frame ─────────────────────────────────────
	s.addTool(mcp.NewTool("move_frame",
		mcp.WithDescription("Translate a frame by a delta; membership is re-evaluated after the move"),
		mcp.WithString("frameId", mcp.Description("Frame ID"), mcp.Required()),
		mcp.WithNumber("dx", mcp.Description("Horizontal delta"), mcp.Required()),
		mcp.WithNumber("dy", mcp.Description("Vertical delta"), mcp.Required()),
		mcp.WithString("workspaceId", mcp.Description("Workspace ID (optional)")),
	), s.handleMoveFrame)

	// ── delete_frame (destructive) ─────────────────────
	s.addTool(mcp.NewTool("delete_frame",
		mcp.WithDescription("Delete a frame. Members are kept unless deleteBlocks is true. Undoable."),
		mcp.WithString("frameId", mcp.Description("Frame ID"), mcp.Required()),
		mcp.WithBoolean("deleteBlocks", mcp.Description("Also delete member blocks")),
		mcp.WithString("workspaceId", mcp.Description("Workspace ID (optional)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteFrame)

	// ── list_frames ────────────────────────────────────
	s.addTool(mcp.NewTool("list_frames",
		mcp.WithDescription("List a workspace's frames back-to-front with their member block IDs"),
		mcp.WithString("workspaceId", mcp.Description("Workspace ID (optional)")),
	), s.handleListFrames)
}

func (s *Server) handleCreateFrame(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	ws, err := s.resolveWorkspace(args)
	if err != nil {
		return nil, err
	}
	title, _ := args["title"].(string)
	rect := geometry.Rect{
		Left:   getFloat(args, "left", 0),
		Top:    getFloat(args, "top", 0),
		Right:  getFloat(args, "right", 0),
		Bottom: getFloat(args, "bottom", 0),
	}
	f := ws.CreateFrame(title, rect)
	return jsonResult(f.State())
}

func (s *Server) handleRetitleFrame(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	_, f, err := s.frameForTool(args)
	if err != nil {
		return nil, err
	}
	title, _ := args["title"].(string)
	f.SetTitle(title)
	return textResult(fmt.Sprintf("Frame %s retitled to %q", f.ID(), title)), nil
}

func (s *Server) handleMoveFrame(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	_, f, err := s.frameForTool(args)
	if err != nil {
		return nil, err
	}
	f.MoveBy(geometry.NewPoint(getFloat(args, "dx", 0), getFloat(args, "dy", 0)))
	return jsonResult(f.State())
}

func (s *Server) handleDeleteFrame(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	ws, f, err := s.frameForTool(args)
	if err != nil {
		return nil, err
	}
	if !f.IsDeletable() {
		return nil, fmt.Errorf("frame %s is not deletable", f.ID())
	}
	deleteBlocks, _ := args["deleteBlocks"].(bool)
	id := f.ID()

	// Group so undoing the deletion restores members with the frame.
	ws.Recorder().SetGroup(true)
	f.Dispose(!deleteBlocks)
	ws.Recorder().SetGroup(false)
	return textResult(fmt.Sprintf("Frame %s deleted", id)), nil
}

func (s *Server) handleListFrames(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	ws, err := s.resolveWorkspace(args)
	if err != nil {
		return nil, err
	}
	var out []any
	for _, f := range ws.TopFrames() {
		out = append(out, f.State())
	}
	return jsonResult(out)
}

func (s *Server) frameForTool(args map[string]any) (*workspace.Workspace, *workspace.Frame, error) {
	ws, err := s.resolveWorkspace(args)
	if err != nil {
		return nil, nil, err
	}
	id, _ := args["frameId"].(string)
	f := ws.FrameByID(id)
	if f == nil {
		return nil, nil, fmt.Errorf("unknown frame %q", id)
	}
	return ws, f, nil
}
