package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"blockwork/internal/events"
	"blockwork/internal/workspace"
	"blockwork/pkg/geometry"
)

func moveAnchor(parentID, input string, pos geometry.Point) events.MoveAnchor {
	return events.MoveAnchor{ParentID: parentID, InputName: input, Point: pos}
}

func (s *Server) registerBlockTools() {
	// ── create_block ───────────────────────────────────
	s.addTool(mcp.NewTool("create_block",
		mcp.WithDescription("Create a top-level block in the workspace"),
		mcp.WithString("type", mcp.Description("Block opcode, e.g. control_repeat"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("X position in workspace units")),
		mcp.WithNumber("y", mcp.Description("Y position in workspace units")),
		mcp.WithString("workspaceId", mcp.Description("Workspace ID (optional, defaults to active)")),
	), s.handleCreateBlock)

	// ── move_block ─────────────────────────────────────
	s.addTool(mcp.NewTool("move_block",
		mcp.WithDescription("Move a block to an absolute position; its subtree and frame membership follow"),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("New X position"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("New Y position"), mcp.Required()),
		mcp.WithString("workspaceId", mcp.Description("Workspace ID (optional)")),
	), s.handleMoveBlock)

	// ── connect_blocks ─────────────────────────────────
	s.addTool(mcp.NewTool("connect_blocks",
		mcp.WithDescription("Plug a block into a parent block's input"),
		mcp.WithString("blockId", mcp.Description("Block to plug in"), mcp.Required()),
		mcp.WithString("parentId", mcp.Description("Parent block ID"), mcp.Required()),
		mcp.WithString("input", mcp.Description("Parent input name; empty stacks below the parent")),
		mcp.WithString("workspaceId", mcp.Description("Workspace ID (optional)")),
	), s.handleConnectBlocks)

	// ── delete_block (destructive) ─────────────────────
	s.addTool(mcp.NewTool("delete_block",
		mcp.WithDescription("Delete a block and its whole subtree. Undoable."),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("workspaceId", mcp.Description("Workspace ID (optional)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteBlock)

	// ── set_block_field ────────────────────────────────
	s.addTool(mcp.NewTool("set_block_field",
		mcp.WithDescription("Set a field value on a block"),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("name", mcp.Description("Field name"), mcp.Required()),
		mcp.WithString("value", mcp.Description("Field value"), mcp.Required()),
		mcp.WithString("workspaceId", mcp.Description("Workspace ID (optional)")),
	), s.handleSetBlockField)

	// ── list_blocks ────────────────────────────────────
	s.addTool(mcp.NewTool("list_blocks",
		mcp.WithDescription("List the blocks of a workspace, optionally filtered by type"),
		mcp.WithString("type", mcp.Description("Filter by opcode (optional)")),
		mcp.WithString("workspaceId", mcp.Description("Workspace ID (optional)")),
	), s.handleListBlocks)
}

func boolPtr(v bool) *bool { return &v }

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleCreateBlock(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	ws, err := s.resolveWorkspace(args)
	if err != nil {
		return nil, err
	}
	typ, _ := args["type"].(string)
	if typ == "" {
		return nil, fmt.Errorf("type is required")
	}
	pos := geometry.NewPoint(getFloat(args, "x", 0), getFloat(args, "y", 0))
	b := ws.CreateBlock(typ, pos)
	ws.RefreshFrameMemberships()
	return jsonResult(b.State())
}

func (s *Server) handleMoveBlock(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	ws, b, err := s.blockForTool(args)
	if err != nil {
		return nil, err
	}
	parentID, input, pos := b.Anchor()
	b.Unplug()
	b.MoveTo(geometry.NewPoint(getFloat(args, "x", pos.X), getFloat(args, "y", pos.Y)))
	ws.FireBlockMove(b, moveAnchor(parentID, input, pos))
	ws.RefreshFrameMemberships()
	return jsonResult(b.State())
}

func (s *Server) handleConnectBlocks(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	ws, b, err := s.blockForTool(args)
	if err != nil {
		return nil, err
	}
	parentID, _ := args["parentId"].(string)
	parent := ws.BlockByID(parentID)
	if parent == nil {
		return nil, fmt.Errorf("unknown parent block %q", parentID)
	}
	oldParent, oldInput, oldPos := b.Anchor()
	input, _ := args["input"].(string)
	if err := b.ConnectTo(parent, input); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	ws.FireBlockMove(b, moveAnchor(oldParent, oldInput, oldPos))
	return textResult(fmt.Sprintf("Block %s connected to %s", b.ID(), parent.ID())), nil
}

func (s *Server) handleDeleteBlock(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	ws, b, err := s.blockForTool(args)
	if err != nil {
		return nil, err
	}
	if !b.IsDeletable() {
		return nil, fmt.Errorf("block %s is not deletable", b.ID())
	}
	id := b.ID()
	ws.DisposeBlock(b)
	return textResult(fmt.Sprintf("Block %s deleted", id)), nil
}

func (s *Server) handleSetBlockField(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	_, b, err := s.blockForTool(args)
	if err != nil {
		return nil, err
	}
	name, _ := args["name"].(string)
	value, _ := args["value"].(string)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	b.SetField(name, value)
	return textResult(fmt.Sprintf("Field %s set on block %s", name, b.ID())), nil
}

func (s *Server) handleListBlocks(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	ws, err := s.resolveWorkspace(args)
	if err != nil {
		return nil, err
	}
	filter, _ := args["type"].(string)
	var out []any
	for _, b := range ws.AllBlocks() {
		if filter != "" && b.Type() != filter {
			continue
		}
		out = append(out, b.State())
	}
	return jsonResult(out)
}

func (s *Server) blockForTool(args map[string]any) (*workspace.Workspace, *workspace.Block, error) {
	ws, err := s.resolveWorkspace(args)
	if err != nil {
		return nil, nil, err
	}
	id, _ := args["blockId"].(string)
	b := ws.BlockByID(id)
	if b == nil {
		return nil, nil, fmt.Errorf("unknown block %q", id)
	}
	return ws, b, nil
}
