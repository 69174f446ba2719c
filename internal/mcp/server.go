// Package mcpserver exposes the editor core over the Model Context
// Protocol so AI agents can inspect and edit workspaces: create and move
// blocks and frames, walk the undo history, list state.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"blockwork/internal/workspace"
)

// Server is the MCP server over a hub of workspaces.
type Server struct {
	mcp *server.MCPServer
	hub *workspace.Hub

	// Active workspace context (set by the set_active_workspace tool)
	activeWorkspaceID string
}

// New creates a server with every tool registered.
func New(hub *workspace.Hub) *Server {
	s := &Server{hub: hub}

	s.mcp = server.NewMCPServer(
		"blockwork-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerWorkspaceTools()
	s.registerBlockTools()
	s.registerFrameTools()
	s.registerHistoryTools()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Println("[MCP] Starting stdio server...")
	return server.ServeStdio(s.mcp)
}

// addTool registers a tool with its handler wrapped in the hub's edit
// lock: tool calls and feed ingestion mutate the same lock-free workspace
// structures and must never interleave.
func (s *Server) addTool(tool mcp.Tool, h server.ToolHandlerFunc) {
	s.mcp.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var res *mcp.CallToolResult
		var err error
		s.hub.Sync(func() { res, err = h(ctx, req) })
		return res, err
	})
}

func (s *Server) registerWorkspaceTools() {
	s.addTool(mcp.NewTool("list_workspaces",
		mcp.WithDescription("List the workspaces of this editing session"),
	), s.handleListWorkspaces)

	s.addTool(mcp.NewTool("set_active_workspace",
		mcp.WithDescription("Select the workspace subsequent tools default to"),
		mcp.WithString("workspaceId", mcp.Description("Workspace ID"), mcp.Required()),
	), s.handleSetActiveWorkspace)
}

func (s *Server) handleListWorkspaces(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	type summary struct {
		ID        string  `json:"id"`
		Scale     float64 `json:"scale"`
		Blocks    int     `json:"blocks"`
		Frames    int     `json:"frames"`
		UndoDepth int     `json:"undoDepth"`
	}
	var out []summary
	for _, ws := range s.hub.Workspaces() {
		out = append(out, summary{
			ID:        ws.ID(),
			Scale:     ws.Scale(),
			Blocks:    len(ws.AllBlocks()),
			Frames:    len(ws.TopFrames()),
			UndoDepth: ws.UndoDepth(),
		})
	}
	return jsonResult(out)
}

func (s *Server) handleSetActiveWorkspace(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, _ := args["workspaceId"].(string)
	if s.hub.ByID(id) == nil {
		return nil, fmt.Errorf("unknown workspace %q", id)
	}
	s.activeWorkspaceID = id
	return textResult(fmt.Sprintf("Active workspace set to %s", id)), nil
}

// resolveWorkspace returns the workspace from tool args or the active one.
func (s *Server) resolveWorkspace(args map[string]any) (*workspace.Workspace, error) {
	id, _ := args["workspaceId"].(string)
	if id == "" {
		id = s.activeWorkspaceID
	}
	if id == "" {
		return nil, fmt.Errorf("no workspaceId provided and no active workspace set (use set_active_workspace first)")
	}
	ws := s.hub.ByID(id)
	if ws == nil {
		return nil, fmt.Errorf("unknown workspace %q", id)
	}
	return ws, nil
}

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

func getFloat(args map[string]any, key string, fallback float64) float64 {
	if v, ok := args[key].(float64); ok {
		return v
	}
	return fallback
}
