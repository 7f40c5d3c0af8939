package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"pagecraft/internal/domain"
)

func (s *Server) registerViewTools() {
	// ── select_elements ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("select_elements",
		mcp.WithDescription("Replace the selection. Unknown ids are ignored; an empty list clears it."),
		mcp.WithArray("ids", mcp.Description("Element IDs"), mcp.Items(map[string]any{"type": "string"})),
		mcp.WithBoolean("all", mcp.Description("Select every element instead")),
	), s.handleSelectElements)

	// ── set_viewport ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_viewport",
		mcp.WithDescription("Change zoom, pan, grid or snapping. Omitted fields stay as they are."),
		mcp.WithNumber("zoom", mcp.Description("Zoom factor, clamped to the configured limits")),
		mcp.WithNumber("panX", mcp.Description("Horizontal pan in screen pixels")),
		mcp.WithNumber("panY", mcp.Description("Vertical pan in screen pixels")),
		mcp.WithNumber("gridSize", mcp.Description("Grid spacing in canvas units")),
		mcp.WithBoolean("gridVisible", mcp.Description("Show the grid")),
		mcp.WithBoolean("snap", mcp.Description("Enable snapping")),
		mcp.WithString("tool", mcp.Description("Active tool"),
			mcp.Enum(string(domain.ToolSelect), string(domain.ToolDraw), string(domain.ToolHand))),
	), s.handleSetViewport)
}

func (s *Server) handleSelectElements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if req.GetBool("all", false) {
		s.session.SelectAll()
	} else {
		s.session.Select(stringList(req.GetArguments(), "ids")...)
	}
	return jsonResult(map[string]any{"selection": s.session.Selection()})
}

func (s *Server) handleSetViewport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	vp := s.session.Viewport()

	if z, ok := optFloat(args, "zoom"); ok {
		if z <= 0 {
			return nil, fmt.Errorf("zoom must be positive")
		}
		s.session.SetZoom(z)
	}
	px, okX := optFloat(args, "panX")
	py, okY := optFloat(args, "panY")
	if okX || okY {
		if !okX {
			px = vp.PanX
		}
		if !okY {
			py = vp.PanY
		}
		s.session.SetPan(px, py)
	}
	_, hasVisible := args["gridVisible"]
	if size, ok := optFloat(args, "gridSize"); ok || hasVisible {
		if !ok {
			size = vp.GridSize
		}
		s.session.SetGrid(size, req.GetBool("gridVisible", vp.GridVisible))
	}
	if _, ok := args["snap"]; ok {
		s.session.SetSnapEnabled(req.GetBool("snap", vp.SnapEnabled))
	}
	if tool := req.GetString("tool", ""); tool != "" {
		s.session.SetTool(domain.Tool(tool))
	}
	return jsonResult(s.session.Viewport())
}
