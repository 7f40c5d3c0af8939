package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"pagecraft/internal/export"
)

func (s *Server) registerPageTools() {
	// ── analyze_layout ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("analyze_layout",
		mcp.WithDescription("Infer roles, tags, classes and layout strategies for the page and write them back. Returns the tree summary."),
		mcp.WithString("format", mcp.Description("Summary format"), mcp.Enum("json", "yaml")),
	), s.handleAnalyzeLayout)

	// ── preview_export ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("preview_export",
		mcp.WithDescription("Return one generated file without writing anything"),
		mcp.WithString("file", mcp.Description("File to preview"),
			mcp.Enum(export.IndexFile, export.StyleFile, export.ScriptFile, export.ReadmeFile),
			mcp.Required(),
		),
		mcp.WithString("title", mcp.Description("Page title")),
	), s.handlePreviewExport)

	// ── export_page ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("export_page",
		mcp.WithDescription("Write the page as a ZIP archive of index.html, style.css, app.js and README.md"),
		mcp.WithString("path", mcp.Description("Archive path; relative paths resolve against the export output directory")),
		mcp.WithString("title", mcp.Description("Page title")),
		mcp.WithBoolean("analyze", mcp.Description("Run the layout analyzer first, default true")),
	), s.handleExportPage)

	// ── validate_project ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("validate_project",
		mcp.WithDescription("Check the element tree for broken parent/child links and cycles"),
	), s.handleValidateProject)
}

func (s *Server) handleAnalyzeLayout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res := s.session.Analyze()
	data, err := res.Encode(req.GetString("format", "json"))
	if err != nil {
		return nil, err
	}
	return textResult(string(data)), nil
}

func (s *Server) handlePreviewExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	b, err := s.session.Bundle(req.GetString("title", ""))
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	switch file := req.GetString("file", export.IndexFile); file {
	case export.IndexFile:
		return textResult(b.HTML), nil
	case export.StyleFile:
		return textResult(b.CSS), nil
	case export.ScriptFile:
		return textResult(b.JS), nil
	case export.ReadmeFile:
		return textResult(b.README), nil
	default:
		return nil, fmt.Errorf("unknown file %q", file)
	}
}

func (s *Server) handleExportPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if req.GetBool("analyze", true) {
		s.session.Analyze()
	}
	path := s.outputPath(req.GetString("path", ""))
	n, err := s.session.WriteArchive(ctx, path, req.GetString("title", ""))
	if err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Wrote %s (%d bytes)", path, n)), nil
}

func (s *Server) handleValidateProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.session.Validate(); err != nil {
		return textResult("Invalid: " + err.Error()), nil
	}
	return textResult(fmt.Sprintf("OK: %d elements", len(s.session.Elements()))), nil
}
