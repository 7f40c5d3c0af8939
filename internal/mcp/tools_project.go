package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerProjectTools() {
	// ── save_project ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("save_project",
		mcp.WithDescription("Save the page to the project database and record a revision"),
		mcp.WithString("name", mcp.Description("Project name; required on the first save")),
	), s.handleSaveProject)

	// ── open_project ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("open_project",
		mcp.WithDescription("Replace the page with a saved project. Clears undo history."),
		mcp.WithString("project", mcp.Description("Project ID or name"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleOpenProject)

	// ── list_projects ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List saved projects, most recently updated first"),
	), s.handleListProjects)

	// ── list_revisions ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_revisions",
		mcp.WithDescription("List saved revisions of the open project, newest first"),
	), s.handleListRevisions)

	// ── restore_revision ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("restore_revision",
		mcp.WithDescription("Restore a saved revision of the open project (undoable)"),
		mcp.WithNumber("id", mcp.Description("Revision ID"), mcp.Required()),
	), s.handleRestoreRevision)

	// ── load_project_json ──────────────────────────────
	s.mcp.AddTool(mcp.NewTool("load_project_json",
		mcp.WithDescription("Replace the page with a project document. Invalid documents leave the page unchanged."),
		mcp.WithString("json", mcp.Description("Project document"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleLoadProjectJSON)

	// ── get_project_json ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_project_json",
		mcp.WithDescription("Return the page as a project document"),
	), s.handleGetProjectJSON)
}

func (s *Server) handleSaveProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := s.session.Save(ctx, req.GetString("name", ""))
	if err != nil {
		return nil, fmt.Errorf("save project: %w", err)
	}
	p.ProjectJSON = ""
	return jsonResult(p)
}

func (s *Server) handleOpenProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref := req.GetString("project", "")
	if ref == "" {
		return nil, fmt.Errorf("project is required")
	}
	p, err := s.session.Open(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("open project: %w", err)
	}
	return textResult(fmt.Sprintf("Opened %s (%d elements)", p.Name, p.ElementCount)), nil
}

func (s *Server) handleListProjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.session.Projects()
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return jsonResult(projects)
}

func (s *Server) handleListRevisions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	revs, err := s.session.Revisions()
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	return jsonResult(revs)
}

func (s *Server) handleRestoreRevision(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := int64(req.GetFloat("id", 0))
	if id <= 0 {
		return nil, fmt.Errorf("id is required")
	}
	if err := s.session.RestoreRevision(id); err != nil {
		return nil, fmt.Errorf("restore revision: %w", err)
	}
	return textResult(fmt.Sprintf("Restored revision %d", id)), nil
}

func (s *Server) handleLoadProjectJSON(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.session.LoadJSON([]byte(req.GetString("json", ""))); err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	return textResult(fmt.Sprintf("Loaded %d elements", len(s.session.Elements()))), nil
}

func (s *Server) handleGetProjectJSON(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := s.session.ToJSON()
	if err != nil {
		return nil, err
	}
	return textResult(string(data)), nil
}
