package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"pagecraft/internal/store"
)

const (
	projectURI       = "pagecraft://project"
	elementsURI      = "pagecraft://elements"
	elementURIPrefix = "pagecraft://element/"
)

func (s *Server) registerResources() {
	// ── pagecraft://project ────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		projectURI,
		"Current Project",
		mcp.WithResourceDescription("The page as a project document"),
		mcp.WithMIMEType("application/json"),
	), s.handleProjectResource)

	// ── pagecraft://elements ───────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		elementsURI,
		"Element Tree",
		mcp.WithResourceDescription("Element tree summary with ids, geometry and roles"),
		mcp.WithMIMEType("application/json"),
	), s.handleElementsResource)

	// ── pagecraft://element/{id} ───────────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			elementURIPrefix+"{id}",
			"Element",
		),
		s.handleElementResource,
	)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleProjectResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := s.session.ToJSON()
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      projectURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleElementsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	var tree []*elementSummary
	s.session.View(func(st *store.Store) { tree = summarize(st) })
	return jsonContents(elementsURI, tree)
}

func (s *Server) handleElementResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	id := elementIDFromURI(uri)
	if id == "" {
		return nil, fmt.Errorf("could not extract element id from URI: %s", uri)
	}
	el, ok := s.session.Element(id)
	if !ok {
		return nil, fmt.Errorf("element %q not found", id)
	}
	return jsonContents(uri, el)
}

// elementIDFromURI extracts the id from pagecraft://element/{id}.
func elementIDFromURI(uri string) string {
	id, ok := strings.CutPrefix(uri, elementURIPrefix)
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}
