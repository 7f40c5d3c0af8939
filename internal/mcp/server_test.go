package mcpserver

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"pagecraft/internal/config"
	"pagecraft/internal/domain"
	"pagecraft/internal/export"
	"pagecraft/internal/service"
	"pagecraft/internal/storage"
	"pagecraft/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Export.OutputDir = t.TempDir()

	db, err := storage.New(filepath.Join(t.TempDir(), "pagecraft.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var mu sync.Mutex
	n := 0
	ids := store.WithIDGenerator(func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("e%d", n)
	})

	log := zaptest.NewLogger(t)
	sess := service.NewSession(cfg,
		service.WithLogger(log),
		service.WithStorage(db, 5),
		service.WithStoreOptions(ids),
	)
	return New(Deps{Session: sess, Config: cfg, Logger: log, Version: "test"})
}

func call(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, error) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	if err != nil {
		return "", err
	}
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text, nil
}

func mustCall(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) string {
	t.Helper()
	out, err := call(t, h, args)
	require.NoError(t, err)
	return out
}

func decodeElement(t *testing.T, out string) domain.Element {
	t.Helper()
	var el domain.Element
	require.NoError(t, json.Unmarshal([]byte(out), &el))
	return el
}

func TestAddElement_AutoPlacement(t *testing.T) {
	s := newTestServer(t)

	first := decodeElement(t, mustCall(t, s.handleAddElement, map[string]any{"width": 480.0, "height": 360.0, "name": "Hero"}))
	second := decodeElement(t, mustCall(t, s.handleAddElement, map[string]any{"width": 480.0, "height": 360.0}))
	placed := decodeElement(t, mustCall(t, s.handleAddElement, map[string]any{"width": 40.0, "height": 40.0, "x": 5.0, "y": 900.0}))

	assert.Equal(t, "Hero", first.Name)
	assert.Equal(t, domain.Rect{X: 0, Y: 0, Width: 480, Height: 360}, first.Rect())
	assert.Equal(t, 496.0, second.X)
	assert.Equal(t, 0.0, second.Y)
	assert.Equal(t, 5.0, placed.X)
	assert.Equal(t, 900.0, placed.Y)

	child := decodeElement(t, mustCall(t, s.handleAddElement, map[string]any{"width": 100.0, "height": 50.0, "parentId": first.ID}))
	assert.Equal(t, first.ID, child.ParentID)
	assert.Equal(t, 0.0, child.X, "placement is relative to the parent's children")
}

func TestAddElement_Errors(t *testing.T) {
	s := newTestServer(t)

	_, err := call(t, s.handleAddElement, map[string]any{"width": 10.0})
	assert.Error(t, err)

	_, err = call(t, s.handleAddElement, map[string]any{"width": 10.0, "height": 10.0, "parentId": "missing"})
	assert.ErrorContains(t, err, "not found")
	assert.Empty(t, s.session.Elements())
}

func TestUpdateElement(t *testing.T) {
	s := newTestServer(t)
	el := decodeElement(t, mustCall(t, s.handleAddElement, map[string]any{"width": 100.0, "height": 100.0}))

	out := mustCall(t, s.handleUpdateElement, map[string]any{
		"id":    el.ID,
		"patch": `{"fill":"#0f172a","text":"Hello","constraints":{"horizontal":"stretch","vertical":"top"}}`,
	})
	got := decodeElement(t, out)
	assert.Equal(t, "#0f172a", got.Style.Fill)
	assert.Equal(t, "Hello", got.Style.Text)
	assert.Equal(t, domain.HStretch, got.Constraints.Horizontal)

	_, err := call(t, s.handleUpdateElement, map[string]any{"id": el.ID, "patch": `{"colour":"red"}`})
	assert.ErrorContains(t, err, "parse json")

	_, err = call(t, s.handleUpdateElement, map[string]any{"id": el.ID, "patch": `{"constraints":{"horizontal":"up","vertical":"top"}}`})
	assert.ErrorContains(t, err, "invalid constraints")

	mustCall(t, s.handleUpdateElement, map[string]any{"id": el.ID, "patch": `{"locked":true}`})
	_, err = call(t, s.handleUpdateElement, map[string]any{"id": el.ID, "patch": `{"x":50}`})
	assert.ErrorContains(t, err, "locked")
}

func TestMoveElement_Snap(t *testing.T) {
	s := newTestServer(t)
	mustCall(t, s.handleAddElement, map[string]any{"width": 100.0, "height": 100.0, "x": 0.0, "y": 0.0})
	b := decodeElement(t, mustCall(t, s.handleAddElement, map[string]any{"width": 100.0, "height": 100.0, "x": 300.0, "y": 300.0}))

	out := mustCall(t, s.handleMoveElement, map[string]any{"id": b.ID, "x": 103.0, "y": 300.0, "snap": true})
	var res struct {
		Element domain.Element `json:"element"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 100.0, res.Element.X, "left edge snaps to the sibling's right edge")

	undo, _ := s.session.HistoryLabels()
	assert.Equal(t, []string{"add", "add", "move"}, undo)
	assert.False(t, s.session.Dragging())
}

func TestDeleteAndUndo(t *testing.T) {
	s := newTestServer(t)
	a := decodeElement(t, mustCall(t, s.handleAddElement, map[string]any{"width": 100.0, "height": 100.0}))
	decodeElement(t, mustCall(t, s.handleAddElement, map[string]any{"width": 50.0, "height": 50.0, "parentId": a.ID}))

	out := mustCall(t, s.handleDeleteElements, map[string]any{"ids": []any{a.ID}})
	assert.Contains(t, out, a.ID)
	assert.Empty(t, s.session.Elements())

	mustCall(t, s.handleUndo, nil)
	assert.Len(t, s.session.Elements(), 2)

	assert.Equal(t, "Nothing deleted", mustCall(t, s.handleDeleteElements, map[string]any{"ids": "missing"}))
}

func TestArrangeElements_OneUndoStep(t *testing.T) {
	s := newTestServer(t)
	var ids []any
	for range 3 {
		el := decodeElement(t, mustCall(t, s.handleAddElement, map[string]any{"width": 600.0, "height": 200.0, "x": 0.0, "y": 0.0}))
		ids = append(ids, el.ID)
	}

	mustCall(t, s.handleArrangeElements, map[string]any{"ids": ids})
	third, _ := s.session.Element(ids[2].(string))
	assert.Equal(t, 0.0, third.X)
	assert.Equal(t, 216.0, third.Y)

	undo, _ := s.session.HistoryLabels()
	assert.Equal(t, "arrange", undo[len(undo)-1])
	mustCall(t, s.handleUndo, nil)
	third, _ = s.session.Element(ids[2].(string))
	assert.Equal(t, 0.0, third.Y)

	_, err := call(t, s.handleArrangeElements, map[string]any{"ids": []any{"nope"}})
	assert.Error(t, err)
}

func TestAnalyzeAndExport(t *testing.T) {
	s := newTestServer(t)
	mustCall(t, s.handleAddElement, map[string]any{"width": 1440.0, "height": 80.0, "x": 0.0, "y": 0.0, "name": "Header"})
	mustCall(t, s.handleAddElement, map[string]any{"width": 1440.0, "height": 600.0, "x": 0.0, "y": 80.0, "name": "Body"})

	yml := mustCall(t, s.handleAnalyzeLayout, map[string]any{"format": "yaml"})
	assert.Contains(t, yml, "role: header")

	_, err := call(t, s.handleAnalyzeLayout, map[string]any{"format": "toml"})
	assert.Error(t, err)

	css := mustCall(t, s.handlePreviewExport, map[string]any{"file": export.StyleFile})
	assert.Contains(t, css, "@media (max-width: 768px)")

	out := mustCall(t, s.handleExportPage, map[string]any{"path": "site.zip", "title": "Demo"})
	path := filepath.Join(s.cfg.Export.OutputDir, "site.zip")
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{export.IndexFile, export.StyleFile, export.ScriptFile, export.ReadmeFile}, names)
}

func TestProjectTools(t *testing.T) {
	s := newTestServer(t)
	mustCall(t, s.handleAddElement, map[string]any{"width": 100.0, "height": 100.0})

	_, err := call(t, s.handleSaveProject, nil)
	assert.ErrorIs(t, err, service.ErrNoProject)

	out := mustCall(t, s.handleSaveProject, map[string]any{"name": "Landing"})
	var p storage.Project
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, "Landing", p.Name)
	assert.Empty(t, p.ProjectJSON)

	mustCall(t, s.handleAddElement, map[string]any{"width": 50.0, "height": 50.0})
	mustCall(t, s.handleSaveProject, nil)

	var revs []storage.Revision
	require.NoError(t, json.Unmarshal([]byte(mustCall(t, s.handleListRevisions, nil)), &revs))
	require.Len(t, revs, 2)

	mustCall(t, s.handleRestoreRevision, map[string]any{"id": float64(revs[1].ID)})
	assert.Len(t, s.session.Elements(), 1)

	mustCall(t, s.handleLoadProjectJSON, map[string]any{"json": `{"version":1,"elements":[],"rootIds":[],"zoom":1}`})
	assert.Empty(t, s.session.Elements())

	assert.Contains(t, mustCall(t, s.handleOpenProject, map[string]any{"project": "Landing"}), "2 elements")
	assert.Len(t, s.session.Elements(), 2)

	var projects []storage.Project
	require.NoError(t, json.Unmarshal([]byte(mustCall(t, s.handleListProjects, nil)), &projects))
	assert.Len(t, projects, 1)

	_, err = call(t, s.handleOpenProject, map[string]any{"project": "missing"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSetViewport(t *testing.T) {
	s := newTestServer(t)
	out := mustCall(t, s.handleSetViewport, map[string]any{"zoom": 100.0, "panX": 20.0, "snap": false, "tool": "draw"})
	var vp domain.Viewport
	require.NoError(t, json.Unmarshal([]byte(out), &vp))
	assert.Equal(t, s.cfg.Editor.MaxZoom, vp.Zoom)
	assert.Equal(t, 20.0, vp.PanX)
	assert.Equal(t, 0.0, vp.PanY)
	assert.False(t, vp.SnapEnabled)
	assert.Equal(t, domain.ToolDraw, vp.Tool)
	assert.Equal(t, s.cfg.Editor.GridSize, vp.GridSize)

	_, err := call(t, s.handleSetViewport, map[string]any{"zoom": 0.0})
	assert.Error(t, err)
}

func TestElementResource(t *testing.T) {
	s := newTestServer(t)
	el := decodeElement(t, mustCall(t, s.handleAddElement, map[string]any{"width": 100.0, "height": 100.0}))

	var req mcp.ReadResourceRequest
	req.Params.URI = elementURIPrefix + el.ID
	contents, err := s.handleElementResource(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text := contents[0].(mcp.TextResourceContents)
	assert.Equal(t, "application/json", text.MIMEType)
	assert.Equal(t, el, decodeElement(t, text.Text))

	req.Params.URI = elementURIPrefix + "missing"
	_, err = s.handleElementResource(context.Background(), req)
	assert.Error(t, err)
}

func TestElementIDFromURI(t *testing.T) {
	assert.Equal(t, "e1", elementIDFromURI("pagecraft://element/e1"))
	assert.Empty(t, elementIDFromURI("pagecraft://element/"))
	assert.Empty(t, elementIDFromURI("pagecraft://element/e1/children"))
	assert.Empty(t, elementIDFromURI("pagecraft://project/e1"))
}

func TestLandingPagePrompt(t *testing.T) {
	s := newTestServer(t)
	var req mcp.GetPromptRequest
	req.Params.Arguments = map[string]string{"topic": "Coffee"}
	res, err := s.handleLandingPagePrompt(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	assert.Contains(t, res.Messages[0].Content.(mcp.TextContent).Text, `"Coffee"`)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "my-landing-page", slug("My Landing Page!"))
	assert.Equal(t, "page", slug("!!!"))
	assert.Equal(t, "v2-site", slug("  v2 -- site "))
}
