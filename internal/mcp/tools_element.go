package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"pagecraft/internal/domain"
	"pagecraft/internal/service"
	"pagecraft/internal/store"
)

func boolPtr(b bool) *bool { return &b }

func (s *Server) registerElementTools() {
	// ── add_element ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_element",
		mcp.WithDescription("Add a box to the page. Without x/y it is placed in the next free grid slot inside its parent."),
		mcp.WithNumber("width", mcp.Description("Width in canvas units"), mcp.Required()),
		mcp.WithNumber("height", mcp.Description("Height in canvas units"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("Left edge, relative to the parent")),
		mcp.WithNumber("y", mcp.Description("Top edge, relative to the parent")),
		mcp.WithString("parentId", mcp.Description("Container to add into; omit for the page root")),
		mcp.WithString("name", mcp.Description("Layer name, also used for the exported class")),
		mcp.WithString("text", mcp.Description("Text content")),
		mcp.WithString("fill", mcp.Description("Background color, e.g. #1e293b")),
	), s.handleAddElement)

	// ── draw_box ───────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("draw_box",
		mcp.WithDescription("Commit a rectangle as the draw tool would: canvas coordinates, negative sizes flip, tiny boxes are discarded"),
		mcp.WithNumber("x", mcp.Description("Anchor x in canvas space"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("Anchor y in canvas space"), mcp.Required()),
		mcp.WithNumber("width", mcp.Description("Signed width"), mcp.Required()),
		mcp.WithNumber("height", mcp.Description("Signed height"), mcp.Required()),
		mcp.WithString("parentId", mcp.Description("Container to draw into")),
	), s.handleDrawBox)

	// ── update_element ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_element",
		mcp.WithDescription(`Apply a partial update. The patch is a JSON object with any of: x, y, width, height, name, fill, fillOpacity, stroke, strokeWidth, radius, opacity, shadow, clearShadow, text, fontSize, fontWeight, textColor, textAlign, constraints {"horizontal","vertical"}, locked, hidden`),
		mcp.WithString("id", mcp.Description("Element ID"), mcp.Required()),
		mcp.WithString("patch", mcp.Description("JSON patch object"), mcp.Required()),
	), s.handleUpdateElement)

	// ── move_element ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_element",
		mcp.WithDescription("Move an element to a parent-relative position"),
		mcp.WithString("id", mcp.Description("Element ID"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("New x"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("New y"), mcp.Required()),
		mcp.WithBoolean("snap", mcp.Description("Snap to sibling edges and the grid, as a drag would")),
	), s.handleMoveElement)

	// ── resize_element ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("resize_element",
		mcp.WithDescription("Resize an element; children follow their constraints"),
		mcp.WithString("id", mcp.Description("Element ID"), mcp.Required()),
		mcp.WithNumber("width", mcp.Description("New width"), mcp.Required()),
		mcp.WithNumber("height", mcp.Description("New height"), mcp.Required()),
	), s.handleResizeElement)

	// ── delete_elements ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_elements",
		mcp.WithDescription("Delete elements and their subtrees. Without ids, deletes the selection."),
		mcp.WithArray("ids", mcp.Description("Element IDs"), mcp.Items(map[string]any{"type": "string"})),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteElements)

	// ── duplicate_element ──────────────────────────────
	s.mcp.AddTool(mcp.NewTool("duplicate_element",
		mcp.WithDescription("Clone an element with its subtree and select the clone"),
		mcp.WithString("id", mcp.Description("Element ID"), mcp.Required()),
		mcp.WithNumber("dx", mcp.Description("Horizontal offset, default 16")),
		mcp.WithNumber("dy", mcp.Description("Vertical offset, default 16")),
	), s.handleDuplicateElement)

	// ── reparent_element ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("reparent_element",
		mcp.WithDescription("Move an element into another container, keeping its position on the canvas"),
		mcp.WithString("id", mcp.Description("Element ID"), mcp.Required()),
		mcp.WithString("parentId", mcp.Description("New container; empty moves it to the page root")),
	), s.handleReparentElement)

	// ── reorder_element ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("reorder_element",
		mcp.WithDescription("Change an element's stacking order among its siblings"),
		mcp.WithString("id", mcp.Description("Element ID"), mcp.Required()),
		mcp.WithString("order",
			mcp.Description("Where to move it"),
			mcp.Enum(string(service.ToFront), string(service.ToBack), string(service.Forward), string(service.Backward)),
			mcp.Required(),
		),
	), s.handleReorderElement)

	// ── arrange_elements ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("arrange_elements",
		mcp.WithDescription("Lay sibling elements out in rows starting at (x, y), as one undo step"),
		mcp.WithArray("ids", mcp.Description("Element IDs, in order"), mcp.Items(map[string]any{"type": "string"}), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("Start x, default 0")),
		mcp.WithNumber("y", mcp.Description("Start y, default 0")),
	), s.handleArrangeElements)

	// ── list_elements ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_elements",
		mcp.WithDescription("List the element tree with ids, names, positions and derived roles"),
	), s.handleListElements)

	// ── get_element ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_element",
		mcp.WithDescription("Get every field of one element, plus its absolute rectangle"),
		mcp.WithString("id", mcp.Description("Element ID"), mcp.Required()),
	), s.handleGetElement)
}

// ── Summaries ──────────────────────────────────────────────

type elementSummary struct {
	ID       string            `json:"id"`
	Name     string            `json:"name,omitempty"`
	X        float64           `json:"x"`
	Y        float64           `json:"y"`
	Width    float64           `json:"width"`
	Height   float64           `json:"height"`
	Role     domain.Role       `json:"role,omitempty"`
	Tag      string            `json:"tag,omitempty"`
	Text     string            `json:"text,omitempty"`
	Locked   bool              `json:"locked,omitempty"`
	Hidden   bool              `json:"hidden,omitempty"`
	Children []*elementSummary `json:"children,omitempty"`
}

func summarize(st *store.Store) []*elementSummary {
	var build func(id string) *elementSummary
	build = func(id string) *elementSummary {
		e, _ := st.Element(id)
		sum := &elementSummary{
			ID: e.ID, Name: e.Name,
			X: e.X, Y: e.Y, Width: e.Width, Height: e.Height,
			Role: e.Role, Tag: e.HTMLTag, Text: e.Style.Text,
			Locked: e.Locked, Hidden: e.Hidden,
		}
		for _, cid := range e.ChildIDs {
			sum.Children = append(sum.Children, build(cid))
		}
		return sum
	}
	out := []*elementSummary{}
	for _, id := range st.RootIDs() {
		out = append(out, build(id))
	}
	return out
}

// siblingRects returns the parent-relative rectangles of parentID's children.
func siblingRects(st *store.Store, parentID string) []domain.Rect {
	ids := st.RootIDs()
	if parentID != "" {
		ids = st.Children(parentID)
	}
	rects := make([]domain.Rect, 0, len(ids))
	for _, id := range ids {
		if e, ok := st.Element(id); ok {
			rects = append(rects, e.Rect())
		}
	}
	return rects
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleAddElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	w, okW := optFloat(args, "width")
	h, okH := optFloat(args, "height")
	if !okW || !okH || w <= 0 || h <= 0 {
		return nil, fmt.Errorf("width and height must be positive numbers")
	}
	parentID := req.GetString("parentId", "")

	x, okX := optFloat(args, "x")
	y, okY := optFloat(args, "y")
	if !okX || !okY {
		var occupied []domain.Rect
		s.session.View(func(st *store.Store) { occupied = siblingRects(st, parentID) })
		x, y = s.layout.NextPosition(occupied, w, h)
	}

	def := domain.Element{
		Name:        req.GetString("name", ""),
		X:           x,
		Y:           y,
		Width:       w,
		Height:      h,
		Style:       domain.DefaultStyle(),
		Constraints: domain.DefaultConstraints(),
	}
	def.Style.Text = req.GetString("text", "")
	if fill := req.GetString("fill", ""); fill != "" {
		def.Style.Fill = fill
	}

	id := s.session.Add(def, parentID)
	if id == "" {
		return nil, fmt.Errorf("parent %q not found", parentID)
	}
	el, _ := s.session.Element(id)
	return jsonResult(el)
}

func (s *Server) handleDrawBox(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r := domain.Rect{
		X:      req.GetFloat("x", 0),
		Y:      req.GetFloat("y", 0),
		Width:  req.GetFloat("width", 0),
		Height: req.GetFloat("height", 0),
	}
	id := s.session.Draw(r, req.GetString("parentId", ""))
	if id == "" {
		return textResult("Nothing drawn: the box is below the minimum size or the parent does not exist"), nil
	}
	el, _ := s.session.Element(id)
	return jsonResult(el)
}

func (s *Server) handleUpdateElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	raw := req.GetString("patch", "")
	if id == "" || raw == "" {
		return nil, fmt.Errorf("id and patch are required")
	}
	var p domain.Patch
	if err := parseJSON(raw, &p); err != nil {
		return nil, err
	}
	if p.Constraints != nil && !p.Constraints.Valid() {
		return nil, fmt.Errorf("invalid constraints %+v", *p.Constraints)
	}
	if !s.session.Update(id, p) {
		return nil, s.refusal(id)
	}
	el, _ := s.session.Element(id)
	return jsonResult(el)
}

func (s *Server) handleMoveElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	x, y := req.GetFloat("x", 0), req.GetFloat("y", 0)
	if !req.GetBool("snap", false) {
		if !s.session.Update(id, domain.MoveTo(x, y)) {
			return nil, s.refusal(id)
		}
		el, _ := s.session.Element(id)
		return jsonResult(el)
	}

	// A snapped move is a drag from the current position to the target,
	// which takes canvas coordinates.
	el, ok := s.session.Element(id)
	if !ok {
		return nil, s.refusal(id)
	}
	abs, _ := s.session.AbsoluteRect(id)
	if !s.session.BeginDrag(id) {
		return nil, s.refusal(id)
	}
	res, _ := s.session.DragTo(abs.X+(x-el.X), abs.Y+(y-el.Y))
	s.session.EndDrag()

	el, _ = s.session.Element(id)
	return jsonResult(map[string]any{"element": el, "guides": res.Guides})
}

func (s *Server) handleResizeElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if !s.session.Resize(id, req.GetFloat("width", 0), req.GetFloat("height", 0)) {
		return nil, s.refusal(id)
	}
	el, _ := s.session.Element(id)
	return jsonResult(el)
}

func (s *Server) handleDeleteElements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := stringList(req.GetArguments(), "ids")
	var ok bool
	if len(ids) == 0 {
		ids = s.session.Selection()
		ok = s.session.DeleteSelection()
	} else {
		ok = s.session.Remove(ids...)
	}
	if !ok {
		return textResult("Nothing deleted"), nil
	}
	return textResult(fmt.Sprintf("Deleted %s", strings.Join(ids, ", "))), nil
}

func (s *Server) handleDuplicateElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	clone := s.session.Duplicate(id, req.GetFloat("dx", 16), req.GetFloat("dy", 16))
	if clone == "" {
		return nil, s.refusal(id)
	}
	el, _ := s.session.Element(clone)
	return jsonResult(el)
}

func (s *Server) handleReparentElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	parentID := req.GetString("parentId", "")
	if !s.session.Reparent(id, parentID) {
		return nil, fmt.Errorf("cannot move %q into %q: missing, locked, or a descendant", id, parentID)
	}
	el, _ := s.session.Element(id)
	return jsonResult(el)
}

func (s *Server) handleReorderElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	order := service.ZOrder(req.GetString("order", ""))
	if !s.session.Reorder(id, order) {
		return textResult(fmt.Sprintf("Order of %s unchanged", id)), nil
	}
	el, _ := s.session.Element(id)
	return textResult(fmt.Sprintf("Moved %s %s (zIndex %d)", id, order, el.ZIndex)), nil
}

func (s *Server) handleArrangeElements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := stringList(req.GetArguments(), "ids")
	if len(ids) == 0 {
		return nil, fmt.Errorf("ids is required")
	}
	els := make([]domain.Element, 0, len(ids))
	for _, id := range ids {
		el, ok := s.session.Element(id)
		if !ok {
			return nil, fmt.Errorf("element %q not found", id)
		}
		if len(els) > 0 && el.ParentID != els[0].ParentID {
			return nil, fmt.Errorf("elements must share a parent")
		}
		els = append(els, el)
	}

	arranged := s.layout.ArrangeGroup(els, req.GetFloat("x", 0), req.GetFloat("y", 0))
	moves := make([]service.Move, len(arranged))
	for i, el := range arranged {
		moves[i] = service.Move{ID: el.ID, X: el.X, Y: el.Y}
	}
	s.session.MoveAll("arrange", moves)
	return jsonResult(moves)
}

func (s *Server) handleListElements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var tree []*elementSummary
	s.session.View(func(st *store.Store) { tree = summarize(st) })
	return jsonResult(tree)
}

func (s *Server) handleGetElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	el, ok := s.session.Element(id)
	if !ok {
		return nil, fmt.Errorf("element %q not found", id)
	}
	abs, _ := s.session.AbsoluteRect(id)
	return jsonResult(map[string]any{"element": el, "absolute": abs})
}

// refusal explains why a gesture on id did nothing.
func (s *Server) refusal(id string) error {
	el, ok := s.session.Element(id)
	switch {
	case !ok:
		return fmt.Errorf("element %q not found", id)
	case el.Locked:
		return fmt.Errorf("element %q is locked", id)
	case s.session.Dragging():
		return fmt.Errorf("a drag is in progress")
	}
	return fmt.Errorf("element %q was not changed", id)
}
