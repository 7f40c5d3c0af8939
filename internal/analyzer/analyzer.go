// Package analyzer infers page semantics from element geometry.
//
// A pass runs over the whole tree on demand: it infers spatial containment
// for loose root elements, classifies every visible element into a role,
// infers a layout strategy for containers and maps roles to HTML tags and
// CSS classes. Analyze is pure; Apply writes the outcome back through the
// store. Classification is heuristic and may be wrong for ambiguous layouts.
package analyzer

import (
	"cmp"
	"math"
	"slices"

	"pagecraft/internal/domain"
	"pagecraft/internal/store"
)

// Item is the analyzer's view of one element, in canvas space.
type Item struct {
	ID       string
	Name     string
	ParentID string
	ChildIDs []string
	Rect     domain.Rect
	// Hidden is true when the element or any ancestor is hidden.
	Hidden   bool
	Text     string
	FontSize float64
}

// Collect builds analyzer input from the store in document order.
func Collect(s *store.Store) []Item {
	hidden := map[string]bool{}
	var items []Item
	s.Walk(func(e domain.Element, _ int) bool {
		r, _ := s.AbsoluteRect(e.ID)
		h := e.Hidden || hidden[e.ParentID]
		hidden[e.ID] = h
		items = append(items, Item{
			ID:       e.ID,
			Name:     e.Name,
			ParentID: e.ParentID,
			ChildIDs: e.ChildIDs,
			Rect:     r,
			Hidden:   h,
			Text:     e.Style.Text,
			FontSize: e.Style.FontSize,
		})
		return true
	})
	return items
}

// Result is the outcome of one pass. Hidden elements get zero Semantics.
type Result struct {
	BBox            domain.Rect                 `json:"bbox"`
	Semantics       map[string]domain.Semantics `json:"semantics"`
	InferredParents map[string]string           `json:"inferredParents,omitempty"`
	Tree            []*Node                     `json:"tree"`
}

// pass holds the working state of one Analyze call.
type pass struct {
	cfg      Config
	items    map[string]*Item
	order    []string
	bbox     domain.Rect
	parent   map[string]string
	children map[string][]string
	roles    map[string]domain.Role
	layouts  map[string]domain.LayoutStrategy
}

// Analyze classifies items. Items must be in document order, as Collect returns them.
func Analyze(items []Item, cfg Config) *Result {
	p := &pass{
		cfg:      cfg.withDefaults(),
		items:    make(map[string]*Item, len(items)),
		parent:   map[string]string{},
		children: map[string][]string{},
		roles:    map[string]domain.Role{},
		layouts:  map[string]domain.LayoutStrategy{},
	}
	res := &Result{Semantics: map[string]domain.Semantics{}, InferredParents: map[string]string{}}

	first := true
	for i := range items {
		it := &items[i]
		if it.Hidden {
			continue
		}
		p.items[it.ID] = it
		p.order = append(p.order, it.ID)
		if first {
			p.bbox, first = it.Rect, false
		} else {
			p.bbox = p.bbox.Union(it.Rect)
		}
	}
	if len(p.order) == 0 {
		return res
	}
	res.BBox = p.bbox

	p.buildHierarchy(res.InferredParents)
	var tops []string
	for _, id := range p.order {
		if p.parent[id] == "" {
			tops = append(tops, id)
		}
	}
	p.classifyTop(tops)
	for _, id := range p.order {
		p.inferLayout(id)
	}
	res.Semantics = p.semantics(tops)
	res.Tree = p.tree(tops, res.Semantics)
	return res
}

// buildHierarchy resolves the effective parent of every visible element:
// the explicit parent when there is one, otherwise the smallest strictly
// larger element covering ContainmentOverlap of its area. Area grows along
// every inferred link, so the result is acyclic.
func (p *pass) buildHierarchy(inferred map[string]string) {
	for _, id := range p.order {
		it := p.items[id]
		if it.ParentID != "" {
			if _, ok := p.items[it.ParentID]; ok {
				p.parent[id] = it.ParentID
			}
			continue
		}
		area := it.Rect.Area()
		best, bestArea := "", math.Inf(1)
		for _, oid := range p.order {
			o := p.items[oid]
			oa := o.Rect.Area()
			if oid == id || oa <= area || oa >= bestArea {
				continue
			}
			if it.Rect.Intersect(o.Rect).Area() >= p.cfg.ContainmentOverlap*area {
				best, bestArea = oid, oa
			}
		}
		if best != "" {
			p.parent[id] = best
			inferred[id] = best
		}
	}

	for _, id := range p.order {
		it := p.items[id]
		for _, cid := range it.ChildIDs {
			if p.parent[cid] == id {
				p.children[id] = append(p.children[id], cid)
			}
		}
	}
	for _, id := range p.order {
		if pid, ok := inferred[id]; ok {
			p.children[pid] = append(p.children[pid], id)
		}
	}
}

// frac returns r's position and size as fractions of the bounding box.
type frac struct {
	left, right, top, bottom float64
	width, height            float64
}

func (p *pass) fractions(r domain.Rect) frac {
	bw := math.Max(p.bbox.Width, 1)
	bh := math.Max(p.bbox.Height, 1)
	return frac{
		left:   (r.X - p.bbox.X) / bw,
		right:  (p.bbox.Right() - r.Right()) / bw,
		top:    (r.Y - p.bbox.Y) / bh,
		bottom: (p.bbox.Bottom() - r.Bottom()) / bh,
		width:  r.Width / bw,
		height: r.Height / bh,
	}
}

func (p *pass) isFrame(id string) bool {
	it := p.items[id]
	return len(p.children[id]) > 0 &&
		it.Rect.Intersect(p.bbox).Area() >= p.cfg.PageFrameCoverage*p.bbox.Area()
}

// classifyTop assigns roles to top-level elements. Children of a page frame
// count as top-level too, and the frame itself stays a plain block.
func (p *pass) classifyTop(tops []string) {
	var level []string
	for _, id := range tops {
		if p.isFrame(id) {
			p.roles[id] = domain.RoleBlock
			level = append(level, p.children[id]...)
			continue
		}
		level = append(level, id)
	}

	var bands []string
	for _, id := range level {
		f := p.fractions(p.items[id].Rect)
		if f.width >= p.cfg.FullWidth && f.height <= p.cfg.LowHeight && f.top <= p.cfg.NearTop {
			bands = append(bands, id)
		}
	}
	// the topmost band is the header; later ones are navigation bars
	slices.SortStableFunc(bands, func(a, b string) int {
		return cmp.Compare(p.items[a].Rect.Y, p.items[b].Rect.Y)
	})
	for i, id := range bands {
		if i == 0 {
			p.roles[id] = domain.RoleHeader
		} else {
			p.roles[id] = domain.RoleNav
		}
	}

	for _, id := range level {
		if _, done := p.roles[id]; !done {
			p.roles[id] = p.topRole(p.items[id])
		}
		p.classifyNested(id)
	}
}

func (p *pass) topRole(it *Item) domain.Role {
	c := p.cfg
	f := p.fractions(it.Rect)
	fullWidth := f.width >= c.FullWidth
	switch {
	case fullWidth && f.height <= c.LowHeight && f.bottom <= c.NearBottom:
		return domain.RoleFooter
	case f.width <= c.NarrowWidth && aspect(it.Rect) >= c.SidebarMinAspect && (f.left <= c.SideEdge || f.right <= c.SideEdge):
		return domain.RoleSidebar
	case fullWidth && f.height >= c.HeroMinHeight && f.top <= c.HeroTop:
		return domain.RoleHero
	case !fullWidth && f.width <= c.CardMaxWidth && aspect(it.Rect) >= c.CardMinAspect && it.Text == "":
		return domain.RoleCard
	case fullWidth:
		return domain.RoleSection
	}
	if r := p.textRole(it); r != domain.RoleNone {
		return r
	}
	return domain.RoleBlock
}

// classifyNested assigns roles below id, recursively.
func (p *pass) classifyNested(id string) {
	parent := p.items[id]
	for _, cid := range p.children[id] {
		if _, done := p.roles[cid]; !done {
			p.roles[cid] = p.nestedRole(p.items[cid], parent)
		}
		p.classifyNested(cid)
	}
}

func (p *pass) nestedRole(it, parent *Item) domain.Role {
	if len(p.children[it.ID]) == 0 {
		if r := p.textRole(it); r != domain.RoleNone {
			return r
		}
	}
	rel := it.Rect.Width / math.Max(parent.Rect.Width, 1)
	if rel <= p.cfg.CardMaxWidth && aspect(it.Rect) >= p.cfg.CardMinAspect && it.Text == "" {
		return domain.RoleCard
	}
	return domain.RoleBlock
}

// textRole classifies leaves that carry text content.
func (p *pass) textRole(it *Item) domain.Role {
	if it.Text == "" {
		return domain.RoleNone
	}
	c := p.cfg
	switch {
	case it.FontSize >= c.HeadingFontSize:
		return domain.RoleHeading
	case it.Rect.Width <= c.ButtonMaxWidth && it.Rect.Height <= c.ButtonMaxHeight && len([]rune(it.Text)) <= c.ButtonMaxChars:
		return domain.RoleButton
	}
	return domain.RoleText
}

func aspect(r domain.Rect) float64 {
	return r.Height / math.Max(r.Width, 1)
}
