package analyzer

import (
	"fmt"
	"math"

	"pagecraft/internal/domain"
)

// InferLayout picks a flow model for a set of sibling rectangles. Fewer than
// two rectangles have no layout to infer.
func InferLayout(rects []domain.Rect, cfg Config) domain.LayoutStrategy {
	if len(rects) < 2 {
		return domain.LayoutNone
	}
	cfg = cfg.withDefaults()
	cx := make([]float64, len(rects))
	cy := make([]float64, len(rects))
	ws := make([]float64, len(rects))
	hs := make([]float64, len(rects))
	for i, r := range rects {
		cx[i], cy[i] = r.CenterX(), r.CenterY()
		ws[i], hs[i] = r.Width, r.Height
	}

	switch {
	case spread(cy) <= math.Max(1, cfg.CenterTolerance*mean(hs)):
		return domain.LayoutFlexRow
	case spread(cx) <= math.Max(1, cfg.CenterTolerance*mean(ws)):
		return domain.LayoutFlexCol
	case len(rects) >= 3 && cv(ws) <= cfg.GridMaxCV && cv(hs) <= cfg.GridMaxCV:
		return domain.LayoutGrid
	}
	return domain.LayoutAbsolute
}

// inferLayout looks at authored children only: export lays out the
// authored tree, so inferred members must not pick its flow rules.
func (p *pass) inferLayout(id string) {
	var kids []string
	for _, cid := range p.children[id] {
		if p.items[cid].ParentID == id {
			kids = append(kids, cid)
		}
	}
	if len(kids) < 2 {
		return
	}
	rects := make([]domain.Rect, len(kids))
	for i, cid := range kids {
		rects[i] = p.items[cid].Rect
	}
	layout := InferLayout(rects, p.cfg)
	p.layouts[id] = layout

	if layout != domain.LayoutFlexRow || !overflows(p.items[id].Rect, rects) {
		return
	}
	switch p.roles[id] {
	case domain.RoleHeader, domain.RoleNav, domain.RoleFooter:
	default:
		p.roles[id] = domain.RoleCarousel
	}
}

// overflows reports whether any child sticks out of the container horizontally.
func overflows(container domain.Rect, kids []domain.Rect) bool {
	const slack = 0.5
	for _, r := range kids {
		if r.X < container.X-slack || r.Right() > container.Right()+slack {
			return true
		}
	}
	return false
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var s float64
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}

func spread(v []float64) float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, x := range v {
		lo, hi = math.Min(lo, x), math.Max(hi, x)
	}
	return hi - lo
}

// cv is the coefficient of variation (population stddev over mean).
func cv(v []float64) float64 {
	m := mean(v)
	if m == 0 {
		return 0
	}
	var ss float64
	for _, x := range v {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss/float64(len(v))) / m
}

// ── Role lookup ────────────────────────────────────────────

var roleTags = map[domain.Role]string{
	domain.RoleHeader:   "header",
	domain.RoleNav:      "nav",
	domain.RoleFooter:   "footer",
	domain.RoleSidebar:  "aside",
	domain.RoleHero:     "section",
	domain.RoleSection:  "section",
	domain.RoleCard:     "article",
	domain.RoleCarousel: "div",
	domain.RoleHeading:  "h2",
	domain.RoleText:     "p",
	domain.RoleButton:   "a",
	domain.RoleBlock:    "div",
}

// TagFor returns the default HTML tag for a role, "div" when unknown.
func TagFor(r domain.Role) string {
	if t, ok := roleTags[r]; ok {
		return t
	}
	return "div"
}

func (p *pass) semantics(tops []string) map[string]domain.Semantics {
	out := make(map[string]domain.Semantics, len(p.order))
	used := map[string]int{}
	var visit func(id string)
	visit = func(id string) {
		role := p.roles[id]
		if role == domain.RoleNone {
			role = domain.RoleBlock
		}
		base := string(role)
		used[base]++
		class := base
		if n := used[base]; n > 1 {
			class = fmt.Sprintf("%s-%d", base, n)
		}
		out[id] = domain.Semantics{
			Role:           role,
			HTMLTag:        TagFor(role),
			CSSClass:       class,
			LayoutStrategy: p.layouts[id],
		}
		for _, cid := range p.children[id] {
			visit(cid)
		}
	}
	for _, id := range tops {
		visit(id)
	}
	return out
}
