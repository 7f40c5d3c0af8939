package export

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"pagecraft/internal/domain"
)

// MobileMaxWidth and TabletMaxWidth bound the responsive breakpoints.
const (
	MobileMaxWidth = 768
	TabletMaxWidth = 1023
)

const baseCSS = `*,
*::before,
*::after {
  box-sizing: border-box;
}

body {
  margin: 0;
  font-family: system-ui, -apple-system, "Segoe UI", Roboto, sans-serif;
  line-height: 1.5;
}

.nav-links {
  display: flex;
  gap: 16px;
  margin: 0;
  padding: 0;
  list-style: none;
}

.menu-toggle {
  display: none;
}
`

type rule struct {
	selector string
	decls    []string
}

func (r *rule) add(format string, args ...any) {
	r.decls = append(r.decls, fmt.Sprintf(format, args...))
}

func writeRules(b *strings.Builder, indent string, rules []rule) {
	for _, r := range rules {
		if len(r.decls) == 0 {
			continue
		}
		fmt.Fprintf(b, "\n%s%s {\n", indent, r.selector)
		for _, d := range r.decls {
			fmt.Fprintf(b, "%s  %s;\n", indent, d)
		}
		fmt.Fprintf(b, "%s}\n", indent)
	}
}

func (p *page) css() string {
	var b strings.Builder
	b.WriteString(baseCSS)

	pageRule := rule{selector: ".page"}
	pageRule.add("position: relative")
	pageRule.add("width: %s", px(p.bbox.Width))
	pageRule.add("min-height: %s", px(p.bbox.Height))
	pageRule.add("margin: 0 auto")
	rules := []rule{pageRule}
	for _, n := range p.all {
		rules = append(rules, p.elementRule(n))
		if n.role() == domain.RoleCarousel {
			rules = append(rules, rule{
				selector: "." + n.class + " > :not(button)",
				decls:    []string{"scroll-snap-align: start"},
			})
		}
	}
	writeRules(&b, "", rules)

	fmt.Fprintf(&b, "\n@media (max-width: %dpx) {", MobileMaxWidth)
	writeRules(&b, "  ", p.mobileRules())
	b.WriteString("}\n")

	fmt.Fprintf(&b, "\n@media (min-width: %dpx) and (max-width: %dpx) {", MobileMaxWidth+1, TabletMaxWidth)
	writeRules(&b, "  ", p.tabletRules())
	b.WriteString("}\n")
	return b.String()
}

func (p *page) elementRule(n *node) rule {
	el := n.el
	r := rule{selector: "." + n.class}

	if el.Hidden {
		r.add("display: none")
		return r
	}

	switch {
	case n.flow():
		r.add("position: relative")
		if n.parent.el.LayoutStrategy != domain.LayoutGrid {
			r.add("flex: 0 0 auto")
		}
		r.add("width: %s", px(el.Width))
		r.add("height: %s", px(el.Height))
	default:
		x, y := el.X, el.Y
		if n.parent == nil {
			x -= p.bbox.X
			y -= p.bbox.Y
		}
		r.add("position: absolute")
		r.add("left: %s", px(x))
		r.add("top: %s", px(y))
		r.add("width: %s", px(el.Width))
		r.add("height: %s", px(el.Height))
		r.add("z-index: %d", el.ZIndex)
	}

	layoutDecls(&r, n)

	st := el.Style
	if st.Fill != "" && st.FillOpacity > 0 {
		r.add("background-color: %s", color(st.Fill, st.FillOpacity))
	}
	if st.Stroke != "" && st.StrokeWidth > 0 {
		r.add("border: %s solid %s", px(st.StrokeWidth), st.Stroke)
	}
	if st.Radius > 0 {
		r.add("border-radius: %s", px(st.Radius))
	}
	if st.Opacity < 1 {
		r.add("opacity: %s", num(st.Opacity))
	}
	if sh := st.Shadow; sh != nil {
		r.add("box-shadow: %s %s %s %s %s", px(sh.OffsetX), px(sh.OffsetY), px(sh.Blur), px(sh.Spread), color(sh.Color, sh.Alpha))
	}
	if st.Text != "" {
		if st.TextColor != "" {
			r.add("color: %s", st.TextColor)
		}
		if st.FontSize > 0 {
			r.add("font-size: %s", px(st.FontSize))
		}
		if st.FontWeight > 0 {
			r.add("font-weight: %d", st.FontWeight)
		}
		switch st.TextAlign {
		case "left", "center", "right", "justify":
			r.add("text-align: %s", st.TextAlign)
		}
	}
	if n.role() == domain.RoleCarousel {
		r.add("overflow-x: auto")
		r.add("scroll-snap-type: x mandatory")
	}
	return r
}

// layoutDecls emits flex or grid rules for a flow container. Padding
// reproduces the offset of the first child; the gap is the mean spacing
// between consecutive children.
func layoutDecls(r *rule, n *node) {
	kids := visibleChildren(n)
	if len(kids) == 0 {
		return
	}
	switch n.el.LayoutStrategy {
	case domain.LayoutFlexRow:
		r.add("display: flex")
		r.add("flex-direction: row")
		r.add("align-items: center")
		r.add("padding-left: %s", px(math.Max(0, kids[0].el.X)))
		r.add("gap: %s", px(meanGap(kids, true)))
	case domain.LayoutFlexCol:
		r.add("display: flex")
		r.add("flex-direction: column")
		r.add("align-items: center")
		r.add("padding-top: %s", px(math.Max(0, kids[0].el.Y)))
		r.add("gap: %s", px(meanGap(kids, false)))
	case domain.LayoutGrid:
		rows := gridRows(kids)
		colGap := meanGap(rows[0], true)
		rowGap := 0.0
		if len(rows) > 1 {
			var firsts []*node
			for _, row := range rows {
				firsts = append(firsts, row[0])
			}
			rowGap = meanGap(firsts, false)
		}
		left, top := math.Inf(1), math.Inf(1)
		for _, k := range kids {
			left, top = math.Min(left, k.el.X), math.Min(top, k.el.Y)
		}
		r.add("display: grid")
		r.add("grid-template-columns: repeat(%d, 1fr)", GridColumns(n.el.Width-math.Max(0, left), avgWidth(kids), colGap, len(kids)))
		r.add("gap: %s %s", px(rowGap), px(colGap))
		r.add("padding: %s 0 0 %s", px(math.Max(0, top)), px(math.Max(0, left)))
	}
}

// GridColumns derives a column count from the available width and the mean
// child width, bounded to [1, count].
func GridColumns(available, avgChild, gap float64, count int) int {
	if avgChild <= 0 || count < 1 {
		return 1
	}
	cols := int(math.Floor((available + gap) / (avgChild + gap)))
	return max(1, min(cols, count))
}

func visibleChildren(n *node) []*node {
	var out []*node
	for _, c := range n.children {
		if !c.el.Hidden {
			out = append(out, c)
		}
	}
	return out
}

func avgWidth(kids []*node) float64 {
	var w float64
	for _, k := range kids {
		w += k.el.Width
	}
	return w / float64(len(kids))
}

// meanGap averages the non-negative gaps between consecutive nodes, which
// must already be in main-axis order.
func meanGap(kids []*node, horizontal bool) float64 {
	if len(kids) < 2 {
		return 0
	}
	var sum float64
	for i := 1; i < len(kids); i++ {
		a, b := kids[i-1].el, kids[i].el
		g := b.Y - (a.Y + a.Height)
		if horizontal {
			g = b.X - (a.X + a.Width)
		}
		sum += math.Max(0, g)
	}
	return math.Round(sum / float64(len(kids)-1))
}

// ── Responsive overrides ───────────────────────────────────

func (p *page) mobileRules() []rule {
	pageRule := rule{selector: ".page"}
	pageRule.add("width: 100%%")
	pageRule.add("min-height: 0")
	rules := []rule{pageRule}

	for _, n := range p.all {
		if n.el.Hidden {
			continue
		}
		r := rule{selector: "." + n.class}
		switch n.role() {
		case domain.RoleSidebar:
			r.add("position: static")
			r.add("width: 100%%")
			r.add("height: auto")
		case domain.RoleHeader, domain.RoleNav, domain.RoleFooter, domain.RoleHero, domain.RoleSection:
			if n.parent == nil {
				r.add("position: relative")
				r.add("left: 0")
				r.add("top: 0")
			}
			r.add("width: 100%%")
		case domain.RoleCard:
			r.add("width: 100%%")
			r.add("height: auto")
		}
		switch n.el.LayoutStrategy {
		case domain.LayoutGrid:
			r.add("grid-template-columns: 1fr")
		case domain.LayoutFlexRow:
			if n.role() != domain.RoleCarousel {
				r.add("flex-direction: column")
				r.add("align-items: stretch")
			}
		}
		rules = append(rules, r)
	}

	if p.has(domain.RoleHeader, domain.RoleNav) {
		rules = append(rules,
			rule{selector: ".menu-toggle", decls: []string{"display: inline-block"}},
			rule{selector: ".nav-links", decls: []string{"display: none"}},
			rule{selector: ".nav-links.open", decls: []string{"display: flex", "flex-direction: column"}},
		)
	}
	return rules
}

func (p *page) tabletRules() []rule {
	pageRule := rule{selector: ".page"}
	pageRule.add("width: 100%%")
	rules := []rule{pageRule}

	for _, n := range p.all {
		if n.el.Hidden {
			continue
		}
		r := rule{selector: "." + n.class}
		switch n.role() {
		case domain.RoleSidebar:
			r.add("width: %s", px(math.Min(n.el.Width, 240)))
		case domain.RoleHeader, domain.RoleNav, domain.RoleFooter, domain.RoleHero, domain.RoleSection:
			r.add("width: 100%%")
		}
		if n.el.LayoutStrategy == domain.LayoutGrid {
			cols := min(2, len(visibleChildren(n)))
			r.add("grid-template-columns: repeat(%d, 1fr)", max(cols, 1))
		}
		rules = append(rules, r)
	}
	return rules
}

// ── Value formatting ───────────────────────────────────────

func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

func px(v float64) string {
	if v == 0 {
		return "0"
	}
	return num(v) + "px"
}

// color renders a hex color with alpha as rgba(); other color syntaxes are
// passed through unchanged.
func color(c string, alpha float64) string {
	r, g, b, ok := parseHex(c)
	if !ok {
		return c
	}
	if alpha >= 1 {
		return fmt.Sprintf("rgb(%d, %d, %d)", r, g, b)
	}
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", r, g, b, num(math.Max(alpha, 0)))
}

func parseHex(c string) (r, g, b int, ok bool) {
	h := strings.TrimPrefix(strings.TrimSpace(c), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 || !strings.HasPrefix(strings.TrimSpace(c), "#") {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), true
}
