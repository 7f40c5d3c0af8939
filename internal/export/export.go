// Package export compiles the element tree into a static page.
//
// One traversal model feeds three text outputs (HTML, CSS, JS) plus a
// README, and the four files are packaged into an uncompressed ZIP archive
// whose bytes depend only on the tree, the options and the file order.
package export

import (
	"cmp"
	"fmt"
	"math"
	"regexp"
	"slices"
	"time"

	"go.uber.org/zap"

	"pagecraft/internal/domain"
	"pagecraft/internal/store"
)

// File names inside the archive, in archive order.
const (
	IndexFile  = "index.html"
	StyleFile  = "style.css"
	ScriptFile = "app.js"
	ReadmeFile = "README.md"
)

// DefaultTitle is used when Options.Title is empty.
const DefaultTitle = "Untitled page"

type Options struct {
	Title string
	// ModTime is stamped on every archive entry. The zero value maps to the
	// DOS epoch so archives stay reproducible.
	ModTime time.Time
	Logger  *zap.Logger
}

func (o Options) title() string {
	if o.Title == "" {
		return DefaultTitle
	}
	return o.Title
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger.Named("export")
}

// Bundle holds the generated text outputs.
type Bundle struct {
	HTML   string
	CSS    string
	JS     string
	README string
}

// Files returns the bundle as archive entries in their fixed order.
func (b *Bundle) Files() []File {
	return []File{
		{Name: IndexFile, Data: []byte(b.HTML)},
		{Name: StyleFile, Data: []byte(b.CSS)},
		{Name: ScriptFile, Data: []byte(b.JS)},
		{Name: ReadmeFile, Data: []byte(b.README)},
	}
}

// Generate renders all text outputs from one traversal of s.
func Generate(s *store.Store, opts Options) (*Bundle, error) {
	p := buildPage(s)
	html, err := p.html(opts.title())
	if err != nil {
		return nil, err
	}
	return &Bundle{
		HTML:   html,
		CSS:    p.css(),
		JS:     p.js(),
		README: p.readme(opts.title()),
	}, nil
}

func GenerateHTML(s *store.Store, opts Options) (string, error) {
	return buildPage(s).html(opts.title())
}

func GenerateCSS(s *store.Store) string { return buildPage(s).css() }

func GenerateJS(s *store.Store) string { return buildPage(s).js() }

// ExportArchive generates the bundle and packages it as a ZIP byte stream.
func ExportArchive(s *store.Store, opts Options) ([]byte, error) {
	b, err := Generate(s, opts)
	if err != nil {
		return nil, err
	}
	data, err := Zip(b.Files(), opts.ModTime)
	if err != nil {
		return nil, err
	}
	opts.logger().Info("archive built", zap.Int("elements", s.Len()), zap.Int("bytes", len(data)))
	return data, nil
}

// ── Page model ─────────────────────────────────────────────

type node struct {
	el       domain.Element
	parent   *node
	children []*node
	class    string
	tag      string
}

func (n *node) role() domain.Role { return n.el.Role }

// flow reports whether n is laid out by its parent's flex or grid rules.
func (n *node) flow() bool {
	return n.parent != nil && n.parent.el.LayoutStrategy.Flow()
}

type page struct {
	roots []*node
	all   []*node
	bbox  domain.Rect
	roles map[domain.Role]bool
}

func (p *page) has(roles ...domain.Role) bool {
	for _, r := range roles {
		if p.roles[r] {
			return true
		}
	}
	return false
}

var classUnsafe = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func buildPage(s *store.Store) *page {
	p := &page{roles: map[domain.Role]bool{}}
	used := map[string]int{}

	var build func(id string, parent *node) *node
	build = func(id string, parent *node) *node {
		el, _ := s.Element(id)
		n := &node{el: el, parent: parent, tag: tagFor(el)}
		n.class = uniqueClass(used, className(el))
		p.all = append(p.all, n)
		if !el.Hidden && el.Role != domain.RoleNone {
			p.roles[el.Role] = true
		}
		for _, cid := range el.ChildIDs {
			n.children = append(n.children, build(cid, n))
		}
		if el.LayoutStrategy.Flow() {
			n.children = flowOrder(n.children, el.LayoutStrategy)
		}
		return n
	}

	first := true
	for _, id := range s.RootIDs() {
		n := build(id, nil)
		p.roots = append(p.roots, n)
		if n.el.Hidden {
			continue
		}
		if first {
			p.bbox, first = n.el.Rect(), false
		} else {
			p.bbox = p.bbox.Union(n.el.Rect())
		}
	}
	return p
}

func className(el domain.Element) string {
	if c := classUnsafe.ReplaceAllString(el.CSSClass, "-"); c != "" && c != "-" {
		return c
	}
	return "el-" + classUnsafe.ReplaceAllString(el.ID, "-")
}

func uniqueClass(used map[string]int, base string) string {
	used[base]++
	if n := used[base]; n > 1 {
		return fmt.Sprintf("%s-%d", base, n)
	}
	return base
}

// flowOrder sorts children into reading order for flow layouts: along the
// main axis for flex, row-major for grids.
func flowOrder(kids []*node, layout domain.LayoutStrategy) []*node {
	out := slices.Clone(kids)
	switch layout {
	case domain.LayoutFlexRow:
		slices.SortStableFunc(out, func(a, b *node) int { return cmp.Compare(a.el.X, b.el.X) })
	case domain.LayoutFlexCol:
		slices.SortStableFunc(out, func(a, b *node) int { return cmp.Compare(a.el.Y, b.el.Y) })
	case domain.LayoutGrid:
		rows := gridRows(out)
		out = out[:0]
		for _, r := range rows {
			out = append(out, r...)
		}
	}
	return out
}

// gridRows groups children into rows: sorted by top edge, a child starts a
// new row when it sits more than half the mean height below the row's first.
func gridRows(kids []*node) [][]*node {
	if len(kids) == 0 {
		return nil
	}
	byY := slices.Clone(kids)
	slices.SortStableFunc(byY, func(a, b *node) int { return cmp.Compare(a.el.Y, b.el.Y) })
	var h float64
	for _, k := range byY {
		h += k.el.Height
	}
	tol := h / float64(len(byY)) / 2

	var rows [][]*node
	for _, k := range byY {
		if n := len(rows); n > 0 && math.Abs(k.el.Y-rows[n-1][0].el.Y) <= tol {
			rows[n-1] = append(rows[n-1], k)
			continue
		}
		rows = append(rows, []*node{k})
	}
	for _, r := range rows {
		slices.SortStableFunc(r, func(a, b *node) int { return cmp.Compare(a.el.X, b.el.X) })
	}
	return rows
}
