package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"pagecraft/internal/domain"
)

// allowedTags are the element tags the exporter will emit; anything else
// in htmlTag falls back to div.
var allowedTags = map[string]bool{
	"div": true, "header": true, "nav": true, "footer": true, "aside": true,
	"main": true, "section": true, "article": true, "figure": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "p": true, "span": true,
	"a": true, "button": true, "ul": true, "li": true,
}

func tagFor(el domain.Element) string {
	t := strings.ToLower(strings.TrimSpace(el.HTMLTag))
	if allowedTags[t] {
		return t
	}
	return "div"
}

var ariaRoles = map[domain.Role]string{
	domain.RoleHeader:   "banner",
	domain.RoleNav:      "navigation",
	domain.RoleFooter:   "contentinfo",
	domain.RoleSidebar:  "complementary",
	domain.RoleCarousel: "region",
}

var strict = bluemonday.StrictPolicy()

// plain strips any markup from authored text. The renderer escapes the
// result again, so entities produced by the sanitizer are decoded first.
func plain(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// ── Node helpers ───────────────────────────────────────────

func elem(tag string, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func elemText(tag, content string, attrs ...string) *html.Node {
	n := elem(tag, attrs...)
	n.AppendChild(text(content))
	return n
}

// indent inserts whitespace text nodes so the rendered document is
// readable. Elements whose children are all text stay on one line.
func indent(n *html.Node, depth int) {
	var kids []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		kids = append(kids, c)
	}
	hasElement := false
	for _, c := range kids {
		if c.Type == html.ElementNode {
			hasElement = true
		}
	}
	if !hasElement {
		return
	}
	pad := "\n" + strings.Repeat("  ", depth+1)
	for _, c := range kids {
		n.InsertBefore(text(pad), c)
		if c.Type == html.ElementNode {
			indent(c, depth+1)
		}
	}
	n.AppendChild(text("\n" + strings.Repeat("  ", depth)))
}

// ── Document ───────────────────────────────────────────────

func (p *page) html(title string) (string, error) {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := elem("html", "lang", "en")
	head := elem("head")
	head.AppendChild(elem("meta", "charset", "utf-8"))
	head.AppendChild(elem("meta", "name", "viewport", "content", "width=device-width, initial-scale=1"))
	head.AppendChild(elemText("title", plain(title)))
	head.AppendChild(elem("link", "rel", "stylesheet", "href", StyleFile))
	root.AppendChild(head)

	body := elem("body")
	main := elem("main", "class", "page")
	for _, n := range p.roots {
		main.AppendChild(p.element(n, title))
	}
	body.AppendChild(main)
	body.AppendChild(elem("script", "src", ScriptFile))
	root.AppendChild(body)
	doc.AppendChild(root)

	indent(root, 0)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	buf.WriteByte('\n')
	return buf.String(), nil
}

func (p *page) element(n *node, title string) *html.Node {
	e := elem(n.tag, "class", n.class)
	if r, ok := ariaRoles[n.role()]; ok && !implicitRole(n.tag, n.role()) {
		e.Attr = append(e.Attr, html.Attribute{Key: "role", Val: r})
	}
	if n.role() == domain.RoleCarousel {
		e.Attr = append(e.Attr,
			html.Attribute{Key: "aria-roledescription", Val: "carousel"},
			html.Attribute{Key: "data-carousel", Val: ""})
	}
	if n.el.Name != "" {
		e.Attr = append(e.Attr, html.Attribute{Key: "aria-label", Val: plain(n.el.Name)})
	}
	if n.el.Hidden {
		e.Attr = append(e.Attr, html.Attribute{Key: "aria-hidden", Val: "true"})
	}
	if n.tag == "a" {
		e.Attr = append(e.Attr, html.Attribute{Key: "href", Val: "#"})
	}

	if len(n.children) == 0 {
		placeholder(e, n, title)
	} else {
		if t := plain(n.el.Style.Text); t != "" {
			e.AppendChild(elemText("span", t, "class", "label"))
		}
		for _, c := range n.children {
			e.AppendChild(p.element(c, title))
		}
	}

	switch n.role() {
	case domain.RoleHeader:
		e.AppendChild(elemText("button", "Menu", "class", "menu-toggle", "type", "button", "aria-expanded", "false"))
	case domain.RoleCarousel:
		e.AppendChild(elemText("button", "Previous", "class", "carousel-prev", "type", "button"))
		e.AppendChild(elemText("button", "Next", "class", "carousel-next", "type", "button"))
	}
	return e
}

// implicitRole reports whether the tag already carries the landmark role,
// in which case repeating it would be redundant.
func implicitRole(tag string, role domain.Role) bool {
	switch role {
	case domain.RoleNav:
		return tag == "nav"
	case domain.RoleSidebar:
		return tag == "aside"
	}
	return false
}

// placeholder fills a leaf with content suited to its role. Authored text
// replaces the default copy where the role has a primary text slot.
func placeholder(e *html.Node, n *node, title string) {
	t := plain(n.el.Style.Text)
	or := func(def string) string {
		if t != "" {
			return t
		}
		return def
	}
	switch n.role() {
	case domain.RoleHeader:
		e.AppendChild(elemText("a", or(plain(title)), "class", "logo", "href", "#"))
		e.AppendChild(navLinks())
	case domain.RoleNav:
		e.AppendChild(navLinks())
	case domain.RoleHero:
		e.AppendChild(elemText("h1", or(plain(title))))
		e.AppendChild(elemText("p", "Tell visitors what this page is about."))
		e.AppendChild(elemText("a", "Get started", "class", "cta", "href", "#"))
	case domain.RoleSection:
		e.AppendChild(elemText("h2", or("Section title")))
		e.AppendChild(elemText("p", "Section content goes here."))
	case domain.RoleCard:
		e.AppendChild(elemText("h3", or("Card title")))
		e.AppendChild(elemText("p", "A short description."))
	case domain.RoleSidebar:
		e.AppendChild(elemText("h3", or("Related")))
		e.AppendChild(navLinks())
	case domain.RoleFooter:
		e.AppendChild(elemText("p", or("© "+plain(title))))
	case domain.RoleHeading:
		e.AppendChild(text(or("Heading")))
	case domain.RoleText:
		e.AppendChild(text(or("Text")))
	case domain.RoleButton:
		e.AppendChild(text(or("Learn more")))
	default:
		if t != "" {
			e.AppendChild(text(t))
		}
	}
}

func navLinks() *html.Node {
	ul := elem("ul", "class", "nav-links")
	for _, label := range []string{"Home", "About", "Contact"} {
		li := elem("li")
		li.AppendChild(elemText("a", label, "href", "#"))
		ul.AppendChild(li)
	}
	return ul
}
