package export

import (
	"fmt"
	"slices"
	"strings"

	"pagecraft/internal/domain"
)

// NoScript is the whole of app.js when the page has nothing interactive.
const NoScript = "// No script needed: this page has no interactive elements.\n"

const menuScript = `  document.querySelectorAll('.menu-toggle').forEach(function (button) {
    button.addEventListener('click', function () {
      var open = button.getAttribute('aria-expanded') !== 'true';
      button.setAttribute('aria-expanded', String(open));
      document.querySelectorAll('.nav-links').forEach(function (links) {
        links.classList.toggle('open', open);
      });
    });
  });
`

const carouselScript = `  document.querySelectorAll('[data-carousel]').forEach(function (track) {
    function step(direction) {
      track.scrollBy({ left: direction * track.clientWidth * 0.8, behavior: 'smooth' });
    }
    var prev = track.querySelector('.carousel-prev');
    var next = track.querySelector('.carousel-next');
    if (prev) prev.addEventListener('click', function () { step(-1); });
    if (next) next.addEventListener('click', function () { step(1); });
  });
`

func (p *page) js() string {
	var parts []string
	if p.has(domain.RoleHeader, domain.RoleNav) {
		parts = append(parts, menuScript)
	}
	if p.has(domain.RoleCarousel) {
		parts = append(parts, carouselScript)
	}
	if len(parts) == 0 {
		return NoScript
	}
	var b strings.Builder
	b.WriteString("document.addEventListener('DOMContentLoaded', function () {\n")
	b.WriteString(strings.Join(parts, "\n"))
	b.WriteString("});\n")
	return b.String()
}

func (p *page) readme(title string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", plain(title))
	b.WriteString("Static page exported by pagecraft.\n\n")
	b.WriteString("## Files\n\n")
	fmt.Fprintf(&b, "- `%s`: page markup\n", IndexFile)
	fmt.Fprintf(&b, "- `%s`: layout, styling and responsive rules\n", StyleFile)
	fmt.Fprintf(&b, "- `%s`: interactive behaviour\n", ScriptFile)
	b.WriteString("\n## Usage\n\n")
	fmt.Fprintf(&b, "Open `%s` in a browser. No build step or server is required.\n", IndexFile)

	visible := 0
	for _, n := range p.all {
		if !n.el.Hidden {
			visible++
		}
	}
	b.WriteString("\n## Structure\n\n")
	fmt.Fprintf(&b, "- Elements: %d\n", visible)
	fmt.Fprintf(&b, "- Canvas: %s x %s\n", num(p.bbox.Width), num(p.bbox.Height))
	var roles []string
	for r := range p.roles {
		roles = append(roles, string(r))
	}
	slices.Sort(roles)
	if len(roles) > 0 {
		fmt.Fprintf(&b, "- Roles: %s\n", strings.Join(roles, ", "))
	}
	return b.String()
}
