package domain

// HConstraint governs how an element reacts horizontally when its parent is resized.
type HConstraint string

const (
	HLeft    HConstraint = "left"
	HRight   HConstraint = "right"
	HCenter  HConstraint = "center"
	HScale   HConstraint = "scale"
	HStretch HConstraint = "stretch"
)

// VConstraint governs how an element reacts vertically when its parent is resized.
type VConstraint string

const (
	VTop     VConstraint = "top"
	VBottom  VConstraint = "bottom"
	VCenter  VConstraint = "center"
	VScale   VConstraint = "scale"
	VStretch VConstraint = "stretch"
)

// Constraints pairs the two independent axis rules.
type Constraints struct {
	Horizontal HConstraint `json:"horizontal"`
	Vertical   VConstraint `json:"vertical"`
}

// DefaultConstraints pins an element to its parent's top-left corner.
func DefaultConstraints() Constraints {
	return Constraints{Horizontal: HLeft, Vertical: VTop}
}

// Valid reports whether both axis kinds are known values.
func (c Constraints) Valid() bool {
	switch c.Horizontal {
	case HLeft, HRight, HCenter, HScale, HStretch:
	default:
		return false
	}
	switch c.Vertical {
	case VTop, VBottom, VCenter, VScale, VStretch:
	default:
		return false
	}
	return true
}

type Shadow struct {
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
	Blur    float64 `json:"blur"`
	Spread  float64 `json:"spread"`
	Color   string  `json:"color"`
	Alpha   float64 `json:"alpha"`
}

// Style holds the authored visual properties of an element.
type Style struct {
	Fill        string  `json:"fill"`
	FillOpacity float64 `json:"fillOpacity"`
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
	Radius      float64 `json:"radius"`
	Opacity     float64 `json:"opacity"`
	Shadow      *Shadow `json:"shadow,omitempty"`

	Text       string  `json:"text,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	FontWeight int     `json:"fontWeight,omitempty"`
	TextColor  string  `json:"textColor,omitempty"`
	TextAlign  string  `json:"textAlign,omitempty"`
}

// DefaultStyle is the look of a freshly drawn box.
func DefaultStyle() Style {
	return Style{
		Fill:        "#e2e8f0",
		FillOpacity: 1,
		Stroke:      "#94a3b8",
		StrokeWidth: 1,
		Opacity:     1,
	}
}

// Role is the semantic classification the layout analyzer assigns.
type Role string

const (
	RoleNone     Role = ""
	RoleHeader   Role = "header"
	RoleNav      Role = "nav"
	RoleFooter   Role = "footer"
	RoleSidebar  Role = "sidebar"
	RoleHero     Role = "hero"
	RoleSection  Role = "section"
	RoleCard     Role = "card"
	RoleCarousel Role = "carousel"
	RoleHeading  Role = "heading"
	RoleText     Role = "text"
	RoleButton   Role = "button"
	RoleBlock    Role = "block"
)

// LayoutStrategy is the inferred flow model of a container's children.
type LayoutStrategy string

const (
	LayoutNone     LayoutStrategy = ""
	LayoutFlexRow  LayoutStrategy = "flex-row"
	LayoutFlexCol  LayoutStrategy = "flex-col"
	LayoutGrid     LayoutStrategy = "grid"
	LayoutAbsolute LayoutStrategy = "absolute"
)

// Flow reports whether children of a container with this strategy are laid
// out by the browser rather than positioned absolutely.
func (l LayoutStrategy) Flow() bool {
	return l == LayoutFlexRow || l == LayoutFlexCol || l == LayoutGrid
}

// Semantics are the derived fields written by the layout analyzer.
type Semantics struct {
	Role           Role           `json:"role,omitempty"`
	HTMLTag        string         `json:"htmlTag,omitempty"`
	CSSClass       string         `json:"cssClass,omitempty"`
	LayoutStrategy LayoutStrategy `json:"layoutStrategy,omitempty"`
}

// Element is a positioned rectangular node of the page tree.
// X and Y are relative to the parent's top-left corner.
type Element struct {
	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	ParentID string   `json:"parentId,omitempty"`
	ChildIDs []string `json:"childIds"`
	ZIndex   int      `json:"zIndex"`

	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	Style       Style       `json:"style"`
	Constraints Constraints `json:"constraints"`
	Locked      bool        `json:"locked,omitempty"`
	Hidden      bool        `json:"hidden,omitempty"`

	Semantics
}

// Rect returns the element's parent-relative rectangle.
func (e Element) Rect() Rect {
	return Rect{X: e.X, Y: e.Y, Width: e.Width, Height: e.Height}
}

func (e Element) Size() Size {
	return Size{Width: e.Width, Height: e.Height}
}

func (e Element) IsRoot() bool { return e.ParentID == "" }

func (e Element) HasChildren() bool { return len(e.ChildIDs) > 0 }

// Clone returns a deep copy that shares no mutable state with e.
func (e Element) Clone() Element {
	c := e
	if e.ChildIDs != nil {
		c.ChildIDs = append([]string(nil), e.ChildIDs...)
	}
	if e.Style.Shadow != nil {
		s := *e.Style.Shadow
		c.Style.Shadow = &s
	}
	return c
}
