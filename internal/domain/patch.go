package domain

import "math"

// MinSize is the smallest width or height an element may have.
const MinSize = 1.0

// Patch is a typed partial update. Nil fields are left untouched.
type Patch struct {
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`

	Name        *string      `json:"name,omitempty"`
	Fill        *string      `json:"fill,omitempty"`
	FillOpacity *float64     `json:"fillOpacity,omitempty"`
	Stroke      *string      `json:"stroke,omitempty"`
	StrokeWidth *float64     `json:"strokeWidth,omitempty"`
	Radius      *float64     `json:"radius,omitempty"`
	Opacity     *float64     `json:"opacity,omitempty"`
	Shadow      *Shadow      `json:"shadow,omitempty"`
	ClearShadow bool         `json:"clearShadow,omitempty"`
	Text        *string      `json:"text,omitempty"`
	FontSize    *float64     `json:"fontSize,omitempty"`
	FontWeight  *int         `json:"fontWeight,omitempty"`
	TextColor   *string      `json:"textColor,omitempty"`
	TextAlign   *string      `json:"textAlign,omitempty"`
	Constraints *Constraints `json:"constraints,omitempty"`
	Locked      *bool        `json:"locked,omitempty"`
	Hidden      *bool        `json:"hidden,omitempty"`
	Semantics   *Semantics   `json:"semantics,omitempty"`
}

// Float, String and Bool return pointers for building patches inline.
func Float(v float64) *float64 { return &v }
func String(v string) *string   { return &v }
func Bool(v bool) *bool         { return &v }
func Int(v int) *int            { return &v }

// MoveTo builds a position-only patch.
func MoveTo(x, y float64) Patch {
	return Patch{X: Float(x), Y: Float(y)}
}

// ResizeTo builds a size-only patch.
func ResizeTo(w, h float64) Patch {
	return Patch{Width: Float(w), Height: Float(h)}
}

// Geometry builds a patch that sets all four coordinates.
func Geometry(r Rect) Patch {
	return Patch{X: Float(r.X), Y: Float(r.Y), Width: Float(r.Width), Height: Float(r.Height)}
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p == Patch{}
}

// OnlyUnlocks reports whether the patch does nothing but clear the lock flag,
// the one change a locked element accepts.
func (p Patch) OnlyUnlocks() bool {
	if p.Locked == nil || *p.Locked {
		return false
	}
	p.Locked = nil
	return p.IsEmpty()
}

// Apply merges p into e in place. Sizes are clamped to MinSize.
func (p Patch) Apply(e *Element) {
	if p.X != nil {
		e.X = *p.X
	}
	if p.Y != nil {
		e.Y = *p.Y
	}
	if p.Width != nil {
		e.Width = math.Max(*p.Width, MinSize)
	}
	if p.Height != nil {
		e.Height = math.Max(*p.Height, MinSize)
	}
	if p.Name != nil {
		e.Name = *p.Name
	}

	s := &e.Style
	if p.Fill != nil {
		s.Fill = *p.Fill
	}
	if p.FillOpacity != nil {
		s.FillOpacity = clamp01(*p.FillOpacity)
	}
	if p.Stroke != nil {
		s.Stroke = *p.Stroke
	}
	if p.StrokeWidth != nil {
		s.StrokeWidth = math.Max(*p.StrokeWidth, 0)
	}
	if p.Radius != nil {
		s.Radius = math.Max(*p.Radius, 0)
	}
	if p.Opacity != nil {
		s.Opacity = clamp01(*p.Opacity)
	}
	if p.ClearShadow {
		s.Shadow = nil
	}
	if p.Shadow != nil {
		sh := *p.Shadow
		s.Shadow = &sh
	}
	if p.Text != nil {
		s.Text = *p.Text
	}
	if p.FontSize != nil {
		s.FontSize = *p.FontSize
	}
	if p.FontWeight != nil {
		s.FontWeight = *p.FontWeight
	}
	if p.TextColor != nil {
		s.TextColor = *p.TextColor
	}
	if p.TextAlign != nil {
		s.TextAlign = *p.TextAlign
	}

	if p.Constraints != nil && p.Constraints.Valid() {
		e.Constraints = *p.Constraints
	}
	if p.Locked != nil {
		e.Locked = *p.Locked
	}
	if p.Hidden != nil {
		e.Hidden = *p.Hidden
	}
	if p.Semantics != nil {
		e.Semantics = *p.Semantics
	}
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}
