package domain

import "math"

// Tool is the active editor tool.
type Tool string

const (
	ToolSelect Tool = "select"
	ToolDraw   Tool = "draw"
	ToolHand   Tool = "hand"
)

const (
	DefaultMinZoom  = 0.05
	DefaultMaxZoom  = 8.0
	DefaultGridSize = 8.0
)

// Viewport is the per-session camera and editor mode state.
type Viewport struct {
	Zoom        float64 `json:"zoom"`
	PanX        float64 `json:"panX"`
	PanY        float64 `json:"panY"`
	GridSize    float64 `json:"gridSize"`
	GridVisible bool    `json:"gridVisible"`
	SnapEnabled bool    `json:"snapEnabled"`
	Tool        Tool    `json:"tool"`
}

func DefaultViewport() Viewport {
	return Viewport{
		Zoom:        1,
		GridSize:    DefaultGridSize,
		GridVisible: true,
		SnapEnabled: true,
		Tool:        ToolSelect,
	}
}

// ScreenToWorld converts a screen-space point to canvas space.
func (v Viewport) ScreenToWorld(sx, sy float64) (float64, float64) {
	return (sx - v.PanX) / v.Zoom, (sy - v.PanY) / v.Zoom
}

// WorldToScreen converts a canvas-space point to screen space.
func (v Viewport) WorldToScreen(wx, wy float64) (float64, float64) {
	return wx*v.Zoom + v.PanX, wy*v.Zoom + v.PanY
}

// ClampZoom bounds z to [min, max]; NaN falls back to 1.
func ClampZoom(z, min, max float64) float64 {
	if math.IsNaN(z) {
		return 1
	}
	return math.Min(math.Max(z, min), max)
}
