package store

import (
	"math"

	"pagecraft/internal/domain"
	"pagecraft/internal/events"
)

// ── Viewport ───────────────────────────────────────────────

func (s *Store) Viewport() domain.Viewport { return s.viewport }

func (s *Store) setViewport(v domain.Viewport) {
	if v == s.viewport {
		return
	}
	s.viewport = v
	s.emit(events.ViewportChanged)
}

// SetZoom sets the zoom factor, clamped to the configured limits.
func (s *Store) SetZoom(z float64) {
	v := s.viewport
	v.Zoom = domain.ClampZoom(z, s.minZoom, s.maxZoom)
	s.setViewport(v)
}

// ZoomAt multiplies the zoom by factor while keeping the canvas point under
// the screen position (sx, sy) fixed.
func (s *Store) ZoomAt(factor, sx, sy float64) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return
	}
	v := s.viewport
	wx, wy := v.ScreenToWorld(sx, sy)
	v.Zoom = domain.ClampZoom(v.Zoom*factor, s.minZoom, s.maxZoom)
	v.PanX = sx - wx*v.Zoom
	v.PanY = sy - wy*v.Zoom
	s.setViewport(v)
}

func (s *Store) SetPan(x, y float64) {
	if math.IsNaN(x) || math.IsNaN(y) {
		return
	}
	v := s.viewport
	v.PanX, v.PanY = x, y
	s.setViewport(v)
}

// SetGrid updates the grid cell size and visibility. Non-positive sizes keep
// the current size.
func (s *Store) SetGrid(size float64, visible bool) {
	v := s.viewport
	if size > 0 {
		v.GridSize = size
	}
	v.GridVisible = visible
	s.setViewport(v)
}

func (s *Store) SetSnapEnabled(on bool) {
	v := s.viewport
	v.SnapEnabled = on
	s.setViewport(v)
}

func (s *Store) SetTool(t domain.Tool) {
	switch t {
	case domain.ToolSelect, domain.ToolDraw, domain.ToolHand:
	default:
		return
	}
	v := s.viewport
	v.Tool = t
	s.setViewport(v)
}
