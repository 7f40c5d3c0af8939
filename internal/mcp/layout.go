package mcpserver

import (
	"math"

	"pagecraft/internal/domain"
)

const (
	// PaddingCells is the free space kept around placed elements, in grid cells.
	PaddingCells = 2
	MaxRowW      = 1440.0
	maxScanY     = 100000.0
)

// LayoutEngine places elements created by agents so they don't overlap
// existing ones.
type LayoutEngine struct {
	gridSize float64
	padding  float64
	maxRowW  float64
}

// NewLayoutEngine uses the editor grid; a non-positive size falls back to
// the default grid.
func NewLayoutEngine(gridSize float64) *LayoutEngine {
	if gridSize <= 0 {
		gridSize = domain.DefaultGridSize
	}
	return &LayoutEngine{
		gridSize: gridSize,
		padding:  gridSize * PaddingCells,
		maxRowW:  MaxRowW,
	}
}

// snap rounds v to the nearest grid point.
func (le *LayoutEngine) snap(v float64) float64 {
	return math.Round(v/le.gridSize) * le.gridSize
}

func (le *LayoutEngine) pad(r domain.Rect) domain.Rect {
	return domain.Rect{
		X:      r.X - le.padding,
		Y:      r.Y - le.padding,
		Width:  r.Width + le.padding*2,
		Height: r.Height + le.padding*2,
	}
}

// overlaps is strict: rectangles that only share an edge don't overlap.
func overlaps(a, b domain.Rect) bool {
	return a.X < b.Right() && a.Right() > b.X && a.Y < b.Bottom() && a.Bottom() > b.Y
}

// NextPosition finds the first free grid slot, scanning rows top to bottom
// and columns left to right, for a box of size (w, h) among occupied.
func (le *LayoutEngine) NextPosition(occupied []domain.Rect, w, h float64) (float64, float64) {
	if len(occupied) == 0 {
		return 0, 0
	}
	padded := make([]domain.Rect, len(occupied))
	for i, r := range occupied {
		padded[i] = le.pad(r)
	}

	candidate := domain.Rect{Width: w, Height: h}
	for y := 0.0; y < maxScanY; y += le.gridSize {
		for x := 0.0; x+w <= le.maxRowW || x == 0; x += le.gridSize {
			candidate.X, candidate.Y = le.snap(x), le.snap(y)
			free := true
			for _, p := range padded {
				if overlaps(candidate, p) {
					free = false
					break
				}
			}
			if free {
				return candidate.X, candidate.Y
			}
		}
	}

	// Fallback: below everything.
	maxY := 0.0
	for _, r := range occupied {
		maxY = math.Max(maxY, r.Bottom())
	}
	return 0, le.snap(maxY + le.padding)
}

// ArrangeGroup lays elements out left to right from (startX, startY),
// wrapping rows at the maximum row width. Positions are set in place.
func (le *LayoutEngine) ArrangeGroup(els []domain.Element, startX, startY float64) []domain.Element {
	x0 := le.snap(startX)
	x, y := x0, le.snap(startY)
	rowHeight := 0.0

	for i := range els {
		if x > x0 && x+els[i].Width > x0+le.maxRowW {
			x = x0
			y += le.snap(rowHeight + le.padding)
			rowHeight = 0
		}
		els[i].X, els[i].Y = x, y
		rowHeight = math.Max(rowHeight, els[i].Height)
		x += le.snap(els[i].Width + le.padding)
	}
	return els
}
