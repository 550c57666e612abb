package geom

import "math"

// Point is a planar coordinate pair.
type Point struct {
	X, Y float64
}

// BBox is an axis-aligned bounding box. A valid box satisfies
// MinX <= MaxX and MinY <= MaxY.
type BBox struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// NewBBox builds a box from two opposite corners in any order.
func NewBBox(x0, y0, x1, y1 float64) BBox {
	return BBox{
		MinX: math.Min(x0, x1), MinY: math.Min(y0, y1),
		MaxX: math.Max(x0, x1), MaxY: math.Max(y0, y1),
	}
}

// Bounds returns the smallest box containing every point.
// It reports false for an empty slice.
func Bounds(pts []Point) (BBox, bool) {
	if len(pts) == 0 {
		return BBox{}, false
	}
	b := BBox{MinX: pts[0].X, MinY: pts[0].Y, MaxX: pts[0].X, MaxY: pts[0].Y}
	for _, p := range pts[1:] {
		b.MinX = math.Min(b.MinX, p.X)
		b.MinY = math.Min(b.MinY, p.Y)
		b.MaxX = math.Max(b.MaxX, p.X)
		b.MaxY = math.Max(b.MaxY, p.Y)
	}
	return b, true
}

// Union returns the smallest box containing both b and o.
func (b BBox) Union(o BBox) BBox {
	return BBox{
		MinX: math.Min(b.MinX, o.MinX), MinY: math.Min(b.MinY, o.MinY),
		MaxX: math.Max(b.MaxX, o.MaxX), MaxY: math.Max(b.MaxY, o.MaxY),
	}
}

// Translate returns b moved by (dx, dy).
func (b BBox) Translate(dx, dy float64) BBox {
	return BBox{MinX: b.MinX + dx, MinY: b.MinY + dy, MaxX: b.MaxX + dx, MaxY: b.MaxY + dy}
}

// Width returns the horizontal span of the box.
func (b BBox) Width() float64 { return b.MaxX - b.MinX }

// Height returns the vertical span of the box.
func (b BBox) Height() float64 { return b.MaxY - b.MinY }

// CenterX returns the horizontal midpoint of the box.
func (b BBox) CenterX() float64 { return (b.MinX + b.MaxX) / 2 }

// CenterY returns the vertical midpoint of the box.
func (b BBox) CenterY() float64 { return (b.MinY + b.MaxY) / 2 }

// Valid reports whether the box is ordered and finite.
func (b BBox) Valid() bool {
	for _, v := range [...]float64{b.MinX, b.MinY, b.MaxX, b.MaxY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.MinX <= b.MaxX && b.MinY <= b.MaxY
}
