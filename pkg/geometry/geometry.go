// Package geometry provides the 2D value types shared by the region editor
// and the inventory stores.
//
// All coordinates are float64. A value is always interpreted in one of two
// spaces: "natural" (pixels of the original, unscaled location image) or
// "display" (pixels of the rendered, possibly letterboxed container). The
// types themselves are space-agnostic; conversion between spaces is the job
// of the editor's coordinate mapper.
package geometry

// Point is a 2D coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsZero reports whether either dimension is non-positive.
// A size with a collapsed dimension cannot host a layout or a rectangle.
func (s Size) IsZero() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Rect is an axis-aligned rectangle defined by its top-left corner and size.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// R is a shorthand constructor.
func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, Width: w, Height: h} }

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Center returns the center point.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Contains reports whether p lies within the rectangle, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.Right() && p.Y <= r.Bottom()
}

// Normalized returns the rectangle spanned by two opposite corners in any
// drag direction: negative width/height flips the corner so that width and
// height come out non-negative.
func Normalized(a, b Point) Rect {
	r := Rect{X: min(a.X, b.X), Y: min(a.Y, b.Y)}
	r.Width = max(a.X, b.X) - r.X
	r.Height = max(a.Y, b.Y) - r.Y
	return r
}

// ClampInto moves the rectangle the minimal distance so it lies entirely
// within bounds. The size is preserved; a rectangle larger than bounds is
// pinned to the top-left corner.
func (r Rect) ClampInto(bounds Size) Rect {
	if r.X < 0 {
		r.X = 0
	}
	if r.Y < 0 {
		r.Y = 0
	}
	if r.Right() > bounds.Width {
		r.X = bounds.Width - r.Width
	}
	if r.Bottom() > bounds.Height {
		r.Y = bounds.Height - r.Height
	}
	if r.X < 0 {
		r.X = 0
	}
	if r.Y < 0 {
		r.Y = 0
	}
	return r
}

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
