package editor

import "github.com/shelfmap/shelfmap/pkg/geometry"

// Layout describes how a natural-size image is rendered inside a container:
// the contain-fit scale, the centering offset of the letterbox, and the
// resulting rendered size. A Layout is a pure value; conversions are exact
// inverses of each other up to floating-point rounding.
type Layout struct {
	ScaleX         float64
	ScaleY         float64
	OffsetX        float64
	OffsetY        float64
	RenderedWidth  float64
	RenderedHeight float64
}

// IdentityLayout maps display space onto natural space unchanged. It is the
// fallback when either input size has a collapsed dimension.
var IdentityLayout = Layout{ScaleX: 1, ScaleY: 1}

// ComputeLayout computes the contain-fit letterbox: the largest centered
// rectangle of the image's aspect ratio that fits inside the container.
// If either size has a zero dimension the identity layout is returned
// rather than an error; callers that need to distinguish that case use
// [Mapper.Available].
func ComputeLayout(container, natural geometry.Size) Layout {
	if container.IsZero() || natural.IsZero() {
		return IdentityLayout
	}

	scale := container.Width / natural.Width
	if s := container.Height / natural.Height; s < scale {
		scale = s
	}

	rw := natural.Width * scale
	rh := natural.Height * scale
	return Layout{
		ScaleX:         scale,
		ScaleY:         scale,
		OffsetX:        (container.Width - rw) / 2,
		OffsetY:        (container.Height - rh) / 2,
		RenderedWidth:  rw,
		RenderedHeight: rh,
	}
}

// NaturalToDisplay converts a natural-space rectangle to display space.
func (l Layout) NaturalToDisplay(r geometry.Rect) geometry.Rect {
	return geometry.Rect{
		X:      r.X*l.ScaleX + l.OffsetX,
		Y:      r.Y*l.ScaleY + l.OffsetY,
		Width:  r.Width * l.ScaleX,
		Height: r.Height * l.ScaleY,
	}
}

// NaturalPointToDisplay converts a natural-space point to display space.
func (l Layout) NaturalPointToDisplay(p geometry.Point) geometry.Point {
	return geometry.Point{X: p.X*l.ScaleX + l.OffsetX, Y: p.Y*l.ScaleY + l.OffsetY}
}

// DisplayToNatural converts a display-space point to natural space.
func (l Layout) DisplayToNatural(p geometry.Point) geometry.Point {
	return geometry.Point{X: (p.X - l.OffsetX) / l.ScaleX, Y: (p.Y - l.OffsetY) / l.ScaleY}
}

// Mapper tracks the container and natural sizes and keeps the derived
// layout current. It must be fed a new container size on every resize
// notification and the natural size once the image has loaded; recomputing
// with unchanged inputs yields an unchanged layout.
type Mapper struct {
	container geometry.Size
	natural   geometry.Size
	layout    Layout
}

// NewMapper returns a mapper with no sizes known yet. The layout is the
// identity and Available reports false until a valid natural size arrives.
func NewMapper() *Mapper {
	return &Mapper{layout: IdentityLayout}
}

// SetContainerSize records a new container size and recomputes the layout.
func (m *Mapper) SetContainerSize(s geometry.Size) {
	m.container = s
	m.layout = ComputeLayout(m.container, m.natural)
}

// SetNaturalSize records the image's intrinsic size and recomputes the
// layout. A size with a non-positive dimension marks the layout unavailable
// instead of producing a degenerate scale.
func (m *Mapper) SetNaturalSize(s geometry.Size) {
	m.natural = s
	m.layout = ComputeLayout(m.container, m.natural)
}

// Available reports whether the image has reported valid intrinsic
// dimensions. While unavailable, pointer interaction must stay suspended:
// there is no meaningful natural space to map into.
func (m *Mapper) Available() bool {
	return !m.natural.IsZero()
}

// Natural returns the image's intrinsic size.
func (m *Mapper) Natural() geometry.Size { return m.natural }

// Container returns the last observed container size.
func (m *Mapper) Container() geometry.Size { return m.container }

// Layout returns the current layout.
func (m *Mapper) Layout() Layout { return m.layout }
