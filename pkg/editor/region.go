package editor

import (
	"strconv"
	"strings"

	"github.com/shelfmap/shelfmap/pkg/geometry"
)

// Region is a named axis-aligned rectangle in natural coordinates. It is
// the persistent unit the editor hands back to its host; identity and
// transient interaction state live on [ActiveRegion].
type Region struct {
	ID   string
	Name string
	Rect geometry.Rect
}

// ActiveRegion is a region plus the transient interaction flags the editor
// tracks while the pointer is engaged. The flags are UI state only: they
// are never part of change detection and never handed to the host.
type ActiveRegion struct {
	Region
	Selected bool
	Dragging bool
	Resizing bool
}

// signature serializes the persistent fields of a region set: name, x, y,
// width, height, in that order, across all regions. Two sets with equal
// signatures are indistinguishable to the host, so notifications comparing
// equal are suppressed.
func signature(regions []ActiveRegion) string {
	var b strings.Builder
	for _, r := range regions {
		b.WriteString(r.Name)
		b.WriteByte('|')
		for _, v := range [4]float64{r.Rect.X, r.Rect.Y, r.Rect.Width, r.Rect.Height} {
			b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
			b.WriteByte('|')
		}
		b.WriteByte(';')
	}
	return b.String()
}
