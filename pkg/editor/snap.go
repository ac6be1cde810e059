package editor

import (
	"math"

	"github.com/shelfmap/shelfmap/pkg/geometry"
)

// MagnetMode selects which alignment targets a drag or resize snaps to.
type MagnetMode string

const (
	// MagnetNone disables snapping entirely.
	MagnetNone MagnetMode = "none"

	// MagnetEdges snaps to sibling edges, sibling centers and the image
	// boundary.
	MagnetEdges MagnetMode = "edges"

	// MagnetDistance additionally snaps to positions offset by the pairwise
	// edge distances observed between other regions, so a third region can
	// fall into the same spacing rhythm as two existing ones.
	MagnetDistance MagnetMode = "distance"
)

// DefaultThreshold is the default maximum distance in natural pixels at
// which a snap engages.
const DefaultThreshold = 8.0

// MagnetConfig configures the snap engine.
type MagnetConfig struct {
	Mode      MagnetMode
	Threshold float64
}

// Candidates holds the per-axis snap targets derived from all regions
// except the one being manipulated, plus the image boundary. Edge pools are
// matched against the moving rectangle's edges, center pools against its
// center. Candidate order is significant: ties in [nearest] resolve to the
// first candidate declared.
type Candidates struct {
	XEdges   []float64
	YEdges   []float64
	XCenters []float64
	YCenters []float64
}

// Empty reports whether no targets exist on either axis.
func (c Candidates) Empty() bool {
	return len(c.XEdges) == 0 && len(c.YEdges) == 0 && len(c.XCenters) == 0 && len(c.YCenters) == 0
}

// BuildCandidates derives the snap targets for manipulating the region with
// activeID. The image boundary is declared first, then siblings in set
// order, so boundary alignment wins distance ties. MagnetNone yields an
// empty candidate set, which makes the apply functions no-ops.
func BuildCandidates(regions []ActiveRegion, activeID string, image geometry.Size, cfg MagnetConfig) Candidates {
	if cfg.Mode == MagnetNone {
		return Candidates{}
	}

	var c Candidates
	c.XEdges = append(c.XEdges, 0, image.Width)
	c.YEdges = append(c.YEdges, 0, image.Height)

	siblings := make([]geometry.Rect, 0, len(regions))
	for _, r := range regions {
		if r.ID == activeID {
			continue
		}
		siblings = append(siblings, r.Rect)
	}

	for _, s := range siblings {
		c.XEdges = append(c.XEdges, s.X, s.Right())
		c.YEdges = append(c.YEdges, s.Y, s.Bottom())
		center := s.Center()
		c.XCenters = append(c.XCenters, center.X)
		c.YCenters = append(c.YCenters, center.Y)
	}

	if cfg.Mode == MagnetDistance {
		for i := 0; i < len(siblings); i++ {
			for j := i + 1; j < len(siblings); j++ {
				a, b := siblings[i], siblings[j]
				c.XEdges = appendOffsets(c.XEdges,
					[]float64{a.X, a.Right(), b.X, b.Right()},
					pairDistances(a.X, a.Right(), b.X, b.Right()))
				c.YEdges = appendOffsets(c.YEdges,
					[]float64{a.Y, a.Bottom(), b.Y, b.Bottom()},
					pairDistances(a.Y, a.Bottom(), b.Y, b.Bottom()))
			}
		}
	}

	return c
}

// pairDistances returns the absolute distances between the corresponding
// edges of a pair: leading-leading, trailing-trailing, trailing-leading and
// leading-trailing.
func pairDistances(aLo, aHi, bLo, bHi float64) [4]float64 {
	return [4]float64{
		math.Abs(aLo - bLo),
		math.Abs(aHi - bHi),
		math.Abs(aHi - bLo),
		math.Abs(aLo - bHi),
	}
}

// appendOffsets adds every edge shifted by every pair distance in both
// directions. Zero distances are skipped: they only duplicate the plain
// edge targets already present.
func appendOffsets(dst []float64, edges []float64, dists [4]float64) []float64 {
	for _, d := range dists {
		if d == 0 {
			continue
		}
		for _, e := range edges {
			dst = append(dst, e-d, e+d)
		}
	}
	return dst
}

// nearest returns the candidate with the smallest distance to value that is
// strictly under threshold. Ties break to the first candidate declared.
func nearest(value float64, candidates []float64, threshold float64) (float64, bool) {
	best := 0.0
	bestDist := threshold
	found := false
	for _, c := range candidates {
		if d := math.Abs(c - value); d < bestDist {
			best, bestDist, found = c, d, true
		}
	}
	return best, found
}

// ApplyDrag snaps a proposed drag position. Each axis is handled
// independently: the leading edge is tried first, then the trailing edge,
// then the center; an axis with no match keeps its proposed value.
func (c Candidates) ApplyDrag(r geometry.Rect, threshold float64) geometry.Rect {
	if v, ok := nearest(r.X, c.XEdges, threshold); ok {
		r.X = v
	} else if v, ok := nearest(r.Right(), c.XEdges, threshold); ok {
		r.X = v - r.Width
	} else if v, ok := nearest(r.Center().X, c.XCenters, threshold); ok {
		r.X = v - r.Width/2
	}

	if v, ok := nearest(r.Y, c.YEdges, threshold); ok {
		r.Y = v
	} else if v, ok := nearest(r.Bottom(), c.YEdges, threshold); ok {
		r.Y = v - r.Height
	} else if v, ok := nearest(r.Center().Y, c.YCenters, threshold); ok {
		r.Y = v - r.Height/2
	}

	return r
}

// ApplyResize snaps a proposed resize. Only the right and bottom edges are
// snap targets; the anchor corner (top-left) never moves during a resize.
func (c Candidates) ApplyResize(r geometry.Rect, threshold float64) geometry.Rect {
	if v, ok := nearest(r.Right(), c.XEdges, threshold); ok {
		r.Width = v - r.X
	}
	if v, ok := nearest(r.Bottom(), c.YEdges, threshold); ok {
		r.Height = v - r.Y
	}
	return r
}
