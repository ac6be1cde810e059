package editor

import (
	"testing"

	"github.com/shelfmap/shelfmap/pkg/geometry"
)

var snapImage = geometry.Size{Width: 800, Height: 600}

func regionsFromRects(rects ...geometry.Rect) []ActiveRegion {
	out := make([]ActiveRegion, len(rects))
	for i, r := range rects {
		out[i] = ActiveRegion{Region: Region{ID: string(rune('a' + i)), Rect: r}}
	}
	return out
}

func TestNearest(t *testing.T) {
	tests := []struct {
		name       string
		value      float64
		candidates []float64
		threshold  float64
		want       float64
		wantOK     bool
	}{
		{"Empty", 10, nil, 5, 0, false},
		{"Hit", 103, []float64{0, 100, 200}, 5, 100, true},
		{"AtThresholdRejected", 105, []float64{100}, 5, 0, false},
		{"JustUnderThreshold", 104.9, []float64{100}, 5, 100, true},
		{"TieFirstWins", 10, []float64{8, 12}, 5, 8, true},
		{"SmallerDistanceWins", 10, []float64{14, 11}, 5, 11, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := nearest(tt.value, tt.candidates, tt.threshold)
			if ok != tt.wantOK || (ok && got != tt.want) {
				t.Errorf("nearest(%v) = %v, %v; want %v, %v", tt.value, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestBuildCandidatesNoneIsEmpty(t *testing.T) {
	regions := regionsFromRects(geometry.R(0, 0, 100, 50))
	c := BuildCandidates(regions, "", snapImage, MagnetConfig{Mode: MagnetNone, Threshold: 5})
	if !c.Empty() {
		t.Errorf("MagnetNone should produce no candidates, got %+v", c)
	}
}

func TestBuildCandidatesEdges(t *testing.T) {
	regions := regionsFromRects(
		geometry.R(0, 0, 100, 50),
		geometry.R(300, 200, 60, 40),
	)
	c := BuildCandidates(regions, "b", snapImage, MagnetConfig{Mode: MagnetEdges, Threshold: 5})

	// Boundary first, then the one sibling ("a"); the active region "b"
	// contributes nothing.
	wantX := []float64{0, 800, 0, 100}
	wantY := []float64{0, 600, 0, 50}
	if len(c.XEdges) != len(wantX) {
		t.Fatalf("XEdges = %v, want %v", c.XEdges, wantX)
	}
	for i := range wantX {
		if c.XEdges[i] != wantX[i] {
			t.Errorf("XEdges[%d] = %v, want %v", i, c.XEdges[i], wantX[i])
		}
	}
	for i := range wantY {
		if c.YEdges[i] != wantY[i] {
			t.Errorf("YEdges[%d] = %v, want %v", i, c.YEdges[i], wantY[i])
		}
	}
	if len(c.XCenters) != 1 || c.XCenters[0] != 50 {
		t.Errorf("XCenters = %v, want [50]", c.XCenters)
	}
	if len(c.YCenters) != 1 || c.YCenters[0] != 25 {
		t.Errorf("YCenters = %v, want [25]", c.YCenters)
	}
}

func TestApplyDragSnapsToSiblingRightEdge(t *testing.T) {
	// The spec's canonical case: sibling at {0,0,100,50}, threshold 5, a
	// dragged rect whose left edge lands at 103 snaps to 100.
	siblings := regionsFromRects(geometry.R(0, 0, 100, 50))
	c := BuildCandidates(siblings, "moving", snapImage, MagnetConfig{Mode: MagnetEdges, Threshold: 5})

	got := c.ApplyDrag(geometry.R(103, 200, 50, 30), 5)
	if got.X != 100 {
		t.Errorf("X = %v, want 100", got.X)
	}
	if got.Y != 200 {
		t.Errorf("unmatched axis moved: Y = %v, want 200", got.Y)
	}
}

func TestApplyDragEdgePriority(t *testing.T) {
	// Both the left edge (via 100) and the center (via 128) are in range;
	// the edge match must win.
	c := Candidates{XEdges: []float64{100}, XCenters: []float64{128}}
	got := c.ApplyDrag(geometry.R(103, 0, 50, 30), 5)
	if got.X != 100 {
		t.Errorf("X = %v, want edge match at 100", got.X)
	}

	// Only the trailing edge is in range.
	c = Candidates{XEdges: []float64{156}}
	got = c.ApplyDrag(geometry.R(103, 0, 50, 30), 5)
	if got.X != 106 {
		t.Errorf("X = %v, want trailing-edge match at 106", got.X)
	}

	// Only the center is in range.
	c = Candidates{XCenters: []float64{130}}
	got = c.ApplyDrag(geometry.R(103, 0, 50, 30), 5)
	if got.X != 105 {
		t.Errorf("X = %v, want center match at 105", got.X)
	}
}

func TestApplyResizeSnapsTrailingEdgesOnly(t *testing.T) {
	c := Candidates{
		XEdges: []float64{100, 203},
		YEdges: []float64{52},
	}
	got := c.ApplyResize(geometry.R(100, 10, 101, 40), 5)
	if got.X != 100 || got.Y != 10 {
		t.Errorf("anchor corner moved: %+v", got)
	}
	if got.Width != 103 {
		t.Errorf("Width = %v, want 103 (right edge snapped to 203)", got.Width)
	}
	if got.Height != 42 {
		t.Errorf("Height = %v, want 42 (bottom edge snapped to 52)", got.Height)
	}
}

func TestDistanceModePropagatesSpacing(t *testing.T) {
	// Two siblings with a 50px horizontal gap. A third region dragged near
	// x=300 (the second sibling's right edge plus the gap) falls into the
	// same rhythm.
	siblings := regionsFromRects(
		geometry.R(0, 0, 100, 50),
		geometry.R(150, 0, 100, 50),
	)
	cfg := MagnetConfig{Mode: MagnetDistance, Threshold: 5}
	c := BuildCandidates(siblings, "moving", snapImage, cfg)

	got := c.ApplyDrag(geometry.R(302, 300, 80, 40), cfg.Threshold)
	if got.X != 300 {
		t.Errorf("X = %v, want 300 (right edge of second sibling + pair gap)", got.X)
	}

	// Edges mode must not produce the rhythm target.
	c = BuildCandidates(siblings, "moving", snapImage, MagnetConfig{Mode: MagnetEdges, Threshold: 5})
	got = c.ApplyDrag(geometry.R(302, 300, 80, 40), 5)
	if got.X != 302 {
		t.Errorf("edges mode snapped to %v, want unsnapped 302", got.X)
	}
}
