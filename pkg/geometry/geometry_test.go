package geometry

import "testing"

func TestNormalized(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		want Rect
	}{
		{
			name: "TopLeftToBottomRight",
			a:    Point{X: 10, Y: 20},
			b:    Point{X: 110, Y: 70},
			want: R(10, 20, 100, 50),
		},
		{
			name: "BottomRightToTopLeft",
			a:    Point{X: 110, Y: 70},
			b:    Point{X: 10, Y: 20},
			want: R(10, 20, 100, 50),
		},
		{
			name: "SamePoint",
			a:    Point{X: 5, Y: 5},
			b:    Point{X: 5, Y: 5},
			want: R(5, 5, 0, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalized(tt.a, tt.b); got != tt.want {
				t.Errorf("Normalized(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestClampInto(t *testing.T) {
	bounds := Size{Width: 200, Height: 100}

	tests := []struct {
		name string
		r    Rect
		want Rect
	}{
		{"AlreadyInside", R(10, 10, 50, 50), R(10, 10, 50, 50)},
		{"PastLeft", R(-5, 10, 50, 50), R(0, 10, 50, 50)},
		{"PastRight", R(180, 10, 50, 50), R(150, 10, 50, 50)},
		{"PastBottom", R(10, 80, 50, 50), R(10, 50, 50, 50)},
		{"LargerThanBounds", R(10, 10, 300, 50), R(0, 10, 300, 50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.ClampInto(bounds); got != tt.want {
				t.Errorf("ClampInto = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRectContains(t *testing.T) {
	r := R(10, 10, 100, 50)

	inside := []Point{{X: 10, Y: 10}, {X: 110, Y: 60}, {X: 50, Y: 30}}
	for _, p := range inside {
		if !r.Contains(p) {
			t.Errorf("Contains(%v) = false, want true", p)
		}
	}

	outside := []Point{{X: 9.9, Y: 10}, {X: 110.1, Y: 60}, {X: 50, Y: 60.5}}
	for _, p := range outside {
		if r.Contains(p) {
			t.Errorf("Contains(%v) = true, want false", p)
		}
	}
}

func TestSizeIsZero(t *testing.T) {
	if (Size{Width: 100, Height: 50}).IsZero() {
		t.Error("non-degenerate size reported zero")
	}
	for _, s := range []Size{{}, {Width: 100}, {Height: 50}, {Width: -1, Height: 10}} {
		if !s.IsZero() {
			t.Errorf("%v should report zero", s)
		}
	}
}
