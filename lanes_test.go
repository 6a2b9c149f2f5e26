package procdrive

import "testing"

func TestLane3At(t *testing.T) {
	tests := []struct {
		offset float32
		want   Lane3
	}{
		{-200, Left3},
		{-60, Left3},
		{-31, Left3},
		{-29, Middle3},
		{0, Middle3},
		{29, Middle3},
		{31, Right3},
		{60, Right3},
		{200, Right3},
	}
	for _, tt := range tests {
		if got := Lane3At(tt.offset); got != tt.want {
			t.Errorf("Lane3At(%v) = %v, want %v", tt.offset, got, tt.want)
		}
	}
}

func TestLane4At(t *testing.T) {
	tests := []struct {
		offset float32
		want   Lane4
	}{
		{-100, Left4},
		{-68, Left4},
		{-46, Left4},
		{-45, MidLeft4},
		{-1, MidLeft4},
		{0, MidLeft4}, // equidistant: left wins
		{1, MidRight4},
		{45, MidRight4},
		{46, Right4},
		{100, Right4},
	}
	for _, tt := range tests {
		if got := Lane4At(tt.offset); got != tt.want {
			t.Errorf("Lane4At(%v) = %v, want %v", tt.offset, got, tt.want)
		}
	}
}

func TestLaneCentresClassifyAsThemselves(t *testing.T) {
	for _, l := range []Lane3{Left3, Middle3, Right3} {
		if got := Lane3At(l.Offset()); got != l {
			t.Errorf("Lane3At(%v centre) = %v", l, got)
		}
	}
	for _, l := range []Lane4{Left4, MidLeft4, MidRight4, Right4} {
		if got := Lane4At(l.Offset()); got != l {
			t.Errorf("Lane4At(%v centre) = %v", l, got)
		}
	}
}

// Sweeping the road left to right must never move either scheme back
// towards the left, and the outer lanes of both schemes agree.
func TestLaneSchemesAreMonotonicAndConsistent(t *testing.T) {
	prev3, prev4 := Left3, Left4
	for off := float32(-120); off <= 120; off += 0.5 {
		l3, l4 := Lane3At(off), Lane4At(off)
		if l3 < prev3 || l4 < prev4 {
			t.Fatalf("lane moved left at offset %v: %v/%v after %v/%v", off, l3, l4, prev3, prev4)
		}
		if (l4 == Left4) != (l3 == Left3) && (off < -45.5 || off > -30) {
			t.Errorf("outer left lanes disagree at %v: %v vs %v", off, l3, l4)
		}
		prev3, prev4 = l3, l4
	}
}

func TestLaneAt(t *testing.T) {
	l, ok := LaneAt(ThreeLanes, 55)
	if !ok || l != Right3 || l.Scheme() != ThreeLanes {
		t.Errorf("LaneAt(3, 55) = %v, %v", l, ok)
	}
	l, ok = LaneAt(FourLanes, -20)
	if !ok || l != MidLeft4 || l.Scheme() != FourLanes {
		t.Errorf("LaneAt(4, -20) = %v, %v", l, ok)
	}
	if _, ok := LaneAt(LaneScheme(5), 0); ok {
		t.Error("unknown scheme should not classify")
	}
}

func TestLaneStrings(t *testing.T) {
	tests := []struct {
		lane Lane
		want string
	}{
		{Left3, "left"},
		{Middle3, "middle"},
		{MidRight4, "mid-right"},
		{Lane3(7), "Lane3(7)"},
		{Lane4(-1), "Lane4(-1)"},
	}
	for _, tt := range tests {
		if got := tt.lane.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
	if got := FourLanes.String(); got != "4-lane" {
		t.Errorf("FourLanes.String() = %q", got)
	}
}

func TestLaneValid(t *testing.T) {
	tests := []struct {
		lane   Lane
		valid  bool
		offset float32
	}{
		{Left3, true, -60},
		{Right3, true, 60},
		{Lane3(3), false, 0},
		{Lane3(-1), false, 0},
		{Right4, true, 68},
		{Lane4(4), false, 0},
		{Lane4(7), false, 0},
	}
	for _, tt := range tests {
		if got := validLane(tt.lane); got != tt.valid {
			t.Errorf("validLane(%v) = %v, want %v", tt.lane, got, tt.valid)
		}
		if got := tt.lane.Offset(); got != tt.offset {
			t.Errorf("%v.Offset() = %v, want %v", tt.lane, got, tt.offset)
		}
	}
	if validLane(nil) {
		t.Error("nil lane should be invalid")
	}
}
