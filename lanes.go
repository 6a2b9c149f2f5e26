package procdrive

import "fmt"

// LaneScheme is the number of lanes the road is divided into.
type LaneScheme int

const (
	ThreeLanes LaneScheme = 3
	FourLanes  LaneScheme = 4
)

func (s LaneScheme) String() string {
	switch s {
	case ThreeLanes:
		return "3-lane"
	case FourLanes:
		return "4-lane"
	default:
		return fmt.Sprintf("LaneScheme(%d)", int(s))
	}
}

// Lane is a named lateral position under one of the lane schemes.
type Lane interface {
	Scheme() LaneScheme
	// Offset is the lane centre in mm from the road centre. Negative is
	// left.
	Offset() float32
	String() string
}

// Lane3 is a lane in the three-lane scheme.
type Lane3 int

const (
	Left3 Lane3 = iota
	Middle3
	Right3
)

var lane3Offsets = [...]float32{-60, 0, 60}
var lane3Names = [...]string{"left", "middle", "right"}

func (l Lane3) Scheme() LaneScheme { return ThreeLanes }

// Valid reports whether l is one of Left3, Middle3 or Right3.
func (l Lane3) Valid() bool { return l >= Left3 && l <= Right3 }

// Offset returns 0 for an invalid lane.
func (l Lane3) Offset() float32 {
	if !l.Valid() {
		return 0
	}
	return lane3Offsets[l]
}

func (l Lane3) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Lane3(%d)", int(l))
	}
	return lane3Names[l]
}

// Lane4 is a lane in the four-lane scheme.
type Lane4 int

const (
	Left4 Lane4 = iota
	MidLeft4
	MidRight4
	Right4
)

var lane4Offsets = [...]float32{-68, -23, 23, 68}
var lane4Names = [...]string{"left", "mid-left", "mid-right", "right"}

func (l Lane4) Scheme() LaneScheme { return FourLanes }

// Valid reports whether l is one of the four named lanes.
func (l Lane4) Valid() bool { return l >= Left4 && l <= Right4 }

// Offset returns 0 for an invalid lane.
func (l Lane4) Offset() float32 {
	if !l.Valid() {
		return 0
	}
	return lane4Offsets[l]
}

func (l Lane4) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Lane4(%d)", int(l))
	}
	return lane4Names[l]
}

// Lane3At returns the three-lane lane whose centre is nearest to offset.
func Lane3At(offset float32) Lane3 {
	return Lane3(nearest(lane3Offsets[:], offset))
}

// Lane4At returns the four-lane lane whose centre is nearest to offset.
func Lane4At(offset float32) Lane4 {
	return Lane4(nearest(lane4Offsets[:], offset))
}

// LaneAt classifies offset under scheme. It returns false for an unknown
// scheme.
func LaneAt(scheme LaneScheme, offset float32) (Lane, bool) {
	switch scheme {
	case ThreeLanes:
		return Lane3At(offset), true
	case FourLanes:
		return Lane4At(offset), true
	default:
		return nil, false
	}
}

// validLane reports whether lane names a lane of its scheme. Lane types
// defined elsewhere are trusted.
func validLane(lane Lane) bool {
	switch l := lane.(type) {
	case nil:
		return false
	case Lane3:
		return l.Valid()
	case Lane4:
		return l.Valid()
	case interface{ Valid() bool }:
		return l.Valid()
	default:
		return true
	}
}

// nearest returns the index of the centre closest to offset. Ties go to
// the left lane.
func nearest(centres []float32, offset float32) int {
	best := 0
	bestDist := abs32(offset - centres[0])
	for i := 1; i < len(centres); i++ {
		if d := abs32(offset - centres[i]); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
