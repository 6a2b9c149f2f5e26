// Package track models the road pieces a vehicle reports and records the
// order in which it drives over them.
package track

import "fmt"

// Type is the kind of a road piece.
type Type int

const (
	Unknown Type = iota
	Start
	Finish
	Straight
	Curve
	Intersection
)

func (t Type) String() string {
	switch t {
	case Start:
		return "start"
	case Finish:
		return "finish"
	case Straight:
		return "straight"
	case Curve:
		return "curve"
	case Intersection:
		return "intersection"
	default:
		return "unknown"
	}
}

// Road piece ids as reported by the vehicle.
const (
	RoadPieceStart        uint8 = 33
	RoadPieceFinish       uint8 = 34
	RoadPieceIntersection uint8 = 10
)

var pieceTypes = map[uint8]Type{
	RoadPieceStart:        Start,
	RoadPieceFinish:       Finish,
	RoadPieceIntersection: Intersection,
	36:                    Straight,
	39:                    Straight,
	40:                    Straight,
	48:                    Straight,
	51:                    Straight,
	17:                    Curve,
	18:                    Curve,
	20:                    Curve,
	23:                    Curve,
	24:                    Curve,
	27:                    Curve,
}

// TypeOf returns the piece type for a road piece id.
func TypeOf(roadPieceID uint8) Type {
	if t, ok := pieceTypes[roadPieceID]; ok {
		return t
	}
	return Unknown
}

// Piece is one segment of track. Pieces belonging to a recorded map are
// shared, so two *Piece values for the same map position are identical.
type Piece struct {
	// Index is the position in the recorded map, or -1 when the piece was
	// observed before a map existed.
	Index       int
	RoadPieceID uint8
	Type        Type
}

// NewUnmappedPiece returns a piece observed before a map was recorded.
func NewUnmappedPiece(roadPieceID uint8) *Piece {
	return &Piece{Index: -1, RoadPieceID: roadPieceID, Type: TypeOf(roadPieceID)}
}

func (p *Piece) String() string {
	if p == nil {
		return "<none>"
	}
	if p.Index < 0 {
		return fmt.Sprintf("%s(%d)", p.Type, p.RoadPieceID)
	}
	return fmt.Sprintf("#%d %s(%d)", p.Index, p.Type, p.RoadPieceID)
}
