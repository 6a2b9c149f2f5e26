package procdrive

import "github.com/banshee-data/procdrive/internal/track"

// TrackPiece is one segment of the track. Pieces on a recorded map are
// shared: the piece returned by WaitForTrackChange is the same pointer as
// the corresponding element of Map.
type TrackPiece = track.Piece

// PieceType classifies a track piece.
type PieceType = track.Type

const (
	PieceUnknown      = track.Unknown
	PieceStart        = track.Start
	PieceFinish       = track.Finish
	PieceStraight     = track.Straight
	PieceCurve        = track.Curve
	PieceIntersection = track.Intersection
)
