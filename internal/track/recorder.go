package track

// MaxLapPieces bounds a recording. A vehicle that drives this many pieces
// without passing the start piece again is assumed to have missed it, and
// the recording restarts.
const MaxLapPieces = 256

// Recorder builds a map from the pieces a vehicle enters, starting at the
// first start piece and finishing when the vehicle reaches a start piece
// again.
type Recorder struct {
	recording bool
	ids       []uint8
	lap       []*Piece
}

// Observe records that the vehicle entered the given road piece. It
// reports true exactly once, on the observation that completes the lap.
func (r *Recorder) Observe(roadPieceID uint8) bool {
	if r.lap != nil {
		return false
	}

	isStart := TypeOf(roadPieceID) == Start
	if !r.recording {
		if isStart {
			r.recording = true
			r.ids = append(r.ids[:0], roadPieceID)
		}
		return false
	}

	if isStart {
		r.lap = make([]*Piece, len(r.ids))
		for i, id := range r.ids {
			r.lap[i] = &Piece{Index: i, RoadPieceID: id, Type: TypeOf(id)}
		}
		r.recording = false
		r.ids = nil
		return true
	}

	if len(r.ids) >= MaxLapPieces {
		r.recording = false
		r.ids = r.ids[:0]
		return false
	}
	r.ids = append(r.ids, roadPieceID)
	return false
}

// Recording reports whether a lap is in progress.
func (r *Recorder) Recording() bool { return r.recording }

// Map returns the recorded lap, or nil if no lap has completed.
func (r *Recorder) Map() []*Piece { return r.lap }

// Locator follows a vehicle around a recorded map.
type Locator struct {
	pieces []*Piece
	index  int
}

// NewLocator returns a Locator positioned on the first piece of m. A
// recording always completes on the start piece, which is m[0].
func NewLocator(m []*Piece) *Locator {
	return &Locator{pieces: m}
}

// Current returns the piece the vehicle is on.
func (l *Locator) Current() *Piece {
	if len(l.pieces) == 0 {
		return nil
	}
	return l.pieces[l.index]
}

// Advance moves to the piece the vehicle entered. Normally that is the
// next piece in the map; when the reported id disagrees (a missed
// transition) the locator searches forward for the next piece with that
// id and reports resynced. It returns nil if the id is not on the map.
func (l *Locator) Advance(roadPieceID uint8) (p *Piece, resynced bool) {
	n := len(l.pieces)
	if n == 0 {
		return nil, false
	}
	for step := 1; step <= n; step++ {
		i := (l.index + step) % n
		if l.pieces[i].RoadPieceID == roadPieceID {
			l.index = i
			return l.pieces[i], step > 1
		}
	}
	return nil, false
}
