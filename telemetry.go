package procdrive

import (
	"time"

	"github.com/banshee-data/procdrive/internal/bridge"
	"github.com/banshee-data/procdrive/internal/monitoring"
	"github.com/banshee-data/procdrive/internal/protocol"
	"github.com/banshee-data/procdrive/internal/track"
)

// Sample kinds passed to a Recorder.
const (
	SamplePosition    = "position"
	SampleTransition  = "transition"
	SampleOffset      = "offset"
	SampleDelocalized = "delocalized"
	SampleBattery     = "battery"
)

// Sample is one telemetry update.
type Sample struct {
	Time time.Time
	Kind string
	// RoadPieceID is -1 when the update carries no piece.
	RoadPieceID int
	// PieceIndex is the position on the recorded map, or -1.
	PieceIndex int
	Offset     float32
	Speed      int
	MilliVolts int
}

// Recorder receives every telemetry sample and every command sent to the
// vehicle. Calls come from the session's goroutines and must not block
// for long.
type Recorder interface {
	RecordSample(Sample) error
	RecordCommand(at time.Time, line string) error
}

// telemetry is the cached vehicle state.
type telemetry struct {
	speed       int
	offset      float32
	hasOffset   bool
	battery     int
	hasBattery  bool
	firmware    uint16
	hasFirmware bool
	localized   bool

	piece *TrackPiece
	// roadPieceID is the piece id of the last position update.
	roadPieceID  uint8
	hasRoadPiece bool
	pendingEntry bool
	mapRecorder  track.Recorder
	locator      *track.Locator
	pieces       []*TrackPiece
}

func (s *Session) readTelemetry(lines <-chan string) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.done:
			return
		case raw, ok := <-lines:
			if !ok {
				return
			}
			s.handleLine(raw)
		}
	}
}

func (s *Session) handleLine(raw string) {
	l, err := bridge.Parse(raw)
	if err != nil {
		monitoring.Debugf("procdrive: skipping bridge line %q: %v", raw, err)
		return
	}

	switch l.Kind {
	case bridge.KindReceive:
		m, err := l.Message()
		if err != nil {
			monitoring.Logf("procdrive: bad frame from vehicle %d: %v", s.vehicleID, err)
			return
		}
		s.apply(m)
	case bridge.KindError:
		if l.VehicleID == s.vehicleID {
			monitoring.Logf("procdrive: bridge lost vehicle %d: %s", s.vehicleID, l.Reason)
			s.markDone()
		}
	default:
		monitoring.Debugf("procdrive: ignoring %s line", l.Kind)
	}
}

// apply updates the cached state from one vehicle message.
func (s *Session) apply(m protocol.Message) {
	sample := Sample{Time: s.opts.clock.Now(), RoadPieceID: -1, PieceIndex: -1}

	s.mu.Lock()
	st := &s.state
	switch m := m.(type) {
	case protocol.PositionUpdate:
		st.speed = int(m.Speed)
		st.offset, st.hasOffset = m.Offset, true
		st.localized = true
		if !st.hasRoadPiece || st.pendingEntry || m.RoadPieceID != st.roadPieceID {
			s.enterPieceLocked(m.RoadPieceID)
		}
		st.pendingEntry = false
		st.roadPieceID, st.hasRoadPiece = m.RoadPieceID, true

		sample.Kind = SamplePosition
		sample.RoadPieceID = int(m.RoadPieceID)
		sample.Speed = st.speed
		sample.Offset = m.Offset
	case protocol.TransitionUpdate:
		st.offset, st.hasOffset = m.Offset, true
		st.pendingEntry = true

		sample.Kind = SampleTransition
		sample.RoadPieceID = int(m.RoadPieceID)
		sample.Speed = st.speed
		sample.Offset = m.Offset
	case protocol.OffsetUpdate:
		st.offset, st.hasOffset = m.Offset, true

		sample.Kind = SampleOffset
		sample.Speed = st.speed
		sample.Offset = m.Offset
	case protocol.Delocalized:
		st.localized = false
		monitoring.Logf("procdrive: vehicle %d delocalized", s.vehicleID)

		sample.Kind = SampleDelocalized
	case protocol.BatteryResponse:
		st.battery, st.hasBattery = int(m.MilliVolts), true

		sample.Kind = SampleBattery
		sample.MilliVolts = st.battery
	case protocol.VersionResponse:
		st.firmware, st.hasFirmware = m.Version, true
		monitoring.Logf("procdrive: vehicle %d firmware %#04x", s.vehicleID, m.Version)
	case protocol.PingResponse:
		close(s.pong)
		s.pong = make(chan struct{})
	default:
		monitoring.Debugf("procdrive: unhandled message %#02x from vehicle %d", m.ID(), s.vehicleID)
	}
	if st.piece != nil {
		sample.PieceIndex = st.piece.Index
	}
	s.mu.Unlock()

	if sample.Kind != "" && s.opts.recorder != nil {
		if err := s.opts.recorder.RecordSample(sample); err != nil {
			monitoring.Logf("procdrive: record sample: %v", err)
		}
	}
}

// enterPieceLocked moves the session onto a new road piece and wakes
// every waiter. s.mu must be held.
func (s *Session) enterPieceLocked(roadPieceID uint8) {
	st := &s.state
	switch {
	case st.pieces == nil:
		if st.mapRecorder.Observe(roadPieceID) {
			st.pieces = st.mapRecorder.Map()
			st.locator = track.NewLocator(st.pieces)
			st.piece = st.locator.Current()
			monitoring.Logf("procdrive: recorded track map with %d pieces", len(st.pieces))
		} else {
			st.piece = track.NewUnmappedPiece(roadPieceID)
		}
	default:
		p, resynced := st.locator.Advance(roadPieceID)
		if p == nil {
			monitoring.Logf("procdrive: road piece %d is not on the recorded map", roadPieceID)
			st.piece = track.NewUnmappedPiece(roadPieceID)
			break
		}
		if resynced {
			monitoring.Logf("procdrive: resynced to map piece %s", p)
		}
		st.piece = p
	}

	close(s.changed)
	s.changed = make(chan struct{})
}
