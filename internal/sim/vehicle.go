package sim

import (
	"math"

	"github.com/banshee-data/procdrive/internal/protocol"
)

// vehicle is the kinematic model of one car. It is not safe for
// concurrent use; Simulator serializes access.
type vehicle struct {
	pieces []uint8
	index  int
	// travelled is the distance covered on the current piece in mm.
	travelled float64

	speed        float64
	targetSpeed  float64
	acceleration float64

	offset       float64
	targetOffset float64
	lateralSpeed float64
	laneChangeID uint8
	moving       bool

	locationID uint8
}

func newVehicle(l Layout) *vehicle {
	return &vehicle{
		pieces: l.Pieces,
		index:  *l.StartIndex,
	}
}

func (v *vehicle) roadPieceID() uint8 { return v.pieces[v.index] }

// apply handles a host command and returns any immediate reply.
func (v *vehicle) apply(m protocol.Message, l Layout) protocol.Message {
	switch m := m.(type) {
	case protocol.SetSpeed:
		v.targetSpeed = math.Max(0, float64(m.Speed))
		v.acceleration = float64(m.Acceleration)
	case protocol.ChangeLane:
		v.targetOffset = float64(m.Offset)
		v.lateralSpeed = float64(m.HorizontalSpeed)
		v.laneChangeID = m.Tag
		v.moving = true
	case protocol.CancelLaneChange:
		v.targetOffset = v.offset
		v.moving = false
	case protocol.SetOffset:
		// The model always knows its true offset.
	case protocol.PingRequest:
		return protocol.PingResponse{}
	case protocol.BatteryRequest:
		return protocol.BatteryResponse{MilliVolts: l.Battery}
	case protocol.VersionRequest:
		return protocol.VersionResponse{Version: l.Firmware}
	case protocol.Disconnect:
		v.targetSpeed = 0
		v.speed = 0
	}
	return nil
}

// step advances the model by dt seconds of simulated time and returns the
// telemetry the vehicle would emit.
func (v *vehicle) step(dt float64) []protocol.Message {
	v.speed = approach(v.speed, v.targetSpeed, v.acceleration*dt)

	var out []protocol.Message
	if v.moving {
		v.offset = approach(v.offset, v.targetOffset, v.lateralSpeed*dt)
		if v.offset == v.targetOffset {
			v.moving = false
			out = append(out, protocol.OffsetUpdate{Offset: float32(v.offset), LaneChangeID: v.laneChangeID})
		}
	}

	if v.speed <= 0 {
		return out
	}

	v.travelled += v.speed * dt
	for v.travelled >= pieceLength(v.roadPieceID()) {
		v.travelled -= pieceLength(v.roadPieceID())
		prev := v.roadPieceID()
		v.index = (v.index + 1) % len(v.pieces)
		v.locationID = 0
		out = append(out,
			protocol.TransitionUpdate{RoadPieceID: v.roadPieceID(), PrevRoadPieceID: int8(prev), Offset: float32(v.offset)},
			v.position(),
		)
	}
	out = append(out, v.position())
	return out
}

func (v *vehicle) position() protocol.PositionUpdate {
	v.locationID++
	return protocol.PositionUpdate{
		LocationID:  v.locationID,
		RoadPieceID: v.roadPieceID(),
		Offset:      float32(v.offset),
		Speed:       uint16(math.Round(v.speed)),
	}
}

// approach moves cur toward target by at most delta. A non-positive delta
// jumps straight to the target.
func approach(cur, target, delta float64) float64 {
	if delta <= 0 {
		return target
	}
	switch {
	case cur < target:
		return math.Min(target, cur+delta)
	case cur > target:
		return math.Max(target, cur-delta)
	default:
		return cur
	}
}
