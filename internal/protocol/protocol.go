// Package protocol encodes and decodes the binary messages exchanged with a
// vehicle over its command/telemetry characteristic.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

/*
Vehicle message framing

Every message, in both directions, is a single frame:

	[size u8][id u8][payload ...]

size counts the id byte plus the payload, so a frame is always size+1 bytes
long. All multi-byte fields are little-endian; offsets are IEEE-754 float32
millimetres from the road centre (negative = left of the vehicle).

Host -> vehicle messages are commands. Vehicle -> host messages are
telemetry. Unknown ids decode to Raw so that newer firmware never breaks a
session.
*/

// Message ids.
const (
	MsgDisconnect       byte = 0x0d // host -> vehicle
	MsgPingRequest      byte = 0x16 // host -> vehicle
	MsgPingResponse     byte = 0x17 // vehicle -> host
	MsgVersionRequest   byte = 0x18 // host -> vehicle
	MsgVersionResponse  byte = 0x19 // vehicle -> host
	MsgBatteryRequest   byte = 0x1a // host -> vehicle
	MsgBatteryResponse  byte = 0x1b // vehicle -> host
	MsgSetLights        byte = 0x1d // host -> vehicle
	MsgSetSpeed         byte = 0x24 // host -> vehicle
	MsgChangeLane       byte = 0x25 // host -> vehicle
	MsgCancelLaneChange byte = 0x26 // host -> vehicle
	MsgPositionUpdate   byte = 0x27 // vehicle -> host
	MsgTransitionUpdate byte = 0x29 // vehicle -> host
	MsgDelocalized      byte = 0x2b // vehicle -> host
	MsgSetOffset        byte = 0x2c // host -> vehicle
	MsgOffsetUpdate     byte = 0x2d // vehicle -> host
	MsgSDKMode          byte = 0x90 // host -> vehicle
)

// SDKFlagOverrideLocalization lets the host steer the vehicle while it is
// delocalized.
const SDKFlagOverrideLocalization uint8 = 0x01

// Minimum payload sizes accepted by Unmarshal. Firmware may append fields.
const (
	positionUpdateMinPayload   = 9
	transitionUpdateMinPayload = 6
	offsetUpdateMinPayload     = 4
	setSpeedPayload            = 5
	changeLanePayload          = 10
	setOffsetPayload           = 4
	sdkModePayload             = 2
	versionPayload             = 2
	batteryPayload             = 2
	setLightsPayload           = 1
)

var (
	// ErrEmptyFrame is returned for a zero length frame.
	ErrEmptyFrame = errors.New("empty frame")
	// ErrShortFrame is returned when a frame is shorter than its size byte
	// claims or shorter than its message type requires.
	ErrShortFrame = errors.New("short frame")
)

// Message is one decoded vehicle message.
type Message interface {
	// ID returns the message id byte.
	ID() byte
	appendPayload(b []byte) []byte
}

// Disconnect asks the vehicle to drop the link.
type Disconnect struct{}

// PingRequest asks the vehicle to answer with a PingResponse.
type PingRequest struct{}

// PingResponse answers a PingRequest.
type PingResponse struct{}

// VersionRequest asks for the firmware version.
type VersionRequest struct{}

// VersionResponse carries the firmware version.
type VersionResponse struct {
	Version uint16
}

// BatteryRequest asks for the battery level.
type BatteryRequest struct{}

// BatteryResponse carries the battery level in millivolts.
type BatteryResponse struct {
	MilliVolts uint16
}

// SetLights switches the vehicle lights. The high nibble of Mask selects
// which lights change and the low nibble gives their new state.
type SetLights struct {
	Mask uint8
}

// SetSpeed ramps the vehicle to Speed mm/s at Acceleration mm/s².
type SetSpeed struct {
	Speed        int16
	Acceleration int16
	RespectLimit bool
}

// ChangeLane moves the vehicle laterally to Offset mm from the road centre.
type ChangeLane struct {
	HorizontalSpeed        uint16
	HorizontalAcceleration uint16
	Offset                 float32
	HopIntent              uint8
	Tag                    uint8
}

// CancelLaneChange aborts a lateral move in progress.
type CancelLaneChange struct{}

// SetOffset tells the vehicle where it currently is relative to the road
// centre. Lane changes are computed relative to this value.
type SetOffset struct {
	Offset float32
}

// SDKMode switches the vehicle into host-controlled mode.
type SDKMode struct {
	On    bool
	Flags uint8
}

// PositionUpdate is sent whenever the vehicle reads a location code.
type PositionUpdate struct {
	LocationID  uint8
	RoadPieceID uint8
	Offset      float32
	Speed       uint16
	Flags       uint8
}

// TransitionUpdate is sent when the vehicle crosses onto a new road piece.
type TransitionUpdate struct {
	RoadPieceID     uint8
	PrevRoadPieceID int8
	Offset          float32
}

// Delocalized reports that the vehicle lost the track.
type Delocalized struct{}

// OffsetUpdate reports the offset from the road centre after a lateral move.
type OffsetUpdate struct {
	Offset       float32
	LaneChangeID uint8
}

// Raw carries a message with an id this package does not know.
type Raw struct {
	MsgID   byte
	Payload []byte
}

func (Disconnect) ID() byte       { return MsgDisconnect }
func (PingRequest) ID() byte      { return MsgPingRequest }
func (PingResponse) ID() byte     { return MsgPingResponse }
func (VersionRequest) ID() byte   { return MsgVersionRequest }
func (VersionResponse) ID() byte  { return MsgVersionResponse }
func (BatteryRequest) ID() byte   { return MsgBatteryRequest }
func (BatteryResponse) ID() byte  { return MsgBatteryResponse }
func (SetLights) ID() byte        { return MsgSetLights }
func (SetSpeed) ID() byte         { return MsgSetSpeed }
func (ChangeLane) ID() byte       { return MsgChangeLane }
func (CancelLaneChange) ID() byte { return MsgCancelLaneChange }
func (SetOffset) ID() byte        { return MsgSetOffset }
func (SDKMode) ID() byte          { return MsgSDKMode }
func (PositionUpdate) ID() byte   { return MsgPositionUpdate }
func (TransitionUpdate) ID() byte { return MsgTransitionUpdate }
func (Delocalized) ID() byte      { return MsgDelocalized }
func (OffsetUpdate) ID() byte     { return MsgOffsetUpdate }
func (r Raw) ID() byte            { return r.MsgID }

func (Disconnect) appendPayload(b []byte) []byte       { return b }
func (PingRequest) appendPayload(b []byte) []byte      { return b }
func (PingResponse) appendPayload(b []byte) []byte     { return b }
func (VersionRequest) appendPayload(b []byte) []byte   { return b }
func (BatteryRequest) appendPayload(b []byte) []byte   { return b }
func (CancelLaneChange) appendPayload(b []byte) []byte { return b }
func (Delocalized) appendPayload(b []byte) []byte      { return b }
func (r Raw) appendPayload(b []byte) []byte            { return append(b, r.Payload...) }

func (m VersionResponse) appendPayload(b []byte) []byte {
	return binary.LittleEndian.AppendUint16(b, m.Version)
}

func (m BatteryResponse) appendPayload(b []byte) []byte {
	return binary.LittleEndian.AppendUint16(b, m.MilliVolts)
}

func (m SetLights) appendPayload(b []byte) []byte {
	return append(b, m.Mask)
}

func (m SetSpeed) appendPayload(b []byte) []byte {
	b = binary.LittleEndian.AppendUint16(b, uint16(m.Speed))
	b = binary.LittleEndian.AppendUint16(b, uint16(m.Acceleration))
	return append(b, boolByte(m.RespectLimit))
}

func (m ChangeLane) appendPayload(b []byte) []byte {
	b = binary.LittleEndian.AppendUint16(b, m.HorizontalSpeed)
	b = binary.LittleEndian.AppendUint16(b, m.HorizontalAcceleration)
	b = appendFloat32(b, m.Offset)
	return append(b, m.HopIntent, m.Tag)
}

func (m SetOffset) appendPayload(b []byte) []byte {
	return appendFloat32(b, m.Offset)
}

func (m SDKMode) appendPayload(b []byte) []byte {
	return append(b, boolByte(m.On), m.Flags)
}

func (m PositionUpdate) appendPayload(b []byte) []byte {
	b = append(b, m.LocationID, m.RoadPieceID)
	b = appendFloat32(b, m.Offset)
	b = binary.LittleEndian.AppendUint16(b, m.Speed)
	b = append(b, m.Flags)
	// lane change ids and desired speeds; unused by the host
	return append(b, 0, 0, 0, 0, 0, 0)
}

func (m TransitionUpdate) appendPayload(b []byte) []byte {
	b = append(b, m.RoadPieceID, byte(m.PrevRoadPieceID))
	b = appendFloat32(b, m.Offset)
	// lane change ids, desired speeds, slope and wheel distance counters
	return append(b, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0)
}

func (m OffsetUpdate) appendPayload(b []byte) []byte {
	b = appendFloat32(b, m.Offset)
	return append(b, m.LaneChangeID)
}

// Marshal encodes m into a complete frame.
func Marshal(m Message) []byte {
	b := make([]byte, 2, 20)
	b[1] = m.ID()
	b = m.appendPayload(b)
	b[0] = byte(len(b) - 1)
	return b
}

// Unmarshal decodes one complete frame. Trailing bytes beyond the size byte
// are ignored.
func Unmarshal(frame []byte) (Message, error) {
	if len(frame) == 0 {
		return nil, ErrEmptyFrame
	}
	size := int(frame[0])
	if size < 1 || len(frame) < size+1 {
		return nil, fmt.Errorf("%w: size byte %d, have %d bytes", ErrShortFrame, size, len(frame))
	}
	id := frame[1]
	p := frame[2 : size+1]

	need := func(n int) error {
		if len(p) < n {
			return fmt.Errorf("%w: message 0x%02x needs %d payload bytes, have %d", ErrShortFrame, id, n, len(p))
		}
		return nil
	}

	switch id {
	case MsgDisconnect:
		return Disconnect{}, nil
	case MsgPingRequest:
		return PingRequest{}, nil
	case MsgPingResponse:
		return PingResponse{}, nil
	case MsgVersionRequest:
		return VersionRequest{}, nil
	case MsgBatteryRequest:
		return BatteryRequest{}, nil
	case MsgCancelLaneChange:
		return CancelLaneChange{}, nil
	case MsgDelocalized:
		return Delocalized{}, nil
	case MsgVersionResponse:
		if err := need(versionPayload); err != nil {
			return nil, err
		}
		return VersionResponse{Version: binary.LittleEndian.Uint16(p)}, nil
	case MsgBatteryResponse:
		if err := need(batteryPayload); err != nil {
			return nil, err
		}
		return BatteryResponse{MilliVolts: binary.LittleEndian.Uint16(p)}, nil
	case MsgSetLights:
		if err := need(setLightsPayload); err != nil {
			return nil, err
		}
		return SetLights{Mask: p[0]}, nil
	case MsgSetSpeed:
		if err := need(setSpeedPayload); err != nil {
			return nil, err
		}
		return SetSpeed{
			Speed:        int16(binary.LittleEndian.Uint16(p[0:])),
			Acceleration: int16(binary.LittleEndian.Uint16(p[2:])),
			RespectLimit: p[4] != 0,
		}, nil
	case MsgChangeLane:
		if err := need(changeLanePayload); err != nil {
			return nil, err
		}
		return ChangeLane{
			HorizontalSpeed:        binary.LittleEndian.Uint16(p[0:]),
			HorizontalAcceleration: binary.LittleEndian.Uint16(p[2:]),
			Offset:                 readFloat32(p[4:]),
			HopIntent:              p[8],
			Tag:                    p[9],
		}, nil
	case MsgSetOffset:
		if err := need(setOffsetPayload); err != nil {
			return nil, err
		}
		return SetOffset{Offset: readFloat32(p)}, nil
	case MsgSDKMode:
		if err := need(sdkModePayload); err != nil {
			return nil, err
		}
		return SDKMode{On: p[0] != 0, Flags: p[1]}, nil
	case MsgPositionUpdate:
		if err := need(positionUpdateMinPayload); err != nil {
			return nil, err
		}
		return PositionUpdate{
			LocationID:  p[0],
			RoadPieceID: p[1],
			Offset:      readFloat32(p[2:]),
			Speed:       binary.LittleEndian.Uint16(p[6:]),
			Flags:       p[8],
		}, nil
	case MsgTransitionUpdate:
		if err := need(transitionUpdateMinPayload); err != nil {
			return nil, err
		}
		return TransitionUpdate{
			RoadPieceID:     p[0],
			PrevRoadPieceID: int8(p[1]),
			Offset:          readFloat32(p[2:]),
		}, nil
	case MsgOffsetUpdate:
		if err := need(offsetUpdateMinPayload); err != nil {
			return nil, err
		}
		m := OffsetUpdate{Offset: readFloat32(p)}
		if len(p) > 4 {
			m.LaneChangeID = p[4]
		}
		return m, nil
	default:
		payload := make([]byte, len(p))
		copy(payload, p)
		return Raw{MsgID: id, Payload: payload}, nil
	}
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

func appendFloat32(b []byte, f float32) []byte {
	return binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
}

func readFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
