package procdrive

import (
	"fmt"
	"math"

	"github.com/banshee-data/procdrive/internal/bridge"
	"github.com/banshee-data/procdrive/internal/monitoring"
	"github.com/banshee-data/procdrive/internal/protocol"
)

// SetSpeed asks the vehicle to ramp to speed mm/s at acceleration mm/s².
// It returns once the command is queued. Speeds below about 100 mm/s are
// accepted but the vehicle may stall at them.
func (s *Session) SetSpeed(speed, acceleration int) error {
	return s.send(protocol.SetSpeed{
		Speed:        clampInt16(speed),
		Acceleration: clampInt16(acceleration),
	})
}

// Stop brakes to a halt at StopAcceleration.
func (s *Session) Stop() error {
	return s.SetSpeed(0, StopAcceleration)
}

// ChangeLane moves the vehicle to the centre of lane. It returns
// ErrInvalidLane for a nil lane or one outside its scheme.
func (s *Session) ChangeLane(lane Lane, horizontalSpeed, horizontalAcceleration int) error {
	if !validLane(lane) {
		return fmt.Errorf("%w: %v", ErrInvalidLane, lane)
	}
	return s.ChangePosition(lane.Offset(), horizontalSpeed, horizontalAcceleration)
}

// ChangePosition moves the vehicle to offset mm from the road centre.
// Negative offsets are left of centre in the direction of travel.
func (s *Session) ChangePosition(offset float32, horizontalSpeed, horizontalAcceleration int) error {
	s.mu.Lock()
	current, known := s.state.offset, s.state.hasOffset
	s.laneTag++
	tag := s.laneTag
	s.mu.Unlock()

	// The vehicle computes lane changes relative to where it believes it
	// is, so anchor it to the last reported offset first.
	if known {
		if err := s.send(protocol.SetOffset{Offset: current}); err != nil {
			return err
		}
	}
	return s.send(protocol.ChangeLane{
		HorizontalSpeed:        clampUint16(horizontalSpeed),
		HorizontalAcceleration: clampUint16(horizontalAcceleration),
		Offset:                 offset,
		Tag:                    tag,
	})
}

// CancelLaneChange stops a lateral move in progress.
func (s *Session) CancelLaneChange() error {
	return s.send(protocol.CancelLaneChange{})
}

// Vehicle lights for SetLights.
const (
	LightHead  uint8 = 0
	LightBrake uint8 = 1
	LightFront uint8 = 2
	LightTail  uint8 = 3
)

// SetLights turns one light on or off.
func (s *Session) SetLights(light uint8, on bool) error {
	if light > LightTail {
		return fmt.Errorf("%w: %d", ErrInvalidLight, light)
	}
	mask := uint8(1) << (light + 4)
	if on {
		mask |= 1 << light
	}
	return s.send(protocol.SetLights{Mask: mask})
}

// RequestBattery asks the vehicle to report its battery level. The answer
// arrives asynchronously and is returned by Battery.
func (s *Session) RequestBattery() error {
	return s.send(protocol.BatteryRequest{})
}

// send queues m for the writer goroutine.
func (s *Session) send(m protocol.Message) error {
	if s.isDone() {
		return ErrClosed
	}
	select {
	case s.commands <- bridge.Transmit(m):
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *Session) writeCommands() {
	defer close(s.writerDone)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.done:
			return
		case line := <-s.commands:
			if err := s.link.SendCommand(line); err != nil {
				monitoring.Logf("procdrive: send %q: %v", line, err)
				continue
			}
			monitoring.Debugf("procdrive: sent %s", line)
			if s.opts.recorder != nil {
				if err := s.opts.recorder.RecordCommand(s.opts.clock.Now(), line); err != nil {
					monitoring.Logf("procdrive: record command: %v", err)
				}
			}
		}
	}
}

func clampInt16(v int) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	default:
		return int16(v)
	}
}

func clampUint16(v int) uint16 {
	switch {
	case v > math.MaxUint16:
		return math.MaxUint16
	case v < 0:
		return 0
	default:
		return uint16(v)
	}
}
