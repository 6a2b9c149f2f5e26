package procdrive

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/banshee-data/procdrive/internal/bridge"
	"github.com/banshee-data/procdrive/internal/monitoring"
	"github.com/banshee-data/procdrive/internal/protocol"
)

// Session is a live connection to one vehicle. All methods are safe for
// concurrent use.
type Session struct {
	link      Link
	opts      options
	vehicleID int
	address   string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	subID  string

	commands   chan string
	writerDone chan struct{}

	// mu guards state and the wake channels. Only the telemetry loop
	// writes state.
	mu      sync.RWMutex
	state   telemetry
	changed chan struct{}
	pong    chan struct{}
	laneTag uint8

	done      chan struct{}
	doneOnce  sync.Once
	closeOnce sync.Once
	closeErr  error
}

// Connect discovers a vehicle on link, connects to it and switches it
// into host-controlled mode. Failures are *ConnectionError values that
// match ErrConnection.
//
// On failure the link is closed.
func Connect(ctx context.Context, link Link, opts ...Option) (*Session, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		link:       link,
		opts:       o,
		ctx:        sctx,
		cancel:     cancel,
		commands:   make(chan string, o.commandQueue),
		writerDone: make(chan struct{}),
		changed:    make(chan struct{}),
		pong:       make(chan struct{}),
		done:       make(chan struct{}),
	}

	subID, lines := link.Subscribe()
	s.subID = subID

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := link.Monitor(sctx); err != nil && !errors.Is(err, context.Canceled) {
			monitoring.Logf("procdrive: bridge link: %v", err)
		}
		s.markDone()
	}()

	fail := func(err error) (*Session, error) {
		cancel()
		link.Close()
		s.wg.Wait()
		return nil, err
	}

	if err := s.handshake(ctx, lines); err != nil {
		return fail(err)
	}
	for _, m := range []protocol.Message{
		protocol.SDKMode{On: true, Flags: protocol.SDKFlagOverrideLocalization},
		protocol.VersionRequest{},
		protocol.BatteryRequest{},
	} {
		if err := link.SendCommand(bridge.Transmit(m)); err != nil {
			return fail(&ConnectionError{VehicleID: s.vehicleID, Stage: "connect", Err: err})
		}
	}
	monitoring.Logf("procdrive: connected to vehicle %d (%s)", s.vehicleID, s.address)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.readTelemetry(lines)
	}()
	go func() {
		defer s.wg.Done()
		s.writeCommands()
	}()
	return s, nil
}

func (s *Session) handshake(ctx context.Context, lines <-chan string) error {
	want := s.opts.vehicleID

	dctx, cancel := context.WithTimeout(ctx, s.opts.discoveryTimeout)
	defer cancel()
	if err := s.link.SendCommand(bridge.Scan()); err != nil {
		return &ConnectionError{VehicleID: want, Stage: "discover", Err: err}
	}
	adv, err := awaitLine(dctx, lines, func(l bridge.Line) (bool, error) {
		return l.Kind == bridge.KindAdvertise && (want == 0 || l.VehicleID == want), nil
	})
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			err = ErrNoVehicle
		}
		return &ConnectionError{VehicleID: want, Stage: "discover", Err: err}
	}
	s.vehicleID = adv.VehicleID
	s.address = adv.Address

	cctx, cancel := context.WithTimeout(ctx, s.opts.connectTimeout)
	defer cancel()
	if err := s.link.SendCommand(bridge.Connect(s.vehicleID)); err != nil {
		return &ConnectionError{VehicleID: s.vehicleID, Stage: "connect", Err: err}
	}
	_, err = awaitLine(cctx, lines, func(l bridge.Line) (bool, error) {
		if l.VehicleID != s.vehicleID {
			return false, nil
		}
		switch l.Kind {
		case bridge.KindConnected:
			return true, nil
		case bridge.KindError:
			return false, fmt.Errorf("%w: %s", ErrRejected, l.Reason)
		}
		return false, nil
	})
	if err != nil {
		return &ConnectionError{VehicleID: s.vehicleID, Stage: "connect", Err: err}
	}
	return nil
}

// awaitLine reads bridge lines until match accepts one or returns an
// error.
func awaitLine(ctx context.Context, lines <-chan string, match func(bridge.Line) (bool, error)) (bridge.Line, error) {
	for {
		select {
		case <-ctx.Done():
			return bridge.Line{}, ctx.Err()
		case raw, ok := <-lines:
			if !ok {
				return bridge.Line{}, ErrClosed
			}
			l, err := bridge.Parse(raw)
			if err != nil {
				monitoring.Debugf("procdrive: skipping bridge line %q: %v", raw, err)
				continue
			}
			done, err := match(l)
			if err != nil {
				return l, err
			}
			if done {
				return l, nil
			}
		}
	}
}

// Close disconnects the vehicle and closes the link. It is safe to call
// more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.markDone()
		<-s.writerDone

		// Flush what was queued, then say goodbye. All of it is best
		// effort: the link may already be gone.
	drain:
		for {
			select {
			case line := <-s.commands:
				_ = s.link.SendCommand(line)
			default:
				break drain
			}
		}
		_ = s.link.SendCommand(bridge.Transmit(protocol.Disconnect{}))
		_ = s.link.SendCommand(bridge.Disconnect())

		s.cancel()
		s.link.Unsubscribe(s.subID)
		s.closeErr = s.link.Close()
		s.wg.Wait()
		monitoring.Logf("procdrive: session for vehicle %d closed", s.vehicleID)
	})
	return s.closeErr
}

// Done is closed when the session ends, either through Close or because
// the bridge link was lost.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) markDone() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *Session) isDone() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// VehicleID returns the bridge id of the connected vehicle.
func (s *Session) VehicleID() int { return s.vehicleID }

// Address returns the vehicle's advertised radio address.
func (s *Session) Address() string { return s.address }

// CurrentTrackPiece returns the piece the vehicle is on, or nil before the
// first position update.
func (s *Session) CurrentTrackPiece() *TrackPiece {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.piece
}

// Map returns the recorded track, or nil until a full lap was driven.
func (s *Session) Map() []*TrackPiece {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.pieces == nil {
		return nil
	}
	return append([]*TrackPiece(nil), s.state.pieces...)
}

// RoadOffset returns the last reported offset from the road centre in mm.
func (s *Session) RoadOffset() (float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.offset, s.state.hasOffset
}

// Speed returns the last reported speed in mm/s, 0 before telemetry.
func (s *Session) Speed() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.speed
}

// CurrentLane3 returns the three-lane lane the vehicle is in.
func (s *Session) CurrentLane3() (Lane3, bool) {
	off, ok := s.RoadOffset()
	if !ok {
		return 0, false
	}
	return Lane3At(off), true
}

// CurrentLane4 returns the four-lane lane the vehicle is in.
func (s *Session) CurrentLane4() (Lane4, bool) {
	off, ok := s.RoadOffset()
	if !ok {
		return 0, false
	}
	return Lane4At(off), true
}

// GetLane returns the lane under scheme, or false when the offset is not
// known yet or the scheme is unknown.
func (s *Session) GetLane(scheme LaneScheme) (Lane, bool) {
	off, ok := s.RoadOffset()
	if !ok {
		return nil, false
	}
	return LaneAt(scheme, off)
}

// Battery returns the last reported battery level in millivolts.
func (s *Session) Battery() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.battery, s.state.hasBattery
}

// FirmwareVersion returns the vehicle firmware version.
func (s *Session) FirmwareVersion() (uint16, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.firmware, s.state.hasFirmware
}

// Localized reports whether the vehicle currently reads the track. It is
// false before the first position update and after a delocalization.
func (s *Session) Localized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.localized
}
