// Package sim simulates a vehicle bridge with one car on a closed track.
// It speaks the bridge line protocol on the device end of a port, so a
// session cannot tell it apart from a BLE dongle.
package sim

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/banshee-data/procdrive/internal/bridge"
	"github.com/banshee-data/procdrive/internal/monitoring"
	"github.com/banshee-data/procdrive/internal/protocol"
	"github.com/banshee-data/procdrive/internal/serialmux"
	"github.com/banshee-data/procdrive/internal/timeutil"
)

// State is a snapshot of the simulated vehicle.
type State struct {
	Connected    bool
	PieceIndex   int
	RoadPieceID  uint8
	Speed        float64
	TargetSpeed  float64
	Offset       float64
	TargetOffset float64
	// Received counts frames the vehicle accepted from the host.
	Received int
}

// Simulator drives one vehicle behind the device end of a port.
type Simulator struct {
	layout Layout
	port   serialmux.SerialPorter
	clock  timeutil.Clock

	mu        sync.Mutex
	v         *vehicle
	connected bool
	received  []protocol.Message

	writeMu sync.Mutex
}

// New returns a simulator for the layout. The layout must be normalized.
func New(layout Layout, port serialmux.SerialPorter, clock timeutil.Clock) *Simulator {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Simulator{
		layout: layout,
		port:   port,
		clock:  clock,
		v:      newVehicle(layout),
	}
}

// Run serves the bridge protocol until ctx is cancelled or the port
// reaches EOF.
func (s *Simulator) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.tick(ctx)
	}()
	go func() {
		<-ctx.Done()
		s.port.Close()
	}()

	err := s.read()
	stopped := ctx.Err() != nil
	cancel()
	wg.Wait()
	if stopped || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) ||
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return nil
	}
	return err
}

func (s *Simulator) read() error {
	scanner := bufio.NewScanner(s.port)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := s.handle(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}

func (s *Simulator) handle(raw string) error {
	l, err := bridge.Parse(raw)
	if err != nil {
		monitoring.Debugf("sim: ignoring malformed line %q: %v", raw, err)
		return nil
	}

	switch l.Kind {
	case bridge.KindScan:
		return s.send(bridge.Advertise(s.layout.VehicleID, s.layout.Address))
	case bridge.KindConnect:
		if l.VehicleID != s.layout.VehicleID {
			return s.send(bridge.Error(l.VehicleID, "unknown vehicle"))
		}
		if s.layout.Reject != "" {
			return s.send(bridge.Error(l.VehicleID, s.layout.Reject))
		}
		s.mu.Lock()
		s.connected = true
		s.mu.Unlock()
		return s.send(bridge.Connected(l.VehicleID))
	case bridge.KindDisconnect:
		s.mu.Lock()
		s.connected = false
		s.v.apply(protocol.Disconnect{}, s.layout)
		s.mu.Unlock()
		return nil
	case bridge.KindTransmit:
		m, err := l.Message()
		if err != nil {
			monitoring.Debugf("sim: bad frame %x: %v", l.Frame, err)
			return nil
		}
		s.mu.Lock()
		if !s.connected {
			s.mu.Unlock()
			return nil
		}
		s.received = append(s.received, m)
		reply := s.v.apply(m, s.layout)
		s.mu.Unlock()
		if reply != nil {
			return s.send(bridge.Receive(reply))
		}
		return nil
	default:
		monitoring.Debugf("sim: unhandled %s line", l.Kind)
		return nil
	}
}

func (s *Simulator) tick(ctx context.Context) {
	ticker := s.clock.NewTicker(s.layout.Tick)
	defer ticker.Stop()
	dt := s.layout.Tick.Seconds() * s.layout.Speedup

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
		}

		s.mu.Lock()
		var out []protocol.Message
		if s.connected {
			out = s.v.step(dt)
		}
		s.mu.Unlock()

		for _, m := range out {
			if err := s.send(bridge.Receive(m)); err != nil {
				return
			}
		}
	}
}

func (s *Simulator) send(line string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := io.WriteString(s.port, line+"\n"); err != nil {
		return fmt.Errorf("sim write: %w", err)
	}
	return nil
}

// State returns a snapshot of the vehicle.
func (s *Simulator) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Connected:    s.connected,
		PieceIndex:   s.v.index,
		RoadPieceID:  s.v.roadPieceID(),
		Speed:        s.v.speed,
		TargetSpeed:  s.v.targetSpeed,
		Offset:       s.v.offset,
		TargetOffset: s.v.targetOffset,
		Received:     len(s.received),
	}
}

// Received returns the frames the vehicle accepted, oldest first.
func (s *Simulator) Received() []protocol.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.Message(nil), s.received...)
}

// NewLink starts a simulator behind an in-memory pipe and returns the host
// side as a SerialMux. The simulator stops when ctx is cancelled or the
// mux is closed.
func NewLink(ctx context.Context, layout Layout) (*serialmux.SerialMux[*serialmux.PipePort], *Simulator) {
	mux, device := serialmux.NewPipeSerialMux()
	s := New(layout, device, nil)
	go func() {
		if err := s.Run(ctx); err != nil {
			monitoring.Logf("sim: %v", err)
		}
	}()
	return mux, s
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler serves a fresh simulator on every websocket connection.
func Handler(layout Layout) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			monitoring.Logf("sim: websocket upgrade from %s: %v", r.RemoteAddr, err)
			return
		}
		monitoring.Logf("sim: bridge client %s connected", r.RemoteAddr)
		s := New(layout, serialmux.NewWebSocketPort(conn), nil)
		if err := s.Run(r.Context()); err != nil {
			monitoring.Logf("sim: client %s: %v", r.RemoteAddr, err)
		}
		monitoring.Logf("sim: bridge client %s gone", r.RemoteAddr)
	})
}
