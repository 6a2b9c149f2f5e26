package sim

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/procdrive/internal/bridge"
	"github.com/banshee-data/procdrive/internal/protocol"
	"github.com/banshee-data/procdrive/internal/track"
)

func TestLayoutNormalize(t *testing.T) {
	l := DefaultLayout()
	assert.Equal(t, DefaultVehicleID, l.VehicleID)
	assert.Equal(t, DefaultTick, l.Tick)
	assert.Equal(t, 1.0, l.Speedup)
	require.NotNil(t, l.StartIndex)
	assert.Equal(t, len(l.Pieces)-1, *l.StartIndex)

	bad := []struct {
		name   string
		layout Layout
	}{
		{"too short", Layout{Pieces: []uint8{33}}},
		{"no start", Layout{Pieces: []uint8{36, 17, 20}}},
		{"negative id", Layout{VehicleID: -1, Pieces: []uint8{33, 36}}},
		{"start index out of range", Layout{Pieces: []uint8{33, 36}, StartIndex: intPtr(2)}},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.layout.Normalize()
			assert.Error(t, err)
		})
	}
}

func intPtr(v int) *int { return &v }

func TestLoadLayout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "oval.yaml")
	content := `vehicle_id: 7
pieces: [33, 36, 17, 20, 34, 18, 23]
start_index: 2
tick: 50ms
speedup: 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	l, err := LoadLayout(path)
	require.NoError(t, err)
	assert.Equal(t, 7, l.VehicleID)
	assert.Equal(t, 50*time.Millisecond, l.Tick)
	assert.Equal(t, 4.0, l.Speedup)
	assert.Equal(t, 2, *l.StartIndex)
	assert.Equal(t, DefaultAddress, l.Address)

	_, err = LoadLayout(filepath.Join(dir, "oval.json"))
	assert.Error(t, err, "wrong extension")

	_, err = LoadLayout(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	badPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badPath, []byte("pieces: [36, 17]\n"), 0o644))
	_, err = LoadLayout(badPath)
	assert.Error(t, err, "layout without start piece")
}

func TestApproach(t *testing.T) {
	assert.Equal(t, 100.0, approach(0, 300, 100))
	assert.Equal(t, 300.0, approach(250, 300, 100))
	assert.Equal(t, 200.0, approach(300, 0, 100))
	assert.Equal(t, 300.0, approach(0, 300, 0), "zero delta jumps")
	assert.Equal(t, 5.0, approach(5, 5, 1))
}

func TestVehicle_SpeedConvergesExactly(t *testing.T) {
	v := newVehicle(DefaultLayout())
	v.apply(protocol.SetSpeed{Speed: 300, Acceleration: 500}, DefaultLayout())

	for i := 0; i < 100; i++ {
		v.step(0.02)
	}
	assert.Equal(t, 300.0, v.speed)

	v.apply(protocol.SetSpeed{Speed: 0, Acceleration: 1000}, DefaultLayout())
	for i := 0; i < 100; i++ {
		v.step(0.02)
	}
	assert.Equal(t, 0.0, v.speed)
	assert.Empty(t, v.step(0.02), "a stopped vehicle reports nothing")
}

func TestVehicle_EmitsTransitionForEveryPiece(t *testing.T) {
	l := DefaultLayout()
	v := newVehicle(l)
	v.apply(protocol.SetSpeed{Speed: 2000}, l)

	// one big step crosses several pieces at once
	out := v.step(1.0)

	var entered []uint8
	for _, m := range out {
		if tr, ok := m.(protocol.TransitionUpdate); ok {
			entered = append(entered, tr.RoadPieceID)
		}
	}
	require.NotEmpty(t, entered)
	assert.Equal(t, uint8(track.RoadPieceStart), entered[0], "vehicle starts on the piece before start")
	for i := 1; i < len(entered); i++ {
		assert.Equal(t, l.Pieces[i], entered[i])
	}

	last, ok := out[len(out)-1].(protocol.PositionUpdate)
	require.True(t, ok)
	assert.Equal(t, v.roadPieceID(), last.RoadPieceID)
	assert.Equal(t, uint16(2000), last.Speed)
}

func TestVehicle_LaneChange(t *testing.T) {
	l := DefaultLayout()
	v := newVehicle(l)
	v.apply(protocol.ChangeLane{HorizontalSpeed: 100, Offset: 60, Tag: 9}, l)

	out := v.step(0.3)
	assert.Empty(t, out)
	assert.InDelta(t, 30.0, v.offset, 1e-9)

	out = v.step(0.5)
	require.Len(t, out, 1)
	assert.Equal(t, protocol.OffsetUpdate{Offset: 60, LaneChangeID: 9}, out[0])
	assert.Empty(t, v.step(0.1), "offset update is sent once")
}

func TestVehicle_Replies(t *testing.T) {
	l := DefaultLayout()
	v := newVehicle(l)
	assert.Equal(t, protocol.PingResponse{}, v.apply(protocol.PingRequest{}, l))
	assert.Equal(t, protocol.BatteryResponse{MilliVolts: DefaultBattery}, v.apply(protocol.BatteryRequest{}, l))
	assert.Equal(t, protocol.VersionResponse{Version: DefaultFirmware}, v.apply(protocol.VersionRequest{}, l))
	assert.Nil(t, v.apply(protocol.SetOffset{Offset: 10}, l))
}

// startSim runs a simulator and returns a channel of parsed bridge lines.
func startSim(t *testing.T, l Layout) (*Simulator, func(string), <-chan bridge.Line) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	mux, s := NewLink(ctx, l)
	t.Cleanup(func() {
		cancel()
		mux.Close()
	})

	_, ch := mux.Subscribe()
	go mux.Monitor(ctx)

	lines := make(chan bridge.Line, 64)
	go func() {
		for raw := range ch {
			if parsed, err := bridge.Parse(raw); err == nil {
				lines <- parsed
			}
		}
	}()

	send := func(line string) {
		require.NoError(t, mux.SendCommand(line))
	}
	return s, send, lines
}

// next returns the next line of the given kind, skipping telemetry.
func next(t *testing.T, lines <-chan bridge.Line, kind bridge.Kind) bridge.Line {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case l := <-lines:
			if l.Kind == kind {
				return l
			}
		case <-deadline:
			t.Fatalf("no %s line", kind)
		}
	}
}

func TestSimulator_Handshake(t *testing.T) {
	s, send, lines := startSim(t, DefaultLayout())

	send(bridge.Scan())
	adv := next(t, lines, bridge.KindAdvertise)
	assert.Equal(t, DefaultVehicleID, adv.VehicleID)
	assert.Equal(t, DefaultAddress, adv.Address)

	send(bridge.Connect(42))
	e := next(t, lines, bridge.KindError)
	assert.Equal(t, 42, e.VehicleID)

	send(bridge.Connect(DefaultVehicleID))
	ok := next(t, lines, bridge.KindConnected)
	assert.Equal(t, DefaultVehicleID, ok.VehicleID)
	assert.True(t, s.State().Connected)

	send(bridge.Transmit(protocol.BatteryRequest{}))
	rx := next(t, lines, bridge.KindReceive)
	m, err := rx.Message()
	require.NoError(t, err)
	assert.Equal(t, protocol.BatteryResponse{MilliVolts: DefaultBattery}, m)

	send(bridge.Disconnect())
	require.Eventually(t, func() bool { return !s.State().Connected }, time.Second, 5*time.Millisecond)
}

func TestSimulator_Reject(t *testing.T) {
	l := DefaultLayout()
	l.Reject = "already connected"
	_, send, lines := startSim(t, l)

	send(bridge.Connect(l.VehicleID))
	e := next(t, lines, bridge.KindError)
	assert.Equal(t, "already connected", e.Reason)
}

func TestSimulator_DrivesAndReportsPosition(t *testing.T) {
	l := DefaultLayout()
	l.Speedup = 10
	s, send, lines := startSim(t, l)

	send(bridge.Connect(l.VehicleID))
	next(t, lines, bridge.KindConnected)

	send(bridge.Transmit(protocol.SetSpeed{Speed: 500, Acceleration: 1000}))

	seenTransition := false
	deadline := time.After(3 * time.Second)
	for !seenTransition {
		select {
		case line := <-lines:
			if line.Kind != bridge.KindReceive {
				continue
			}
			m, err := line.Message()
			require.NoError(t, err)
			if tr, ok := m.(protocol.TransitionUpdate); ok {
				assert.Equal(t, uint8(track.RoadPieceStart), tr.RoadPieceID)
				seenTransition = true
			}
		case <-deadline:
			t.Fatal("vehicle never reached the start piece")
		}
	}
	assert.Len(t, s.Received(), 1)
}

func TestLoadLayout_Example(t *testing.T) {
	l, err := LoadLayout("../../config/layout.example.yaml")
	require.NoError(t, err)
	assert.Len(t, l.Pieces, 14)
	assert.Equal(t, 20*time.Millisecond, l.Tick)
	assert.Equal(t, 13, *l.StartIndex)
}
