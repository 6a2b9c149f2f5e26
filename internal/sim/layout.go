package sim

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/procdrive/internal/track"
)

// Defaults applied by Layout.Normalize.
const (
	DefaultVehicleID  = 1
	DefaultAddress    = "e4:1a:2c:00:00:01"
	DefaultTick       = 20 * time.Millisecond
	DefaultBattery    = 3900
	DefaultFirmware   = 0x2c4e
	maxLayoutFileSize = 64 * 1024
)

// Layout describes the simulated track and vehicle.
type Layout struct {
	VehicleID int     `yaml:"vehicle_id"`
	Address   string  `yaml:"address"`
	Pieces    []uint8 `yaml:"pieces"`
	// StartIndex is the piece the vehicle stands on at power up. Nil
	// means the last piece, just before the start line.
	StartIndex *int          `yaml:"start_index"`
	Tick       time.Duration `yaml:"tick"`
	// Speedup multiplies simulated time per tick. Tests run laps faster
	// than real time with it.
	Speedup float64 `yaml:"speedup"`
	Battery uint16  `yaml:"battery_mv"`
	// Firmware is reported in response to a version request.
	Firmware uint16 `yaml:"firmware"`
	// Reject, when set, makes the bridge refuse connections with this
	// reason.
	Reject string `yaml:"reject"`
}

// DefaultLayout is a small oval: start line, straight, two curves,
// straight, finish line, two curves.
func DefaultLayout() Layout {
	l := Layout{
		Pieces: []uint8{
			track.RoadPieceStart, 36, 17, 20, 39, track.RoadPieceFinish, 18, 23,
		},
	}
	l, _ = l.Normalize()
	return l
}

// Normalize validates the layout and applies defaults for unset values.
func (l Layout) Normalize() (Layout, error) {
	out := l
	if out.VehicleID == 0 {
		out.VehicleID = DefaultVehicleID
	}
	if out.VehicleID < 0 {
		return out, fmt.Errorf("invalid vehicle_id %d: must be non-negative", out.VehicleID)
	}
	if out.Address == "" {
		out.Address = DefaultAddress
	}
	if out.Tick <= 0 {
		out.Tick = DefaultTick
	}
	if out.Speedup <= 0 {
		out.Speedup = 1
	}
	if out.Battery == 0 {
		out.Battery = DefaultBattery
	}
	if out.Firmware == 0 {
		out.Firmware = DefaultFirmware
	}

	if len(out.Pieces) < 2 {
		return out, fmt.Errorf("layout needs at least 2 pieces, got %d", len(out.Pieces))
	}
	hasStart := false
	for _, id := range out.Pieces {
		if track.TypeOf(id) == track.Start {
			hasStart = true
			break
		}
	}
	if !hasStart {
		return out, fmt.Errorf("layout has no start piece (%d)", track.RoadPieceStart)
	}

	if out.StartIndex == nil {
		last := len(out.Pieces) - 1
		out.StartIndex = &last
	}
	if *out.StartIndex < 0 || *out.StartIndex >= len(out.Pieces) {
		return out, fmt.Errorf("start_index %d out of range [0, %d)", *out.StartIndex, len(out.Pieces))
	}
	return out, nil
}

// LoadLayout reads a yaml layout file.
func LoadLayout(path string) (Layout, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".yaml" && ext != ".yml" {
		return Layout{}, fmt.Errorf("layout file must have .yaml extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return Layout{}, fmt.Errorf("failed to stat layout file: %w", err)
	}
	if info.Size() > maxLayoutFileSize {
		return Layout{}, fmt.Errorf("layout file too large: %d bytes (max %d)", info.Size(), maxLayoutFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return Layout{}, fmt.Errorf("failed to read layout file: %w", err)
	}

	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("failed to parse layout yaml: %w", err)
	}
	l, err = l.Normalize()
	if err != nil {
		return Layout{}, fmt.Errorf("invalid layout: %w", err)
	}
	return l, nil
}

// pieceLength is the driving distance across a piece in mm.
func pieceLength(roadPieceID uint8) float64 {
	switch track.TypeOf(roadPieceID) {
	case track.Start:
		return 340
	case track.Finish:
		return 220
	case track.Straight, track.Intersection:
		return 560
	case track.Curve:
		return 280
	default:
		return 400
	}
}
