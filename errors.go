package procdrive

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection matches every *ConnectionError with errors.Is.
	ErrConnection = errors.New("connection failed")

	// ErrNoVehicle is wrapped when discovery found no matching vehicle.
	ErrNoVehicle = errors.New("no vehicle found")

	// ErrRejected is wrapped when the bridge refused the connection.
	ErrRejected = errors.New("bridge rejected connection")

	// ErrClosed is returned by operations on a closed session, or after
	// the bridge link was lost.
	ErrClosed = errors.New("session closed")

	// ErrQueueFull is returned when commands are issued faster than the
	// bridge accepts them.
	ErrQueueFull = errors.New("command queue full")

	// ErrInvalidLane is returned by ChangeLane for a nil lane or a lane
	// outside its scheme.
	ErrInvalidLane = errors.New("invalid lane")

	// ErrInvalidLight is returned by SetLights for an unknown light.
	ErrInvalidLight = errors.New("invalid light")
)

// ConnectionError reports a failed Connect.
type ConnectionError struct {
	// VehicleID is the requested vehicle, or 0 for any.
	VehicleID int
	// Stage is "discover" or "connect".
	Stage string
	Err   error
}

func (e *ConnectionError) Error() string {
	if e.VehicleID == 0 {
		return fmt.Sprintf("procdrive: %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("procdrive: %s vehicle %d: %v", e.Stage, e.VehicleID, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrConnection) match any ConnectionError.
func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }
