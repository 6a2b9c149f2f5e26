package procdrive

import (
	"time"

	"github.com/banshee-data/procdrive/internal/timeutil"
)

// Speeds in mm/s, accelerations in mm/s².
const (
	DefaultAcceleration           = 500
	StopAcceleration              = 1000
	DefaultHorizontalSpeed        = 300
	DefaultHorizontalAcceleration = 300
	DefaultAlignSpeed             = 300
	DefaultScanSpeed              = 400
)

// Connection defaults.
const (
	DefaultDiscoveryTimeout = 10 * time.Second
	DefaultConnectTimeout   = 10 * time.Second
	DefaultCommandQueue     = 64
)

// Forever makes WaitForTrackChange wait without a timer.
const Forever time.Duration = 1<<63 - 1

// Clock is the time source used for bounded waits.
type Clock = timeutil.Clock

type options struct {
	vehicleID        int
	discoveryTimeout time.Duration
	connectTimeout   time.Duration
	commandQueue     int
	clock            Clock
	recorder         Recorder
}

func defaultOptions() options {
	return options{
		discoveryTimeout: DefaultDiscoveryTimeout,
		connectTimeout:   DefaultConnectTimeout,
		commandQueue:     DefaultCommandQueue,
		clock:            timeutil.RealClock{},
	}
}

// Option configures Connect.
type Option func(*options)

// WithVehicleID connects only to the vehicle with this bridge id. The
// default (0) takes the first vehicle advertised.
func WithVehicleID(id int) Option {
	return func(o *options) { o.vehicleID = id }
}

// WithDiscoveryTimeout bounds how long Connect waits for an advertisement.
func WithDiscoveryTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.discoveryTimeout = d
		}
	}
}

// WithConnectTimeout bounds how long Connect waits for the bridge to
// confirm the connection.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.connectTimeout = d
		}
	}
}

// WithCommandQueue sets how many commands may be pending before
// ErrQueueFull is returned.
func WithCommandQueue(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.commandQueue = n
		}
	}
}

// WithClock replaces the clock used for timeouts.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithRecorder logs telemetry and sent commands to r.
func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}
