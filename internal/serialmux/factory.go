package serialmux

import (
	"fmt"

	"go.bug.st/serial"
)

// NewRealSerialMux creates a SerialMux instance backed by a real serial port at the
// given path using the provided serial options.
func NewRealSerialMux(path string, opts PortOptions) (*SerialMux[serial.Port], error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open bridge port %s: %w", path, err)
	}

	return NewSerialMux[serial.Port](port), nil
}

// NewPipeSerialMux creates a SerialMux over an in-memory pipe and returns
// the device end of the pipe alongside it.
func NewPipeSerialMux() (*SerialMux[*PipePort], *PipePort) {
	host, device := NewPipePair()
	return NewSerialMux(host), device
}
