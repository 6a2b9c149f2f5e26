package serialmux

import (
	"io"
	"sync"
)

// SerialPorter defines the minimal interface needed for a bridge link.
// This abstraction enables unit testing without real hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// PipePort is an in-memory SerialPorter. Whatever the host writes can be
// read from the device end, and whatever the device end writes is read by
// the host.
type PipePort struct {
	r *io.PipeReader
	w *io.PipeWriter

	closeOnce sync.Once
	closeErr  error
}

// NewPipePair returns two connected ports: host is handed to a SerialMux,
// device is driven by a simulator or a test.
func NewPipePair() (host, device *PipePort) {
	hostR, deviceW := io.Pipe()
	deviceR, hostW := io.Pipe()
	return &PipePort{r: hostR, w: hostW}, &PipePort{r: deviceR, w: deviceW}
}

func (p *PipePort) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *PipePort) Write(b []byte) (int, error) { return p.w.Write(b) }

// Close closes both directions. Pending reads on either end return EOF.
func (p *PipePort) Close() error {
	p.closeOnce.Do(func() {
		errW := p.w.Close()
		errR := p.r.Close()
		if errW != nil {
			p.closeErr = errW
		} else {
			p.closeErr = errR
		}
	})
	return p.closeErr
}
