package procdrive

import (
	"context"
	"net/http"

	"github.com/banshee-data/procdrive/internal/serialmux"
	"github.com/banshee-data/procdrive/internal/sim"
)

// Link is a line-oriented connection to a vehicle bridge. Connect takes
// ownership of the link: it runs Monitor and closes the link on
// Session.Close.
type Link interface {
	Subscribe() (string, chan string)
	Unsubscribe(id string)
	SendCommand(line string) error
	Monitor(ctx context.Context) error
	Close() error
}

// SerialOptions configures a serial bridge port.
type SerialOptions = serialmux.PortOptions

// OpenSerial opens a bridge dongle on a serial port.
func OpenSerial(path string, opts SerialOptions) (Link, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}
	return serialmux.NewRealSerialMux(path, opts)
}

// DialWebSocket connects to a bridge served over a websocket, such as
// procdrive-sim.
func DialWebSocket(ctx context.Context, url string, header http.Header) (Link, error) {
	return serialmux.DialWebSocketMux(ctx, url, header)
}

// OpenSimulator starts an in-process simulated bridge with one vehicle on
// a small oval track. The simulator runs until the link is closed.
func OpenSimulator() Link {
	mux, _ := sim.NewLink(context.Background(), sim.DefaultLayout())
	return mux
}
