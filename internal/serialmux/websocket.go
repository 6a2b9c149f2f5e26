package serialmux

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketWriteTimeout bounds a single websocket frame write.
const WebSocketWriteTimeout = 5 * time.Second

// WebSocketPort adapts a websocket connection to SerialPorter. Each text
// message carries one bridge line; Read yields the messages as
// newline-terminated lines.
type WebSocketPort struct {
	conn *websocket.Conn

	readMu  sync.Mutex
	pending []byte

	writeMu sync.Mutex
}

// NewWebSocketPort wraps an established websocket connection.
func NewWebSocketPort(conn *websocket.Conn) *WebSocketPort {
	return &WebSocketPort{conn: conn}
}

// Read returns bytes from the current message, fetching the next message
// when the current one is exhausted.
func (p *WebSocketPort) Read(b []byte) (int, error) {
	p.readMu.Lock()
	defer p.readMu.Unlock()

	for len(p.pending) == 0 {
		messageType, data, err := p.conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		data = bytes.TrimRight(data, "\r\n")
		p.pending = append(data, '\n')
	}

	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

// Write sends every complete line in b as its own text message. A trailing
// partial line is sent as well.
func (p *WebSocketPort) Write(b []byte) (int, error) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	for _, line := range bytes.Split(bytes.TrimRight(b, "\n"), []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		if len(line) == 0 {
			continue
		}
		_ = p.conn.SetWriteDeadline(time.Now().Add(WebSocketWriteTimeout))
		if err := p.conn.WriteMessage(websocket.TextMessage, line); err != nil {
			return 0, fmt.Errorf("failed to write message: %w", err)
		}
	}
	return len(b), nil
}

// Close sends a close frame and closes the connection.
func (p *WebSocketPort) Close() error {
	p.writeMu.Lock()
	_ = p.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	p.writeMu.Unlock()
	return p.conn.Close()
}

// DialWebSocketMux connects to a websocket bridge (for example the
// simulator) and returns a SerialMux over it.
func DialWebSocketMux(ctx context.Context, url string, header http.Header) (*SerialMux[*WebSocketPort], error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("dial bridge %s: %w", url, err)
	}
	return NewSerialMux(NewWebSocketPort(conn)), nil
}
