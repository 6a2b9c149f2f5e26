package serialmux

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"
)

// TestSerialPort implements SerialPorter for testing SerialMux operations
type TestSerialPort struct {
	readData    []byte
	readIndex   int
	writtenData bytes.Buffer
	writeErr    error
	closeErr    error
	closed      bool
	mu          sync.Mutex
}

func NewTestSerialPort(data string) *TestSerialPort {
	return &TestSerialPort{
		readData: []byte(data),
	}
}

func (p *TestSerialPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.EOF
	}
	if p.readIndex >= len(p.readData) {
		// Block briefly to simulate waiting for more data
		p.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		p.mu.Lock()
		if p.closed {
			return 0, io.EOF
		}
		return 0, nil
	}
	n := copy(buf, p.readData[p.readIndex:])
	p.readIndex += n
	return n, nil
}

func (p *TestSerialPort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	return p.writtenData.Write(data)
}

func (p *TestSerialPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return p.closeErr
}

func (p *TestSerialPort) WrittenData() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writtenData.String()
}

// shortWritePort reports fewer bytes written than requested.
type shortWritePort struct{ TestSerialPort }

func (p *shortWritePort) Write(data []byte) (int, error) { return len(data) - 1, nil }

func TestNewSerialMux(t *testing.T) {
	port := NewTestSerialPort("")
	mux := NewSerialMux(port)

	if mux.port != port {
		t.Error("SerialMux port not set correctly")
	}
	if mux.subscribers == nil {
		t.Error("SerialMux subscribers map not initialized")
	}
}

func TestSerialMux_SubscribeUnsubscribe(t *testing.T) {
	mux := NewSerialMux(NewTestSerialPort(""))

	id1, ch1 := mux.Subscribe()
	id2, _ := mux.Subscribe()
	if id1 == "" || id2 == "" || id1 == id2 {
		t.Fatalf("subscription ids %q and %q should be unique and non-empty", id1, id2)
	}
	if cap(ch1) != SubscriberBuffer {
		t.Errorf("subscriber buffer = %d, want %d", cap(ch1), SubscriberBuffer)
	}

	mux.Unsubscribe(id1)
	if _, ok := <-ch1; ok {
		t.Error("expected unsubscribed channel to be closed")
	}

	mux.subscriberMu.Lock()
	n := len(mux.subscribers)
	mux.subscriberMu.Unlock()
	if n != 1 {
		t.Errorf("expected 1 subscriber, got %d", n)
	}

	// unknown ids are ignored
	mux.Unsubscribe("does-not-exist")
}

func TestSerialMux_SendCommandAppendsNewline(t *testing.T) {
	port := NewTestSerialPort("")
	mux := NewSerialMux(port)

	if err := mux.SendCommand("scan"); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if err := mux.SendCommand("conn 1\n"); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if got, want := port.WrittenData(), "scan\nconn 1\n"; got != want {
		t.Errorf("written = %q, want %q", got, want)
	}
}

func TestSerialMux_SendCommandErrors(t *testing.T) {
	port := NewTestSerialPort("")
	port.writeErr = errors.New("boom")
	if err := NewSerialMux(port).SendCommand("scan"); err == nil {
		t.Error("expected write error")
	}

	if err := NewSerialMux(&shortWritePort{}).SendCommand("scan"); !errors.Is(err, ErrWriteFailed) {
		t.Errorf("short write error = %v, want ErrWriteFailed", err)
	}

	mux := NewSerialMux(NewTestSerialPort(""))
	mux.Close()
	if err := mux.SendCommand("scan"); !errors.Is(err, ErrClosed) {
		t.Errorf("send after close = %v, want ErrClosed", err)
	}
}

func TestSerialMux_MonitorFansOutLines(t *testing.T) {
	port := NewTestSerialPort("adv 1 aa\r\nok 1\nrx 0117\n")
	mux := NewSerialMux(port)

	_, ch1 := mux.Subscribe()
	_, ch2 := mux.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- mux.Monitor(ctx) }()

	want := []string{"adv 1 aa", "ok 1", "rx 0117"}
	for _, ch := range []chan string{ch1, ch2} {
		for _, w := range want {
			select {
			case got := <-ch:
				if got != w {
					t.Errorf("line = %q, want %q", got, w)
				}
			case <-time.After(time.Second):
				t.Fatalf("timed out waiting for %q", w)
			}
		}
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Monitor() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Monitor did not return after cancel")
	}
}

func TestSerialMux_MonitorReturnsOnPortEOF(t *testing.T) {
	mux, device := NewPipeSerialMux()

	done := make(chan error, 1)
	go func() { done <- mux.Monitor(context.Background()) }()

	device.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Monitor() = %v, want nil on EOF", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Monitor did not return on EOF")
	}
}

func TestSerialMux_CloseClosesSubscribers(t *testing.T) {
	port := NewTestSerialPort("")
	mux := NewSerialMux(port)
	_, ch := mux.Subscribe()

	if err := mux.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := <-ch; ok {
		t.Error("subscriber channel still open after Close")
	}
	if !port.closed {
		t.Error("port not closed")
	}
	// second close is a no-op
	if err := mux.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	_, late := mux.Subscribe()
	if _, ok := <-late; ok {
		t.Error("subscribe after close returned an open channel")
	}
}

func TestPipePair_CarriesBothDirections(t *testing.T) {
	mux, device := NewPipeSerialMux()
	defer mux.Close()

	go func() {
		buf := make([]byte, 64)
		n, _ := device.Read(buf)
		device.Write(append([]byte("echo "), buf[:n]...))
	}()

	_, ch := mux.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mux.Monitor(ctx)

	if err := mux.SendCommand("scan"); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	select {
	case got := <-ch:
		if got != "echo scan" {
			t.Errorf("got %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no echo")
	}
}

// localHostRequest creates an httptest request that appears to come from localhost.
// This bypasses tsweb.AllowDebugAccess which checks for loopback IPs.
func localHostRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.RemoteAddr = "127.0.0.1:12345"
	return req
}

func TestAttachAdminRoutes_SendCommandAPI(t *testing.T) {
	port := NewTestSerialPort("")
	mux := NewSerialMux(port)

	httpMux := http.NewServeMux()
	mux.AttachAdminRoutes(httpMux)

	tests := []struct {
		name           string
		method         string
		form           url.Values
		expectedStatus int
	}{
		{"valid POST", http.MethodPost, url.Values{"command": {"scan"}}, http.StatusOK},
		{"empty command", http.MethodPost, url.Values{"command": {"  "}}, http.StatusBadRequest},
		{"missing command", http.MethodPost, url.Values{}, http.StatusBadRequest},
		{"GET not allowed", http.MethodGet, nil, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := localHostRequest(tt.method, "/debug/send-command-api", strings.NewReader(tt.form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			rec := httptest.NewRecorder()
			httpMux.ServeHTTP(rec, req)
			if rec.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d (body %q)", rec.Code, tt.expectedStatus, rec.Body.String())
			}
		})
	}

	if got := port.WrittenData(); got != "scan\n" {
		t.Errorf("written = %q, want %q", got, "scan\n")
	}
}

func TestAttachAdminRoutes_SendCommandPage(t *testing.T) {
	mux := NewSerialMux(NewTestSerialPort(""))
	httpMux := http.NewServeMux()
	mux.AttachAdminRoutes(httpMux)

	rec := httptest.NewRecorder()
	httpMux.ServeHTTP(rec, localHostRequest(http.MethodGet, "/debug/send-command", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "tail.js") {
		t.Error("page does not load tail.js")
	}
}
