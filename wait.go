package procdrive

import (
	"context"
	"time"

	"github.com/banshee-data/procdrive/internal/monitoring"
	"github.com/banshee-data/procdrive/internal/protocol"
)

// WaitForTrackChange blocks until the vehicle enters another piece and
// returns that piece. Running out of time is not an error: it returns
// (nil, nil) when timeout passes first, and straight away when timeout is
// not positive or no map has been recorded yet. Pass Forever to wait
// without a timer.
//
// Errors are reserved for ctx ending (ctx.Err()) and the session ending
// (ErrClosed).
func (s *Session) WaitForTrackChange(ctx context.Context, timeout time.Duration) (*TrackPiece, error) {
	s.mu.RLock()
	scanned := s.state.pieces != nil
	changed := s.changed
	s.mu.RUnlock()

	if !scanned || timeout <= 0 {
		return nil, nil
	}

	var expired <-chan time.Time
	if timeout != Forever {
		timer := s.opts.clock.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C()
	}

	select {
	case <-changed:
		return s.CurrentTrackPiece(), nil
	case <-expired:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrClosed
	}
}

// AlignToStart drives at speed until the vehicle is on the start piece,
// then stops it. If ctx ends first the vehicle is stopped and ctx.Err()
// returned.
func (s *Session) AlignToStart(ctx context.Context, speed int) error {
	if p := s.CurrentTrackPiece(); p != nil && p.Type == PieceStart {
		return s.Stop()
	}
	if err := s.SetSpeed(speed, DefaultAcceleration); err != nil {
		return err
	}

	for {
		s.mu.RLock()
		changed := s.changed
		p := s.state.piece
		s.mu.RUnlock()

		if p != nil && p.Type == PieceStart {
			return s.Stop()
		}

		select {
		case <-changed:
		case <-ctx.Done():
			if err := s.Stop(); err != nil {
				monitoring.Logf("procdrive: stop after cancelled align: %v", err)
			}
			return ctx.Err()
		case <-s.done:
			return ErrClosed
		}
	}
}

// AlignToStartAsync starts AlignToStart in the background and returns
// immediately. done, if not nil, is called from a session goroutine once
// the vehicle reached the start piece. It is not called if the session
// closes first.
func (s *Session) AlignToStartAsync(speed int, done func()) error {
	if s.isDone() {
		return ErrClosed
	}
	go func() {
		if err := s.AlignToStart(s.ctx, speed); err != nil {
			monitoring.Logf("procdrive: align to start: %v", err)
			return
		}
		if done != nil {
			done()
		}
	}()
	return nil
}

// Scan drives at speed until a full lap has been recorded and returns the
// map. The vehicle keeps driving afterwards. If a map exists already it is
// returned without moving the vehicle.
func (s *Session) Scan(ctx context.Context, speed int) ([]*TrackPiece, error) {
	if m := s.Map(); m != nil {
		return m, nil
	}
	if err := s.SetSpeed(speed, DefaultAcceleration); err != nil {
		return nil, err
	}

	for {
		s.mu.RLock()
		changed := s.changed
		scanned := s.state.pieces != nil
		s.mu.RUnlock()

		if scanned {
			return s.Map(), nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.done:
			return nil, ErrClosed
		}
	}
}

// Ping measures the round trip to the vehicle.
func (s *Session) Ping(ctx context.Context) (time.Duration, error) {
	s.mu.RLock()
	pong := s.pong
	s.mu.RUnlock()

	start := s.opts.clock.Now()
	if err := s.send(protocol.PingRequest{}); err != nil {
		return 0, err
	}

	select {
	case <-pong:
		return s.opts.clock.Since(start), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-s.done:
		return 0, ErrClosed
	}
}
